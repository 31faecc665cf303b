package launch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// SetEnv returns env with key set to value, replacing an earlier entry.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}

// LookupEnv returns the value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}

// SourceEnv sources the shell file at path with bash, starting from base,
// and returns the resulting environment. Anything the file prints goes to
// stderr of the child and is discarded on success.
func SourceEnv(ctx context.Context, bash, path string, base []string) ([]string, error) {
	cmd := exec.CommandContext(ctx, bash, "-c", `set -a; . "$1" >&2 || exit $?; exec env -0`, "simrun-env", path)
	cmd.Env = base
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			err = fmt.Errorf("exit status %d", ee.ExitCode())
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				err = fmt.Errorf("%w\n%s", err, msg)
			}
		}
		return nil, fmt.Errorf("error sourcing environment file %s: %w", path, err)
	}
	if len(out) == 0 {
		// the file exited the shell before env ran
		return nil, fmt.Errorf("error sourcing environment file %s: shell exited before the environment was captured", path)
	}

	var env []string
	for _, kv := range bytes.Split(out, []byte{0}) {
		if len(kv) == 0 || bytes.HasPrefix(kv, []byte("_=")) {
			continue
		}
		env = append(env, string(kv))
	}
	return env, nil
}
