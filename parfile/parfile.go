// Package parfile reads and rewrites the output directory setting of a
// simulation parameter file.
//
// Only the IO::out_dir key is interpreted. Checkpoint and recovery
// directories are expected to be configured relative to it (usually "..")
// and are left as written.
package parfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const OutDirKey = "IO::out_dir"

var (
	ErrNoOutDir   = errors.New(OutDirKey + " not set")
	ErrUnresolved = errors.New(OutDirKey + " contains an unresolved variable reference")
)

// matches `IO::out_dir = "value"` as well as unquoted values, keys are case insensitive
var outDirRe = regexp.MustCompile(`(?i)^(\s*)IO::out_dir(\s*)=(\s*)(?:"([^"]*)"|([^\s#"]+))(.*)$`)

// OutDir returns the value of the last IO::out_dir assignment in the file.
func OutDir(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var (
		value string
		found bool
	)
	s := bufio.NewScanner(f)
	for s.Scan() {
		m := outDirRe.FindStringSubmatch(s.Text())
		if m == nil {
			continue
		}
		value, found = m[4]+m[5], true
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%s: %w", path, ErrNoOutDir)
	}
	return value, nil
}

// RunName derives the run name from the IO::out_dir value of the file.
func RunName(path string) (string, error) {
	value, err := OutDir(path)
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(value)
	if strings.Contains(value, "$") {
		return "", fmt.Errorf("%s: %w: %q", path, ErrUnresolved, value)
	}
	if value == "" {
		return "", fmt.Errorf("%s: %s is empty", path, OutDirKey)
	}
	name := filepath.Clean(value)
	if filepath.IsAbs(name) || name == "." || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %s must be a relative path below the output root, got %q", path, OutDirKey, value)
	}
	return name, nil
}

// RewriteOutDir sets every IO::out_dir assignment in the file to value,
// keeping indentation and trailing comments. It returns the number of lines changed.
func RewriteOutDir(path, value string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	lines := bytes.SplitAfter(b, []byte("\n"))
	n := 0
	for i, line := range lines {
		body := bytes.TrimRight(line, "\r\n")
		m := outDirRe.FindSubmatch(body)
		if m == nil {
			continue
		}
		var buf bytes.Buffer
		buf.Write(m[1])
		buf.WriteString(OutDirKey)
		buf.Write(m[2])
		buf.WriteString("=")
		buf.Write(m[3])
		fmt.Fprintf(&buf, "%q", value)
		buf.Write(m[6])
		buf.Write(line[len(body):])
		lines[i] = buf.Bytes()
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", path, ErrNoOutDir)
	}
	return n, os.WriteFile(path, bytes.Join(lines, nil), info.Mode().Perm())
}
