// Package launch runs the external programs the tools delegate to.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/nrsim/simtools/util"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil.
	Env   []string
	Stdin io.Reader
	// LogFile, when set, receives a copy of the combined stdout and stderr.
	LogFile string
}

// String returns the command line, for logging.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// Runner runs a command to completion.
// A non-zero exit is reported as an *ExitError.
type Runner interface {
	Run(ctx context.Context, c Command) error
}

// ExitError is returned when the launched program exits unsuccessfully.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%s was terminated by a signal", e.Name)
	}
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExecRunner runs commands with os/exec, wiring them to the terminal.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	// Stop command if main Go process is interrupted
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 10 * time.Second

	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if c.LogFile != "" {
		f, err := os.Create(c.LogFile)
		if err != nil {
			return fmt.Errorf("error creating log file: %w", err)
		}
		defer f.Close()
		combined := io.MultiWriter(stdout, f)
		cmd.Stdout = combined
		cmd.Stderr = combined
	} else {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
	}

	util.Logger().Debugf("exec: %s", c)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s not found at configured path, may not be installed: %w", c.Name, err)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Name: c.Name, Code: ee.ExitCode()}
	}
	return err
}

// Quote returns s quoted for a POSIX shell if it needs quoting.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=@%+,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
