package util

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
)

type RunFunc func([]string) error

// exitCoder is implemented by errors that carry the exit status of a
// child process, such as *exec.ExitError and launch.ExitError.
type exitCoder interface {
	ExitCode() int
}

// ExitCode returns the status the program should exit with for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec exitCoder
	if errors.As(err, &ec) && ec.ExitCode() > 0 {
		return ec.ExitCode()
	}
	return 1
}

// Fatal kills the program if the provided err is not nil, logging it as well.
// The exit status of a failed child process is passed through unchanged.
func Fatal(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(ExitCode(err))
	}
}

// Die prints a formatted message to stderr and exits with status 1.
func Die(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func Version() string {
	return fmt.Sprintf(
		"Version:     %s\nCommit time: %s (%s ago)",
		versioninfo.Short(),
		versioninfo.LastCommit.Local().Format(time.DateTime),
		time.Since(versioninfo.LastCommit).Truncate(time.Second).String(),
	)
}

// Runner runs your command and does pre/post processing.
// args should not contain the name of the command/binary.
func Runner(args []string, run RunFunc) {
	if len(args) > 0 && (args[0] == "version" || args[0] == "--version") {
		fmt.Println(Version())
		return
	}
	err := run(args)
	Sync()
	Fatal(err)
}
