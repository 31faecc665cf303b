// Package filter manages the include list handed to rsync with --include-from.
package filter

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// List is an include file on disk, one pattern per line.
type List struct {
	Path string
	temp bool
}

// Resolve returns a temporary list holding patterns when any are given,
// and the default list file otherwise.
func Resolve(defaultPath string, patterns []string) (*List, error) {
	if len(patterns) > 0 {
		return FromPatterns("", patterns)
	}
	return Default(defaultPath)
}

// Default uses an existing include file as is.
func Default(path string) (*List, error) {
	if path == "" {
		return nil, fmt.Errorf("no default filter file configured")
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("filter file not found: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("filter file is a directory: %s", path)
	}
	return &List{Path: path}, nil
}

// FromPatterns writes patterns to a new file in dir, or in the default
// temporary directory if dir is empty. The file is removed by Close.
func FromPatterns(dir string, patterns []string) (*List, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("simsync-include-%s.txt", uuid.NewString()))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("error creating filter file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, p := range patterns {
		fmt.Fprintln(w, p)
	}
	err = w.Flush()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("error writing filter file: %w", err)
	}
	return &List{Path: path, temp: true}, nil
}

// Temporary reports whether the list file was generated for this invocation.
func (l *List) Temporary() bool {
	return l.temp
}

// Patterns reads the list back, skipping blank lines and rsync comments.
func (l *List) Patterns() ([]string, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		out = append(out, line)
	}
	return out, s.Err()
}

// Close removes a generated list. Default lists are left alone.
func (l *List) Close() error {
	if l == nil || !l.temp {
		return nil
	}
	err := os.Remove(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
