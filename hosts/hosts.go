// Package hosts reads the host table mapping short host aliases to the
// remote path of the project tree on that host.
package hosts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var ErrUnknownHost = errors.New("unknown host")

// Table maps a host alias to a remote path, e.g. "user@login.example.org:/scratch/user/project".
type Table map[string]string

// Load reads a JSON object of alias/path pairs.
// Aliases mapped to null are kept but do not resolve.
func Load(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading host table: %w", err)
	}
	var raw map[string]*string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("error parsing host table %s: %w", path, err)
	}
	t := make(Table, len(raw))
	for k, v := range raw {
		if v == nil {
			t[k] = ""
			continue
		}
		t[k] = *v
	}
	return t, nil
}

// Lookup returns the remote path for alias.
func (t Table) Lookup(alias string) (string, error) {
	p, ok := t[alias]
	if !ok || p == "" {
		return "", fmt.Errorf("%w %q", ErrUnknownHost, alias)
	}
	return p, nil
}

// Aliases returns the known aliases in sorted order.
func (t Table) Aliases() []string {
	names := make([]string, 0, len(t))
	for k, v := range t {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
