// Package outdir prepares run directories and allocates their numbered
// output-NNNN subdirectories.
//
// Layout of a run:
//
//	<root>/<name>/checkpoints
//	<root>/<name>/output-0000
//	<root>/<name>/output-0001
//	...
package outdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	CheckpointsDir = "checkpoints"
	MaxIndex       = 9999
)

var (
	ErrRunExists = errors.New("run directory already exists")
	ErrNoOutput  = errors.New("no output directory found")
	ErrExhausted = errors.New("all output directory indices are in use")
)

// Policy says what Prepare does with an existing run directory.
type Policy int

const (
	Refuse Policy = iota
	Overwrite
	Append
)

func (p Policy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Append:
		return "append"
	}
	return "refuse"
}

// Name returns the base name of the output directory with the given index.
func Name(index int) string {
	return fmt.Sprintf("output-%04d", index)
}

// Path returns the path of the output directory with the given index.
func Path(runDir string, index int) string {
	return filepath.Join(runDir, Name(index))
}

// Prepare makes sure <root>/<name> and its checkpoints directory exist and
// returns the run directory. An existing run directory is an error under
// Refuse and is removed first under Overwrite.
func Prepare(root, name string, policy Policy) (string, error) {
	runDir := filepath.Join(root, name)

	_, err := os.Stat(runDir)
	switch {
	case err == nil:
		switch policy {
		case Refuse:
			return "", fmt.Errorf("%w: %s (use --overwrite or --append)", ErrRunExists, runDir)
		case Overwrite:
			if err := os.RemoveAll(runDir); err != nil {
				return "", fmt.Errorf("error removing %s: %w", runDir, err)
			}
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(runDir, CheckpointsDir), 0o755); err != nil {
		return "", fmt.Errorf("error creating run directory: %w", err)
	}
	return runDir, nil
}

// Next claims the lowest free output index of runDir by creating its directory.
// Each candidate is created with a single mkdir, so an index already taken,
// even by a concurrent invocation, is skipped instead of shared.
func Next(runDir string) (string, int, error) {
	for i := 0; i <= MaxIndex; i++ {
		dir := Path(runDir, i)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, i, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", -1, fmt.Errorf("error creating output directory: %w", err)
	}
	return "", -1, fmt.Errorf("%w: %s", ErrExhausted, runDir)
}

// Latest returns the last output directory of the contiguous sequence
// starting at output-0000.
func Latest(runDir string) (string, int, error) {
	last := -1
	for i := 0; i <= MaxIndex; i++ {
		info, err := os.Stat(Path(runDir, i))
		if err != nil || !info.IsDir() {
			break
		}
		last = i
	}
	if last < 0 {
		return "", -1, fmt.Errorf("%w in %s", ErrNoOutput, runDir)
	}
	return Path(runDir, last), last, nil
}

// Indices returns every existing output index of runDir in increasing order,
// including indices beyond a gap.
func Indices(runDir string) ([]int, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var i int
		if n, err := fmt.Sscanf(e.Name(), "output-%04d", &i); err != nil || n != 1 {
			continue
		}
		if e.Name() != Name(i) {
			continue
		}
		out = append(out, i)
	}
	// ReadDir sorts by name and names are zero padded
	return out, nil
}
