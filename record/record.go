// Package record stores a small CBOR description of each launch in its
// output directory.
package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/nrsim/simtools/outdir"
)

const FileName = "simrun.cbor"

const (
	ModeFresh    = "fresh"
	ModeContinue = "continue"

	LauncherDirect = "direct"
	LauncherSbatch = "sbatch"
)

type Record struct {
	ID         string     `cbor:"id" json:"id"`
	Name       string     `cbor:"name" json:"name"`
	Index      int        `cbor:"index" json:"index"`
	Executable string     `cbor:"exe" json:"exe"`
	ParFile    string     `cbor:"par" json:"par"`
	Mode       string     `cbor:"mode" json:"mode"`
	Launcher   string     `cbor:"launcher" json:"launcher"`
	Threads    int        `cbor:"threads,omitempty" json:"threads,omitempty"`
	Processes  int        `cbor:"processes,omitempty" json:"processes,omitempty"`
	SubmitArgs []string   `cbor:"submit_args,omitempty" json:"submit_args,omitempty"`
	StartedAt  time.Time  `cbor:"started_at" json:"started_at"`
	FinishedAt *time.Time `cbor:"finished_at,omitempty" json:"finished_at,omitempty"`
	ExitCode   *int       `cbor:"exit_code,omitempty" json:"exit_code,omitempty"`
	Dir        string     `cbor:"-" json:"dir,omitempty"`
}

// Finish marks the record as completed with the given exit code.
func (r *Record) Finish(code int, at time.Time) {
	r.FinishedAt = &at
	r.ExitCode = &code
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Write stores rec in dir, replacing any previous record.
func Write(dir string, rec *Record) error {
	b, err := encMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error encoding run record: %w", err)
	}
	path := filepath.Join(dir, FileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("error writing run record: %w", err)
	}
	return os.Rename(tmp, path)
}

// Read loads the record stored in dir.
func Read(dir string) (*Record, error) {
	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := cbor.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("error decoding run record in %s: %w", dir, err)
	}
	rec.Dir = dir
	return &rec, nil
}

// List returns the records of every output directory of runDir in index order.
// Output directories without a record get a stub holding only the index.
func List(runDir string) ([]*Record, error) {
	indices, err := outdir.Indices(runDir)
	if err != nil {
		return nil, err
	}
	recs := make([]*Record, 0, len(indices))
	for _, i := range indices {
		dir := outdir.Path(runDir, i)
		rec, err := Read(dir)
		if errors.Is(err, os.ErrNotExist) {
			rec = &Record{Index: i, Name: filepath.Base(runDir), Dir: dir}
		} else if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
