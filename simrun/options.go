package simrun

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/juju/gnuflag"
	"github.com/nrsim/simtools/outdir"
	"github.com/nrsim/simtools/util"
)

const helpText = `simrun prepares a numbered output directory for a simulation and launches it.

Usage:

  simrun -e EXE -p PARFILE [options] [-- SBATCH-ARGS...]
  simrun -e EXE -c RUNDIR [options] [-- SBATCH-ARGS...]

Options:
  -e, --exe EXE           simulation executable (required)
  -p, --par PARFILE       parameter file, its IO::out_dir names the run
  -o, --output DIR        output root (default from config, "simulations")
  -c, --continue RUNDIR   continue an existing run from its latest output directory
  -O, --overwrite         remove an existing run directory first
  -a, --append            add a new output directory to an existing run
  -s, --sbatch            submit with sbatch instead of running with mpirun
  -t, --threads N         threads per process, a number or "all" (default 1)
  -P, --processes N       MPI processes, a number or "all" (default 1)
                          not accepted with --sbatch, sbatch sets the layout
  -m, --move              move the parameter file instead of copying it
  -v, --verbose           debug logging
  -h, --help              show this help

Arguments after -- are passed to sbatch unchanged.
The shell file named by $SIMRUN_ENV (see [run].env_var) is sourced before launch.`

type options struct {
	exe        string
	par        string
	outputRoot string
	cont       string
	overwrite  bool
	appendRun  bool
	sbatch     bool
	threads    string
	processes  string
	move       bool
	verbose    bool
	help       bool
	submitArgs []string

	// resolved by validate
	nThreads   int
	nProcesses int
}

func parseArgs(args []string) (*options, error) {
	var o options

	fs := gnuflag.NewFlagSet("simrun", gnuflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.exe, "e", "", "executable")
	fs.StringVar(&o.exe, "exe", "", "executable")
	fs.StringVar(&o.par, "p", "", "parameter file")
	fs.StringVar(&o.par, "par", "", "parameter file")
	fs.StringVar(&o.outputRoot, "o", "", "output root")
	fs.StringVar(&o.outputRoot, "output", "", "output root")
	fs.StringVar(&o.cont, "c", "", "run directory to continue")
	fs.StringVar(&o.cont, "continue", "", "run directory to continue")
	fs.BoolVar(&o.overwrite, "O", false, "overwrite existing run")
	fs.BoolVar(&o.overwrite, "overwrite", false, "overwrite existing run")
	fs.BoolVar(&o.appendRun, "a", false, "append to existing run")
	fs.BoolVar(&o.appendRun, "append", false, "append to existing run")
	fs.BoolVar(&o.sbatch, "s", false, "submit with sbatch")
	fs.BoolVar(&o.sbatch, "sbatch", false, "submit with sbatch")
	fs.StringVar(&o.threads, "t", "", "threads per process")
	fs.StringVar(&o.threads, "threads", "", "threads per process")
	fs.StringVar(&o.processes, "P", "", "processes")
	fs.StringVar(&o.processes, "processes", "", "processes")
	fs.BoolVar(&o.move, "m", false, "move parameter file")
	fs.BoolVar(&o.move, "move", false, "move parameter file")
	fs.BoolVar(&o.verbose, "v", false, "verbose")
	fs.BoolVar(&o.verbose, "verbose", false, "verbose")
	fs.BoolVar(&o.help, "h", false, "help")
	fs.BoolVar(&o.help, "help", false, "help")

	if err := fs.Parse(true, args); err != nil {
		return nil, fmt.Errorf("%w, see --help", err)
	}
	o.submitArgs = fs.Args()
	return &o, nil
}

// validate checks every precondition before anything is written to disk.
func (o *options) validate() error {
	if o.exe == "" {
		return errors.New("provide the executable with --exe")
	}
	if !util.FileExists(o.exe) {
		return fmt.Errorf("executable not found: %s", o.exe)
	}
	if o.cont == "" {
		if o.par == "" {
			return errors.New("provide a parameter file with --par, or a run to continue with --continue")
		}
		if !util.FileExists(o.par) {
			return fmt.Errorf("parameter file not found: %s", o.par)
		}
	} else {
		if o.par != "" {
			return errors.New("--par and --continue are mutually exclusive")
		}
		if o.overwrite || o.appendRun {
			return errors.New("--overwrite and --append cannot be used with --continue")
		}
		if o.move {
			return errors.New("--move cannot be used with --continue")
		}
		info, err := os.Stat(o.cont)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("run directory not found: %s", o.cont)
		}
	}
	if o.overwrite && o.appendRun {
		return errors.New("--overwrite and --append are mutually exclusive")
	}
	if len(o.submitArgs) > 0 && !o.sbatch {
		return fmt.Errorf("extra arguments %q are only accepted with --sbatch", o.submitArgs)
	}

	var err error
	if o.sbatch {
		// the job layout comes from the sbatch arguments
		if o.threads != "" || o.processes != "" {
			return errors.New("--threads and --processes do not apply to --sbatch, pass --ntasks and --cpus-per-task after --")
		}
	} else {
		if o.nThreads, err = parseCount("threads", orOne(o.threads)); err != nil {
			return err
		}
		if o.nProcesses, err = parseCount("processes", orOne(o.processes)); err != nil {
			return err
		}
	}

	if o.exe, err = filepath.Abs(o.exe); err != nil {
		return err
	}
	return nil
}

func (o *options) policy() outdir.Policy {
	switch {
	case o.overwrite:
		return outdir.Overwrite
	case o.appendRun:
		return outdir.Append
	}
	return outdir.Refuse
}

func orOne(s string) string {
	if s == "" {
		return "1"
	}
	return s
}

// parseCount accepts a positive integer or "all" for the number of CPUs.
func parseCount(what, s string) (int, error) {
	if s == "all" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("--%s must be a positive integer or \"all\", got %q", what, s)
	}
	return n, nil
}
