package simrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nrsim/simtools/config"
	"github.com/nrsim/simtools/launch"
	"github.com/nrsim/simtools/outdir"
	"github.com/nrsim/simtools/parfile"
	"github.com/nrsim/simtools/record"
	"github.com/nrsim/simtools/util"
)

// job is a prepared run, ready to be launched.
type job struct {
	name    string
	outDir  string
	parFile string // base name, inside outDir
	rec     *record.Record
}

func Run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.help {
		fmt.Println(helpText)
		return nil
	}
	util.SetVerbose(opts.verbose)
	return run(context.Background(), config.GetConfig(), launch.NewExecRunner(), opts)
}

func run(ctx context.Context, conf *config.Config, runner launch.Runner, opts *options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.outputRoot == "" {
		opts.outputRoot = conf.Run.OutputRoot
	}

	// The environment is settled before any directory is created
	envPath, err := envFile(conf)
	if err != nil {
		return err
	}
	var env []string
	if !opts.sbatch {
		if env, err = launchEnv(ctx, conf, envPath); err != nil {
			return err
		}
	}

	var j *job
	if opts.cont != "" {
		j, err = prepareContinue(opts)
	} else {
		j, err = prepareFresh(opts)
	}
	if err != nil {
		return err
	}
	util.Logger().Infof("output directory %s", j.outDir)

	if opts.sbatch {
		return submit(ctx, conf, runner, opts, j, envPath)
	}
	return execute(ctx, conf, runner, opts, j, env)
}

// prepareFresh derives the run name from the parameter file and allocates
// the first free output directory of that run.
func prepareFresh(opts *options) (*job, error) {
	name, err := parfile.RunName(opts.par)
	if err != nil {
		return nil, err
	}
	runDir, err := outdir.Prepare(opts.outputRoot, name, opts.policy())
	if err != nil {
		return nil, err
	}
	util.Logger().Debugf("run directory %s (%s)", runDir, opts.policy())
	return allocate(opts, name, runDir, opts.par, record.ModeFresh, opts.move)
}

// prepareContinue copies the parameter file of the latest output directory
// of an existing run into the next one.
func prepareContinue(opts *options) (*job, error) {
	runDir := filepath.Clean(opts.cont)
	latest, _, err := outdir.Latest(runDir)
	if err != nil {
		return nil, err
	}
	par, err := findParFile(latest)
	if err != nil {
		return nil, err
	}
	util.Logger().Debugf("continuing from %s", par)
	return allocate(opts, filepath.Base(runDir), runDir, par, record.ModeContinue, false)
}

// findParFile returns the parameter file used in an output directory,
// preferring the one named in its run record.
func findParFile(dir string) (string, error) {
	if rec, err := record.Read(dir); err == nil && rec.ParFile != "" {
		p := filepath.Join(dir, rec.ParFile)
		if util.FileExists(p) {
			return p, nil
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.par"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no parameter file found in %s", dir)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("more than one parameter file in %s, cannot tell which one to continue", dir)
}

func allocate(opts *options, name, runDir, par, mode string, move bool) (*job, error) {
	outDir, index, err := outdir.Next(runDir)
	if err != nil {
		return nil, err
	}

	j := &job{
		name:    name,
		outDir:  outDir,
		parFile: filepath.Base(par),
	}
	staged := filepath.Join(outDir, j.parFile)
	if err := stage(par, staged, move); err != nil {
		// give the index back, nothing was launched
		if !move || !util.FileExists(staged) {
			os.RemoveAll(outDir)
		}
		return nil, err
	}

	j.rec = &record.Record{
		ID:         uuid.NewString(),
		Name:       name,
		Index:      index,
		Executable: opts.exe,
		ParFile:    j.parFile,
		Mode:       mode,
		Threads:    opts.nThreads,
		Processes:  opts.nProcesses,
		SubmitArgs: opts.submitArgs,
		StartedAt:  time.Now(),
	}
	if opts.sbatch {
		j.rec.Launcher = record.LauncherSbatch
	} else {
		j.rec.Launcher = record.LauncherDirect
	}
	if err := record.Write(outDir, j.rec); err != nil {
		return nil, err
	}
	return j, nil
}

// stage puts the parameter file into the output directory and points its
// IO::out_dir at that directory. Checkpoint and recovery directories are
// expected to be configured relative to it.
func stage(src, dst string, move bool) error {
	var err error
	if move {
		err = util.MoveFile(src, dst)
	} else {
		err = util.CopyFile(src, dst)
	}
	if err != nil {
		return fmt.Errorf("error staging parameter file: %w", err)
	}
	if _, err := parfile.RewriteOutDir(dst, "."); err != nil {
		if move {
			if mvErr := util.MoveFile(dst, src); mvErr != nil {
				return fmt.Errorf("%w (parameter file left at %s: %v)", err, dst, mvErr)
			}
		}
		return err
	}
	return nil
}

func envFile(conf *config.Config) (string, error) {
	if conf.Run.EnvVar == "" {
		return "", nil
	}
	path := os.Getenv(conf.Run.EnvVar)
	if path == "" {
		return "", nil
	}
	if !util.FileExists(path) {
		return "", fmt.Errorf("environment file from $%s not found: %s", conf.Run.EnvVar, path)
	}
	return filepath.Abs(path)
}

// launchEnv returns the environment of a direct launch, the current one
// with the file at path sourced into it when set.
func launchEnv(ctx context.Context, conf *config.Config, path string) ([]string, error) {
	env := os.Environ()
	if path == "" {
		return env, nil
	}
	util.Logger().Debugf("sourcing %s", path)
	return launch.SourceEnv(ctx, conf.Bins.Bash, path, env)
}

// submit hands a generated job script to sbatch.
func submit(ctx context.Context, conf *config.Config, runner launch.Runner, opts *options, j *job, env string) error {
	script, err := launch.BatchJob{
		EnvFile: env,
		Srun:    conf.Bins.Srun,
		Exe:     opts.exe,
		ParFile: j.parFile,
	}.Script()
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(j.outDir)
	if err != nil {
		return err
	}
	return runner.Run(ctx, launch.Command{
		Name:  conf.Bins.Sbatch,
		Args:  launch.SbatchArgs(j.name, conf.Run.LogFile, dir, opts.submitArgs),
		Stdin: strings.NewReader(script),
	})
}

// execute runs the simulation with mpirun in the output directory and
// records how it ended.
func execute(ctx context.Context, conf *config.Config, runner launch.Runner, opts *options, j *job, env []string) error {
	env = launch.SetEnv(env, "CACTUS_STARTTIME", strconv.FormatInt(time.Now().Unix(), 10))
	env = launch.SetEnv(env, "CACTUS_NUM_PROCS", strconv.Itoa(opts.nProcesses))
	env = launch.SetEnv(env, "CACTUS_NUM_THREADS", strconv.Itoa(opts.nThreads))
	env = launch.SetEnv(env, "OMP_NUM_THREADS", strconv.Itoa(opts.nThreads))

	runErr := runner.Run(ctx, launch.Command{
		Name:    conf.Bins.Mpirun,
		Args:    launch.MpirunArgs(opts.nProcesses, opts.exe, j.parFile),
		Dir:     j.outDir,
		Env:     env,
		LogFile: filepath.Join(j.outDir, conf.Run.LogFile),
	})

	var ee *launch.ExitError
	switch {
	case runErr == nil:
		j.rec.Finish(0, time.Now())
	case errors.As(runErr, &ee):
		j.rec.Finish(ee.ExitCode(), time.Now())
	default:
		return runErr
	}
	if err := record.Write(j.outDir, j.rec); err != nil {
		util.Logger().Warnf("could not update run record: %v", err)
	}
	return runErr
}
