package launch

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerTeesToLog(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "echo to-stdout; echo to-stderr >&2; pwd"},
		Dir:     dir,
		LogFile: filepath.Join(dir, "stdout.txt"),
	})
	require.NoError(t, err)

	log, err := os.ReadFile(filepath.Join(dir, "stdout.txt"))
	require.NoError(t, err)
	assert.Equal(t, out.String(), string(log))
	assert.Contains(t, string(log), "to-stdout")
	assert.Contains(t, string(log), "to-stderr")
}

func TestExecRunnerExitCode(t *testing.T) {
	requireShell(t)
	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.ExitCode())
	assert.Equal(t, "sh exited with status 3", ee.Error())
}

func TestExecRunnerEnvAndStdin(t *testing.T) {
	requireShell(t)
	var out bytes.Buffer
	r := &ExecRunner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-s"},
		Env:   []string{"PATH=" + os.Getenv("PATH"), "GREETING=hello"},
		Stdin: strings.NewReader("echo $GREETING\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := &ExecRunner{}
	err := r.Run(context.Background(), Command{Name: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "plain/path-1.par", Quote("plain/path-1.par"))
	assert.Equal(t, "''", Quote(""))
	assert.Equal(t, "'two words'", Quote("two words"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
	assert.Equal(t, "'$HOME'", Quote("$HOME"))
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "rsync", Args: []string{"--include=*/", "a b"}}
	assert.Equal(t, "rsync '--include=*/' 'a b'", c.String())
}

func TestSetEnv(t *testing.T) {
	env := []string{"A=1", "OMP_NUM_THREADS=8", "B=2"}
	env = SetEnv(env, "OMP_NUM_THREADS", "2")
	assert.Equal(t, []string{"A=1", "B=2", "OMP_NUM_THREADS=2"}, env)

	v, ok := LookupEnv(env, "OMP_NUM_THREADS")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = LookupEnv(env, "MISSING")
	assert.False(t, ok)
}

func TestSourceEnv(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env.sh")
	require.NoError(t, os.WriteFile(envFile, []byte("echo loading\nMODULE_LOADED=yes\nexport FOO=bar\n"), 0o644))

	env, err := SourceEnv(context.Background(), bash, envFile, []string{"PATH=" + os.Getenv("PATH"), "KEEP=1"})
	require.NoError(t, err)

	v, _ := LookupEnv(env, "MODULE_LOADED")
	assert.Equal(t, "yes", v)
	v, _ = LookupEnv(env, "FOO")
	assert.Equal(t, "bar", v)
	v, _ = LookupEnv(env, "KEEP")
	assert.Equal(t, "1", v)
	_, ok := LookupEnv(env, "_")
	assert.False(t, ok)
}

func TestSourceEnvFailure(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	dir := t.TempDir()
	envFile := filepath.Join(dir, "env.sh")
	require.NoError(t, os.WriteFile(envFile, []byte("echo broken >&2\nreturn 4\n"), 0o644))

	_, err = SourceEnv(context.Background(), bash, envFile, []string{"PATH=" + os.Getenv("PATH")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 4")
	assert.Contains(t, err.Error(), "broken")

	_, err = SourceEnv(context.Background(), bash, filepath.Join(dir, "missing.sh"), []string{"PATH=" + os.Getenv("PATH")})
	assert.Error(t, err)
}

func TestSourceEnvEarlyExit(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	envFile := filepath.Join(t.TempDir(), "env.sh")
	require.NoError(t, os.WriteFile(envFile, []byte("export FOO=bar\nexit 0\n"), 0o644))

	env, err := SourceEnv(context.Background(), bash, envFile, []string{"PATH=" + os.Getenv("PATH")})
	assert.ErrorContains(t, err, "shell exited before the environment was captured")
	assert.Nil(t, env)
}

func TestBatchScript(t *testing.T) {
	s, err := BatchJob{
		EnvFile: "/home/me/env files/cluster.sh",
		Srun:    "srun",
		Exe:     "/opt/cactus/exe/cactus_sim",
		ParFile: "bbh.par",
	}.Script()
	require.NoError(t, err)
	assert.Equal(t, `#!/bin/bash
source '/home/me/env files/cluster.sh' || exit 1
export CACTUS_STARTTIME=$(date +%s)
export CACTUS_NUM_PROCS=${SLURM_NTASKS:-1}
export CACTUS_NUM_THREADS=${SLURM_CPUS_PER_TASK:-1}
export OMP_NUM_THREADS=${CACTUS_NUM_THREADS}
srun --cpu-bind=none /opt/cactus/exe/cactus_sim bbh.par
`, s)

	s, err = BatchJob{Srun: "srun", Exe: "exe", ParFile: "a.par"}.Script()
	require.NoError(t, err)
	assert.NotContains(t, s, "source")
	assert.True(t, strings.HasPrefix(s, "#!/bin/bash\nexport CACTUS_STARTTIME"))
}

func TestSbatchAndMpirunArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--job-name=sim1", "--output=stdout.txt", "--chdir=/w/simulations/sim1/output-0000", "--time=1:00:00", "-N", "2"},
		SbatchArgs("sim1", "stdout.txt", "/w/simulations/sim1/output-0000", []string{"--time=1:00:00", "-N", "2"}))
	assert.Equal(t,
		[]string{"-np", "4", "--bind-to", "none", "/opt/exe", "bbh.par"},
		MpirunArgs(4, "/opt/exe", "bbh.par"))
}
