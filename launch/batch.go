package launch

import (
	"strconv"
	"strings"
	"text/template"
)

// BatchJob is what the generated job script needs to know.
type BatchJob struct {
	// EnvFile is sourced before anything else when set.
	EnvFile string
	Srun    string
	Exe     string
	ParFile string
}

var batchTmpl = template.Must(template.New("job").Funcs(template.FuncMap{"quote": Quote}).Parse(`#!/bin/bash
{{- if .EnvFile}}
source {{quote .EnvFile}} || exit 1
{{- end}}
export CACTUS_STARTTIME=$(date +%s)
export CACTUS_NUM_PROCS=${SLURM_NTASKS:-1}
export CACTUS_NUM_THREADS=${SLURM_CPUS_PER_TASK:-1}
export OMP_NUM_THREADS=${CACTUS_NUM_THREADS}
{{quote .Srun}} --cpu-bind=none {{quote .Exe}} {{quote .ParFile}}
`))

// Script renders the job script submitted to sbatch.
func (j BatchJob) Script() (string, error) {
	var sb strings.Builder
	if err := batchTmpl.Execute(&sb, j); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// SbatchArgs returns the sbatch arguments for a job reading its script on stdin.
// extra is appended verbatim.
func SbatchArgs(jobName, logFile, dir string, extra []string) []string {
	args := []string{
		"--job-name=" + jobName,
		"--output=" + logFile,
		"--chdir=" + dir,
	}
	return append(args, extra...)
}

// MpirunArgs returns the mpirun arguments for a direct launch with core binding disabled.
func MpirunArgs(processes int, exe, parFile string) []string {
	return []string{"-np", strconv.Itoa(processes), "--bind-to", "none", exe, parFile}
}
