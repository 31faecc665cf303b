package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nrsim/simtools/outdir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		ID:         "0f4b",
		Name:       "sim1",
		Index:      2,
		Executable: "/opt/cactus/exe/cactus_sim",
		ParFile:    "bbh.par",
		Mode:       ModeContinue,
		Launcher:   LauncherSbatch,
		SubmitArgs: []string{"--time=24:00:00"},
		StartedAt:  start,
	}
	require.NoError(t, Write(dir, rec))

	got, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, "sim1", got.Name)
	assert.Equal(t, 2, got.Index)
	assert.Equal(t, []string{"--time=24:00:00"}, got.SubmitArgs)
	assert.True(t, start.Equal(got.StartedAt))
	assert.Nil(t, got.ExitCode)
	assert.Equal(t, dir, got.Dir)

	got.Finish(3, start.Add(time.Hour))
	require.NoError(t, Write(dir, got))
	got, err = Read(dir)
	require.NoError(t, err)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 3, *got.ExitCode)

	_, err = os.Stat(filepath.Join(dir, FileName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte{0xff, 0x00}, 0o644))
	_, err := Read(dir)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "sim1")
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	for i := 0; i < 3; i++ {
		dir, _, err := outdir.Next(runDir)
		require.NoError(t, err)
		if i != 1 {
			require.NoError(t, Write(dir, &Record{Name: "sim1", Index: i, Launcher: LauncherDirect}))
		}
	}

	recs, err := List(runDir)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "sim1", r.Name)
	}
	assert.Equal(t, LauncherDirect, recs[0].Launcher)
	assert.Empty(t, recs[1].Launcher)
}
