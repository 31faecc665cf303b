package outdir

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	assert.Equal(t, "output-0000", Name(0))
	assert.Equal(t, "output-0042", Name(42))
	assert.Equal(t, "output-9999", Name(MaxIndex))
}

func TestPrepareFresh(t *testing.T) {
	root := filepath.Join(t.TempDir(), "simulations")

	runDir, err := Prepare(root, "sim1", Refuse)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sim1"), runDir)
	assert.DirExists(t, filepath.Join(runDir, CheckpointsDir))
}

func TestPrepareRefuseLeavesTreeAlone(t *testing.T) {
	root := t.TempDir()
	runDir, err := Prepare(root, "sim1", Refuse)
	require.NoError(t, err)
	marker := filepath.Join(runDir, "output-0000", "data.h5")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	_, err = Prepare(root, "sim1", Refuse)
	assert.ErrorIs(t, err, ErrRunExists)
	assert.FileExists(t, marker)
}

func TestPrepareOverwrite(t *testing.T) {
	root := t.TempDir()
	runDir, err := Prepare(root, "sim1", Refuse)
	require.NoError(t, err)
	_, _, err = Next(runDir)
	require.NoError(t, err)
	_, _, err = Next(runDir)
	require.NoError(t, err)

	runDir, err = Prepare(root, "sim1", Overwrite)
	require.NoError(t, err)
	assert.NoDirExists(t, Path(runDir, 0))
	assert.DirExists(t, filepath.Join(runDir, CheckpointsDir))

	dir, i, err := Next(runDir)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, Path(runDir, 0), dir)
}

func TestPrepareAppendKeepsOutputs(t *testing.T) {
	root := t.TempDir()
	runDir, err := Prepare(root, "sim1", Refuse)
	require.NoError(t, err)
	_, _, err = Next(runDir)
	require.NoError(t, err)

	_, err = Prepare(root, "sim1", Append)
	require.NoError(t, err)
	_, i, err := Next(runDir)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestNextIsGapless(t *testing.T) {
	runDir := t.TempDir()
	for want := 0; want < 5; want++ {
		dir, i, err := Next(runDir)
		require.NoError(t, err)
		assert.Equal(t, want, i)
		assert.DirExists(t, dir)
	}
}

func TestNextFillsHoles(t *testing.T) {
	runDir := t.TempDir()
	require.NoError(t, os.Mkdir(Path(runDir, 0), 0o755))
	require.NoError(t, os.Mkdir(Path(runDir, 2), 0o755))
	// a stray file also occupies its index
	require.NoError(t, os.WriteFile(Path(runDir, 1), nil, 0o644))

	_, i, err := Next(runDir)
	require.NoError(t, err)
	assert.Equal(t, 3, i)
}

func TestNextConcurrentClaimsAreDistinct(t *testing.T) {
	runDir := t.TempDir()
	const n = 16

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = map[int]bool{}
	)
	for j := 0; j < n; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, i, err := Next(runDir)
			assert.NoError(t, err)
			mu.Lock()
			got[i] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, got, n)
	for i := 0; i < n; i++ {
		assert.True(t, got[i], "index %d", i)
	}
}

func TestLatest(t *testing.T) {
	runDir := t.TempDir()
	_, _, err := Latest(runDir)
	assert.ErrorIs(t, err, ErrNoOutput)

	for i := 0; i < 3; i++ {
		_, _, err := Next(runDir)
		require.NoError(t, err)
	}
	dir, i, err := Latest(runDir)
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	assert.Equal(t, Path(runDir, 2), dir)
}

func TestIndices(t *testing.T) {
	runDir := t.TempDir()
	for _, name := range []string{"output-0000", "output-0003", "output-12", "checkpoints", "output-abcd"} {
		require.NoError(t, os.Mkdir(filepath.Join(runDir, name), 0o755))
	}
	got, err := Indices(runDir)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, got)
}
