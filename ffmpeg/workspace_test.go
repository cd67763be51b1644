package ffmpeg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceAcquire(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), 0)
	require.NoError(t, err)

	a, err := ws.Acquire("in", "mp4")
	require.NoError(t, err)
	b, err := ws.Acquire("in", "mp4")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path(), b.Path(), "acquired temp files must be uniquely named")
	assert.FileExists(t, a.Path())

	a.Release()
	b.Release()
	assert.NoFileExists(t, a.Path())
}

func TestTempFileReleaseIsIdempotent(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), 0)
	require.NoError(t, err)

	f, err := ws.Acquire("out", "mp4")
	require.NoError(t, err)

	f.Release()
	assert.NoFileExists(t, f.Path())
	// Second release of a missing file must not panic or recreate anything.
	f.Release()
	assert.NoFileExists(t, f.Path())

	var nilFile *TempFile
	nilFile.Release()
}

func TestWorkspaceWriteTemp(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), 16)
	require.NoError(t, err)

	f, err := ws.WriteTemp("in", "mp4", []byte("payload"))
	require.NoError(t, err)
	defer f.Release()

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestWorkspaceWriteTempEnforcesSizeLimit(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = ws.WriteTemp("in", "mp4", []byte("too large for the limit"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")

	// Nothing may be left behind on the failure path.
	entries, err := os.ReadDir(ws.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkspaceRemove(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = ws.WriteTemp("in", "mp4", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, ws.Remove())
	assert.NoDirExists(t, ws.Root())
}
