package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteReadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hm.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.Write())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, pf.IsRunning())

	require.NoError(t, pf.Remove())
	_, err = pf.Read()
	assert.ErrorIs(t, err, ErrPIDFileNotFound)
	assert.False(t, pf.IsRunning())
}

func TestPIDFile_RemoveMissingIsNoop(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "absent.pid"))
	assert.NoError(t, pf.Remove())
}

func TestPIDFile_ReadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hm.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))

	_, err := NewPIDFile(path).Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse pid file")
}
