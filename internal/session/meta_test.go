package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMetaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.yaml")
	m := Meta{Shell: "/bin/zsh", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, WriteMeta(path, m))

	got, err := ReadMeta(path)
	require.NoError(t, err)
	assert.Equal(t, m.Shell, got.Shell)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
}

func TestReadMetaMissingFile(t *testing.T) {
	_, err := ReadMeta(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteReadPIDRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pid.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, WritePID(f, 4242))

	got, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, got)
}

func TestWritePIDOverwritesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pid.lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, WritePID(f, 999999))
	require.NoError(t, WritePID(f, 7))

	got, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestReadPIDMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pid.lock")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))
	_, err := ReadPID(path)
	assert.Error(t, err)
}
