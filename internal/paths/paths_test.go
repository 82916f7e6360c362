package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendezvousRootDefault(t *testing.T) {
	os.Unsetenv(rendezvousRootEnv)
	assert.Equal(t, DefaultRendezvousRoot, RendezvousRoot())
}

func TestRendezvousRootEnvOverride(t *testing.T) {
	t.Setenv(rendezvousRootEnv, "/custom/root")
	assert.Equal(t, "/custom/root", RendezvousRoot())
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("build-1"))
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID("a/b"))
}

func TestSessionPaths(t *testing.T) {
	t.Setenv(rendezvousRootEnv, "/root-dir")
	assert.Equal(t, "/root-dir/my-id", SessionDir("my-id"))
	assert.Equal(t, "/root-dir/my-id/cmd.fifo", CmdFifo("my-id"))
	assert.Equal(t, "/root-dir/my-id/pid.lock", PidLock("my-id"))
	assert.Equal(t, "/root-dir/my-id/meta.yaml", MetaFile("my-id"))
}

func TestEnsureDirCreatesNested(t *testing.T) {
	tmp := t.TempDir()
	nested := filepath.Join(tmp, "a", "b", "c")
	require.NoError(t, EnsureDir(nested))
	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLogRootPrefersXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	t.Setenv("HOME", "/home/user")
	root, err := LogRoot()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/hinata/headlesh", root)
}

func TestLogRootFallsBackToHome(t *testing.T) {
	os.Unsetenv("XDG_DATA_HOME")
	t.Setenv("HOME", "/home/user")
	root, err := LogRoot()
	require.NoError(t, err)
	assert.Equal(t, "/home/user/.local/share/hinata/headlesh", root)
}

func TestLogRootErrorsWithNeitherSet(t *testing.T) {
	os.Unsetenv("XDG_DATA_HOME")
	os.Unsetenv("HOME")
	_, err := LogRoot()
	assert.Error(t, err)
}
