package server

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEnvironStripsPlumbingVars(t *testing.T) {
	t.Setenv(DaemonChildEnv, "1")
	t.Setenv(callerCwdEnv, "/somewhere")
	t.Setenv("KEPT_VAR", "yes")

	env := shellEnviron()
	for _, kv := range env {
		assert.NotContains(t, kv, DaemonChildEnv+"=")
		assert.NotContains(t, kv, callerCwdEnv+"=")
	}
	assert.Contains(t, env, "KEPT_VAR=yes")
}

func TestDirExists(t *testing.T) {
	assert.NoError(t, dirExists(t.TempDir()))
	assert.Error(t, dirExists("/no/such/directory/at/all"))

	f, err := os.CreateTemp(t.TempDir(), "not-a-dir")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assert.Error(t, dirExists(f.Name()))
}
