package list

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbePIDLive(t *testing.T) {
	assert.Equal(t, Live, probePID(os.Getpid()))
}

func TestProbePIDStale(t *testing.T) {
	// PID 1 may or may not be reachable in a sandbox; instead probe a pid
	// far outside any plausible live range.
	assert.Equal(t, Stale, probePID(1<<30))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "running", Live.String())
	assert.Equal(t, "stale", Stale.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestEnumerateEmptyRoot(t *testing.T) {
	t.Setenv("HEADLESH_SESSIONS_ROOT", t.TempDir()+"/does-not-exist")
	entries, err := Enumerate()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
