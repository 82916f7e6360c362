// Package paths resolves the filesystem layout shared by the session
// server, clients, and the list enumerator: the rendezvous root, a
// session's rendezvous directory and its well-known files, and the
// per-user log root.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ianremillard/headlesh/internal/errs"
)

// DefaultRendezvousRoot is the fixed default rendezvous root.
const DefaultRendezvousRoot = "/tmp/headlesh_sessions"

// rendezvousRootEnv overrides DefaultRendezvousRoot.
const rendezvousRootEnv = "HEADLESH_SESSIONS_ROOT"

// RendezvousRoot returns the rendezvous root directory, honoring
// HEADLESH_SESSIONS_ROOT if set.
func RendezvousRoot() string {
	if env := os.Getenv(rendezvousRootEnv); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
		return env
	}
	return DefaultRendezvousRoot
}

// ValidateSessionID requires a non-empty string containing no path
// separator.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", errs.ErrInvalidSessionID)
	}
	if strings.ContainsRune(id, filepath.Separator) || strings.ContainsRune(id, '/') {
		return fmt.Errorf("%w: %q contains a path separator", errs.ErrInvalidSessionID, id)
	}
	return nil
}

// SessionDir returns the rendezvous directory for a session id.
func SessionDir(id string) string {
	return filepath.Join(RendezvousRoot(), id)
}

// CmdFifo returns the path to a session's command channel.
func CmdFifo(id string) string {
	return filepath.Join(SessionDir(id), "cmd.fifo")
}

// PidLock returns the path to a session's advisory lock file.
func PidLock(id string) string {
	return filepath.Join(SessionDir(id), "pid.lock")
}

// MetaFile returns the path to a session's descriptive sidecar (SPEC_FULL
// §3 expansion). It is write-once at bootstrap and read-only afterward.
func MetaFile(id string) string {
	return filepath.Join(SessionDir(id), "meta.yaml")
}

// EnsureDir creates dir and its ancestors with mode 0755 if they do not
// already exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// LogRoot resolves the per-user log root: XDG_DATA_HOME if set, else
// $HOME/.local/share, joined with hinata/headlesh. An unresolvable log root
// is fatal for the server bootstrap only; other operations don't need it.
func LogRoot() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		if !filepath.IsAbs(xdg) {
			return "", fmt.Errorf("XDG_DATA_HOME must be absolute, got %q", xdg)
		}
		return filepath.Join(xdg, "hinata", "headlesh"), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", fmt.Errorf("neither XDG_DATA_HOME nor HOME is set")
	}
	return filepath.Join(home, ".local", "share", "hinata", "headlesh"), nil
}

// LogFile returns the log file path for a session: <LogRoot>/<id>/server.log.
func LogFile(id string) (string, error) {
	root, err := LogRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, id, "server.log"), nil
}

// RequestPipeBase returns the per-client namespace base for a role (out,
// err, status) at a given pid, e.g. /tmp/headlesh_out_1234.
func RequestPipeBase(role string, pid int) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("headlesh_%s_%d", role, pid))
}

// ScriptTempPattern is the mkstemp-equivalent template for materialized
// script files.
const ScriptTempPattern = "headlesh_cmd_script_*"
