// Package server implements the session server: the long-lived process that
// owns a shell child and dispatches request envelopes read from a session's
// command channel.
package server

import (
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Server is the per-session state the listen loop and cleanup path share.
// A Server is only ever used by one OS process (the detached session
// server); there is no cross-process sharing of this type.
type Server struct {
	id         string
	dir        string
	cmdFifo    string
	lockPath   string
	lockFile   *os.File // kept open (and locked) for the server's lifetime

	log *zap.SugaredLogger

	fifoR *os.File // current open read end of cmd.fifo; nil between connections

	mu           sync.Mutex
	shellCmd     *exec.Cmd
	shellStdin   *os.File // write end of the anonymous pipe into the shell's stdin
	shellDone    chan struct{}
	shellWaitErr error

	shutdownOnce sync.Once
}
