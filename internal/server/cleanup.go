package server

import (
	"os"
	"syscall"
	"time"

	"github.com/ianremillard/headlesh/internal/paths"
)

// shellShutdownGrace is how long Shutdown waits for the shell child to exit
// on its own after SIGTERM before force-killing it.
const shellShutdownGrace = time.Second

// Shutdown runs the session server's cleanup path exactly once, regardless
// of how many termination conditions fire concurrently (shell exit, fatal
// I/O, exit sentinel, signal). Errors during cleanup are logged, never
// propagated: a cleanup failure must not change the process's exit status.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.killShell()

		if s.fifoR != nil {
			s.fifoR.Close()
			s.fifoR = nil
		}
		if err := os.Remove(s.cmdFifo); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("remove command channel: %v", err)
		}

		if s.lockFile != nil {
			s.lockFile.Close()
		}
		if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("remove pid lock: %v", err)
		}

		if err := os.Remove(paths.MetaFile(s.id)); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("remove session metadata: %v", err)
		}

		// Best effort: only succeeds if the directory is now empty. A
		// normal shutdown leaves cmd.fifo, pid.lock, and meta.yaml all
		// removed above, so this reclaims the rendezvous directory itself;
		// anything unexpected left behind (added out of band) blocks the
		// removal rather than being clobbered.
		os.Remove(s.dir)

		s.log.Info("session shut down")
	})
}

func (s *Server) killShell() {
	s.mu.Lock()
	cmd := s.shellCmd
	stdin := s.shellStdin
	done := s.shellDone
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil || done == nil {
		return
	}

	select {
	case <-done:
		// Already exited.
	default:
		// The shell leads its own process group (see startShell); signal
		// the group so anything the shell spawned goes down with it.
		syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(shellShutdownGrace):
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			<-done
		}
	}

	if stdin != nil {
		stdin.Close()
	}
}
