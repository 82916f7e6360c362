package server

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// startShell forks the shell child: its standard input
// is connected to the read end of a fresh anonymous pipe whose write end the
// server keeps, so the listen loop can feed it shell fragments as if typed
// interactively. The shell's own stdout/stderr are left unconnected (each
// request redirects them explicitly; see formatFragment), which also means
// nothing the shell emits outside of a request's redirection group escapes
// to the session log.
func (s *Server) startShell(shellPath, callerCwd string) error {
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create shell stdin pipe: %w", err)
	}

	cmd := exec.Command(shellPath)
	cmd.Stdin = r
	cmd.Env = shellEnviron()
	// New process group so Shutdown can signal the whole group, not just
	// the shell itself, if it has spawned children of its own.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if dirErr := dirExists(callerCwd); dirErr == nil {
		cmd.Dir = callerCwd
	} else {
		s.log.Warnf("caller working directory %s unusable (%v); starting shell in /", callerCwd, dirErr)
	}

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return fmt.Errorf("start shell %s: %w", shellPath, err)
	}
	r.Close() // the child has its own reference; the server only writes

	s.shellCmd = cmd
	s.shellStdin = w
	s.shellDone = make(chan struct{})

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.shellWaitErr = err
		s.mu.Unlock()
		close(s.shellDone)
	}()

	return nil
}

// shellEnviron returns the caller's environment minus the re-exec plumbing
// variables used to detach this process (DaemonChildEnv, callerCwdEnv):
// those describe how the server itself was started, not anything a
// dispatched script should see or be able to accidentally rely on.
func shellEnviron() []string {
	env := os.Environ()
	out := env[:0:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, DaemonChildEnv+"=") || strings.HasPrefix(kv, callerCwdEnv+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func dirExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// shellAlive reports whether the shell process has not yet been reaped.
func (s *Server) shellAlive() bool {
	select {
	case <-s.shellDone:
		return false
	default:
		return true
	}
}
