package server

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ianremillard/headlesh/internal/paths"
	"github.com/ianremillard/headlesh/internal/wire"
)

// Run is the session server's listen loop. It blocks until the shell child
// exits, a fatal I/O error occurs on the command channel, the exit
// sentinel is received, or Shutdown is called from the signal handler —
// then runs cleanup exactly once.
func (s *Server) Run() {
	defer s.Shutdown()

	for {
		if !s.shellAlive() {
			s.log.Info("shell child exited; ending session")
			return
		}

		if s.fifoR == nil {
			f, err := os.OpenFile(s.cmdFifo, os.O_RDONLY, 0)
			if err != nil {
				s.log.Errorf("open command channel: %v", err)
				return
			}
			s.fifoR = f
		}

		buf := make([]byte, wire.EnvelopeMax)
		n, err := s.fifoR.Read(buf)
		if err != nil && err != io.EOF {
			s.log.Errorf("read command channel: %v", err)
			return
		}
		if n == 0 {
			// All writers closed; reopen and wait for the next client.
			s.fifoR.Close()
			s.fifoR = nil
			continue
		}

		raw := buf[:n]
		env, err := wire.Parse(raw)
		if err != nil {
			s.log.Warnf("dropping connection: %v", err)
			s.fifoR.Close()
			s.fifoR = nil
			continue
		}

		if wire.IsExitSentinel(env.Script) {
			s.log.Info("received exit sentinel")
			return
		}

		if err := validateRequestPaths(env); err != nil {
			s.log.Warnf("dropping connection: %v", err)
			s.fifoR.Close()
			s.fifoR = nil
			continue
		}

		scriptPath, err := s.materializeScript(env.Script)
		if err != nil {
			s.log.Errorf("cannot materialize script: %v", err)
			s.fifoR.Close()
			s.fifoR = nil
			continue
		}

		fragment := formatFragment(scriptPath, env.OutPath, env.ErrPath, env.StatusPath)
		if len(fragment) > wire.EnvelopeMax {
			s.log.Warnf("dropping request: shell fragment exceeds EnvelopeMax")
			os.Remove(scriptPath)
			s.fifoR.Close()
			s.fifoR = nil
			continue
		}

		if _, err := s.shellStdin.Write([]byte(fragment)); err != nil {
			s.log.Errorf("shell gone: %v", err)
			return
		}
	}
}

func validateRequestPaths(env wire.Envelope) error {
	for _, p := range []string{env.OutPath, env.ErrPath, env.StatusPath} {
		if err := wire.ValidatePath(p); err != nil {
			return err
		}
	}
	return nil
}

// materializeScript writes script to a freshly created temporary file whose
// name the shell fragment references; the fragment itself removes the file
// after execution.
func (s *Server) materializeScript(script []byte) (string, error) {
	f, err := os.CreateTemp(os.TempDir(), paths.ScriptTempPattern)
	if err != nil {
		return "", fmt.Errorf("create script temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(script); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write script temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close script temp file: %w", err)
	}
	return name, nil
}

// formatFragment builds the shell fragment dispatched for one request. The
// group construct sources the script so its environment, function, and
// directory changes persist in the session shell; the redirections are
// local to the group so the status echo that follows is unaffected.
//
// The script path and status path are first stashed in shell variables
// (each a single, non-nested shQuote'd assignment) so the EXIT trap below
// can reference them through plain double-quoted expansion rather than
// re-embedding client-controlled bytes inside an already-quoted trap
// command, which would otherwise require nested quoting.
//
// A script that invokes the shell builtin `exit` terminates the session
// shell immediately — before the plain "echo $EXIT_STATUS > status" after
// the group would ever run. The EXIT trap exists to cover exactly that
// case: it fires on any shell termination, writes whatever `exit` was
// called with to the status pipe, and is disarmed (`trap - EXIT`) once the
// group finishes normally so it does not also fire later, redundantly, at
// the session's own final shutdown. Before writing the status, the trap
// points the shell's stdout/stderr away from the request pipes, so the
// client sees end-of-file on both and goes on to open the status pipe.
func formatFragment(scriptPath, outPath, errPath, statusPath string) string {
	return fmt.Sprintf(
		"__HEADLESH_SCRIPT_PATH=%s; __HEADLESH_STATUS_PATH=%s; "+
			"{ trap '__HEADLESH_RC=$?; exec >/dev/null 2>&1; echo $__HEADLESH_RC > \"$__HEADLESH_STATUS_PATH\"; rm -f \"$__HEADLESH_SCRIPT_PATH\"' EXIT; "+
			". \"$__HEADLESH_SCRIPT_PATH\"; EXIT_STATUS=$?; trap - EXIT; "+
			"} > %s 2> %s; "+
			"echo $EXIT_STATUS > \"$__HEADLESH_STATUS_PATH\"; rm -f \"$__HEADLESH_SCRIPT_PATH\"\n",
		shQuote(scriptPath), shQuote(statusPath), shQuote(outPath), shQuote(errPath),
	)
}

// shQuote wraps s in single quotes for safe interpolation into the shell
// fragment, escaping any embedded single quote. All of scriptPath (server
// controlled) and the three envelope paths (client controlled, but
// constrained by validateRequestPaths to absolute, control-byte-free,
// bounded-length strings) pass through here before reaching the shell.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
