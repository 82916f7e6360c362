package server

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"github.com/ianremillard/headlesh/internal/errs"
	"github.com/ianremillard/headlesh/internal/paths"
	"github.com/ianremillard/headlesh/internal/session"
)

// DaemonChildEnv, when set to "1" in the environment, tells this binary that
// it is the re-exec'd, detached half of `create` rather than the foreground
// invocation. A single re-exec with Setsid stands in for a classic
// double-fork, since Go's runtime has already started background OS
// threads by the time main runs, which makes a raw fork unsafe.
const DaemonChildEnv = "HEADLESH_DAEMON_CHILD"

// callerCwdEnv carries the foreground invocation's working directory into
// the detached process, which uses it to start the shell child in the same
// place the user ran `create` from.
const callerCwdEnv = "HEADLESH_CALLER_CWD"

// DefaultShell is used when the caller passes no shell path, or an empty one.
const DefaultShell = "bash"

// Create runs the foreground half of `headlesh create <id> [shell]`:
// bootstrap steps that must be visible on the caller's own stderr, then a
// re-exec into a detached session server. It returns the process exit code.
func Create(id, shellPath string, stderr *os.File) int {
	if shellPath == "" {
		shellPath = DefaultShell
	}
	if err := paths.ValidateSessionID(id); err != nil {
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}

	dir := paths.SessionDir(id)
	if err := paths.EnsureDir(dir); err != nil {
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}

	lockPath := paths.PidLock(id)
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "headlesh: open %s: %v\n", lockPath, err)
		return 1
	}
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lockFile.Close()
		if err == unix.EWOULDBLOCK {
			fmt.Fprintf(stderr, "headlesh: %v: session %q\n", errs.ErrAlreadyRunning, id)
		} else {
			fmt.Fprintf(stderr, "headlesh: lock %s: %v\n", lockPath, err)
		}
		return 1
	}

	fifoPath := paths.CmdFifo(id)
	os.Remove(fifoPath)
	if err := unix.Mkfifo(fifoPath, 0o666); err != nil {
		lockFile.Close()
		fmt.Fprintf(stderr, "headlesh: create %s: %v\n", fifoPath, err)
		return 1
	}

	logPath, err := paths.LogFile(id)
	if err != nil {
		lockFile.Close()
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}
	if err := paths.EnsureDir(filepath.Dir(logPath)); err != nil {
		lockFile.Close()
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	readyR, readyW, err := os.Pipe()
	if err != nil {
		lockFile.Close()
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		fmt.Fprintf(stderr, "headlesh: %v\n", err)
		return 1
	}
	defer devnull.Close()

	cmd := exec.Command(exe, "create", id, shellPath)
	cmd.Env = append(os.Environ(),
		DaemonChildEnv+"=1",
		callerCwdEnv+"="+cwd,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = devnull
	cmd.Stdout = stderr
	cmd.Stderr = stderr
	// The lock fd lands at fd 3, the ready-pipe write end at fd 4, in the
	// child's descriptor table (Go numbers ExtraFiles sequentially from 3).
	cmd.ExtraFiles = []*os.File{lockFile, readyW}

	if err := cmd.Start(); err != nil {
		lockFile.Close()
		fmt.Fprintf(stderr, "headlesh: start detached server: %v\n", err)
		return 1
	}
	readyW.Close()
	lockFile.Close() // our copy; the child's dup (fd 3) keeps the lock held

	line, err := bufio.NewReader(readyR).ReadString('\n')
	readyR.Close()
	if err != nil {
		fmt.Fprintf(stderr, "headlesh: detached server gave no status: %v\n", err)
		return 1
	}
	line = strings.TrimRight(line, "\n")
	if line != "OK" {
		fmt.Fprintf(stderr, "headlesh: %s\n", strings.TrimPrefix(line, "ERR: "))
		return 1
	}

	return 0
}

// RunDetached is the detached half: it runs entirely inside the re-exec'd,
// session-leader process, finishes bootstrap, reports readiness on the
// inherited status pipe, then blocks in the listen loop until the session
// shuts down. It returns the process exit code, though by the time this
// process exits nothing is waiting on it.
func RunDetached(id, shellPath string) int {
	lockFile := os.NewFile(3, paths.PidLock(id))
	readyW := os.NewFile(4, "ready")

	// fail reports bootstrap failure to the foreground Create invocation and
	// unwinds whatever rendezvous state bootstrap had already published
	// (cmd.fifo, pid.lock, meta.yaml), so a fresh `create` isn't left
	// stepping around stale files from a server that never reached the
	// listen loop.
	fail := func(err error) int {
		fmt.Fprintf(readyW, "ERR: %v\n", err)
		readyW.Close()
		os.Remove(paths.CmdFifo(id))
		os.Remove(paths.MetaFile(id))
		lockFile.Close()
		os.Remove(paths.PidLock(id))
		os.Remove(paths.SessionDir(id))
		return 1
	}

	// The lock fd must not leak into the shell child we are about to exec.
	syscall.CloseOnExec(int(lockFile.Fd()))

	signal.Ignore(syscall.SIGHUP, syscall.SIGPIPE)

	if err := os.Chdir("/"); err != nil {
		return fail(fmt.Errorf("chdir /: %w", err))
	}
	unix.Umask(0o022)

	logPath, err := paths.LogFile(id)
	if err != nil {
		return fail(err)
	}
	logFd, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fail(fmt.Errorf("open log file: %w", err))
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fail(err)
	}
	syscall.Dup2(int(devnull.Fd()), 0)
	syscall.Dup2(int(logFd.Fd()), 1)
	syscall.Dup2(int(logFd.Fd()), 2)
	devnull.Close()
	logFd.Close()

	log := newLogger()
	defer log.Sync()

	if err := session.WritePID(lockFile, os.Getpid()); err != nil {
		return fail(err)
	}

	srv := &Server{
		id:       id,
		dir:      paths.SessionDir(id),
		cmdFifo:  paths.CmdFifo(id),
		lockPath: paths.PidLock(id),
		lockFile: lockFile,
		log:      log,
	}

	if err := session.WriteMeta(paths.MetaFile(id), session.Meta{
		Shell:     shellPath,
		CreatedAt: time.Now(),
	}); err != nil {
		log.Warnf("could not write session metadata: %v", err)
	}

	callerCwd := os.Getenv(callerCwdEnv)
	if callerCwd == "" {
		callerCwd = "/"
	}
	if err := srv.startShell(shellPath, callerCwd); err != nil {
		return fail(err)
	}

	installShutdownSignals(srv)

	fmt.Fprint(readyW, "OK\n")
	readyW.Close()

	srv.Run()
	return 0
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		// Logging is ambient; fall back to a no-op logger rather than fail
		// the whole session server over a logging misconfiguration.
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// installShutdownSignals wires SIGINT/SIGTERM to an orderly shutdown. Go
// delivers signals to a regular goroutine (not a restricted async-signal
// handler as in C), so the handler can simply call the same Shutdown path
// the listen loop uses on its own termination conditions.
func installShutdownSignals(srv *Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		srv.log.Infof("received %v, shutting down", sig)
		srv.Shutdown()
		os.Exit(0)
	}()
}
