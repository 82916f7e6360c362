// Package client implements the two one-shot counterparties of the session
// server's wire protocol: the exec client (submit a script, stream back its
// output and exit status) and the exit client (request shutdown).
package client

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/ianremillard/headlesh/internal/errs"
	"github.com/ianremillard/headlesh/internal/paths"
	"github.com/ianremillard/headlesh/internal/wire"
)

// StatusTimeout is how long Exec waits for the status pipe to produce a
// value before giving up.
const StatusTimeout = 60 * time.Second

// Exec submits script to the named session, copies its stdout/stderr to the
// given writers as they arrive, and returns the script's reported exit
// code. A non-nil error always pairs with a returned code of 1; callers
// that care about the script's real exit status should check err first.
func Exec(sessionID string, script []byte, stdout, stderr io.Writer) (int, error) {
	pid := os.Getpid()
	outPath := paths.RequestPipeBase("out", pid)
	errPath := paths.RequestPipeBase("err", pid)
	statusPath := paths.RequestPipeBase("status", pid)

	maxScript := wire.MaxScriptLen(len(outPath), len(errPath), len(statusPath))
	if len(script) > maxScript {
		return 1, fmt.Errorf("%w: script is %d bytes, limit is %d", errs.ErrEnvelopeTooLarge, len(script), maxScript)
	}

	for _, p := range []string{outPath, errPath, statusPath} {
		os.Remove(p)
	}

	stopSignalCleanup := installSignalCleanup(outPath, errPath, statusPath)
	defer stopSignalCleanup()

	if err := unix.Mkfifo(outPath, 0o666); err != nil {
		return 1, fmt.Errorf("create output pipe: %w", err)
	}
	defer os.Remove(outPath)

	if err := unix.Mkfifo(errPath, 0o666); err != nil {
		return 1, fmt.Errorf("create error pipe: %w", err)
	}
	defer os.Remove(errPath)

	if err := unix.Mkfifo(statusPath, 0o666); err != nil {
		return 1, fmt.Errorf("create status pipe: %w", err)
	}
	defer os.Remove(statusPath)

	envelope := wire.Encode(wire.Envelope{
		OutPath:    outPath,
		ErrPath:    errPath,
		StatusPath: statusPath,
		Script:     script,
	})

	if err := submitEnvelope(sessionID, envelope); err != nil {
		return 1, err
	}

	outFile, err := os.OpenFile(outPath, os.O_RDONLY, 0)
	if err != nil {
		return 1, fmt.Errorf("open output pipe: %w", err)
	}
	errFile, err := os.OpenFile(errPath, os.O_RDONLY, 0)
	if err != nil {
		outFile.Close()
		return 1, fmt.Errorf("open error pipe: %w", err)
	}

	// Drain stdout and stderr concurrently rather than multiplexing a
	// single select()/poll() loop over both descriptors.
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, outFile)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(stderr, errFile)
		return err
	})
	copyErr := g.Wait()
	outFile.Close()
	errFile.Close()
	if copyErr != nil {
		return 1, fmt.Errorf("read script output: %w", copyErr)
	}

	return readStatus(statusPath)
}

// submitEnvelope writes data to the session's command channel with a
// single write call, as the protocol requires for atomicity.
func submitEnvelope(sessionID string, data []byte) error {
	fifoPath := paths.CmdFifo(sessionID)
	f, err := os.OpenFile(fifoPath, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", errs.ErrRendezvousMissing, sessionID)
		}
		return err
	}
	defer f.Close()

	n, err := f.Write(data)
	if err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("partial envelope write (%d/%d bytes)", n, len(data))
	}
	return nil
}

// readStatus opens the status pipe and parses the single decimal value it
// carries, giving up after StatusTimeout.
func readStatus(path string) (int, error) {
	type opened struct {
		f   *os.File
		err error
	}
	ch := make(chan opened, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		ch <- opened{f, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return 1, fmt.Errorf("open status pipe: %w", o.err)
		}
		defer o.f.Close()
		data, err := io.ReadAll(io.LimitReader(o.f, 64))
		if err != nil {
			return 1, fmt.Errorf("read status pipe: %w", err)
		}
		return parseStatus(data)
	case <-time.After(StatusTimeout):
		return 1, errs.ErrStatusTimeout
	}
}

// parseStatus accepts leading decimal digits and optional trailing
// whitespace; anything else is a parse failure. The result is truncated to
// a uint8, matching how a POSIX shell reports $? for statuses outside
// [0,255].
func parseStatus(data []byte) (int, error) {
	s := string(data)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 1, errs.ErrStatusParse
	}
	if strings.TrimSpace(s[i:]) != "" {
		return 1, errs.ErrStatusParse
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 1, errs.ErrStatusParse
	}
	return int(uint8(n)), nil
}
