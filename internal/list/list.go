// Package list enumerates the rendezvous root to report running, stale,
// and indeterminate sessions without going through any session's command
// channel.
package list

import (
	"os"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/ianremillard/headlesh/internal/paths"
	"github.com/ianremillard/headlesh/internal/session"
)

// Status classifies a session directory by whether its recorded pid still
// answers to a liveness probe.
type Status int

const (
	// Live means the pid in pid.lock answered unix.Kill(pid, 0) with no
	// error: a process with that pid exists and is signalable by us.
	Live Status = iota
	// Stale means the probe returned ESRCH: no such process.
	Stale
	// Unknown means the probe returned any other error, most commonly
	// EPERM (a process with that pid exists but belongs to another user).
	// A stale session never produces EPERM for a pid we created ourselves,
	// so Unknown is reported distinctly rather than folded into Live.
	Unknown
)

func (st Status) String() string {
	switch st {
	case Live:
		return "running"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Entry describes one session directory found under the rendezvous root.
type Entry struct {
	ID     string
	PID    int
	Status Status
	Meta   session.Meta // zero value if meta.yaml is absent or unparseable
}

// Enumerate lists every session directory under the rendezvous root,
// probing each recorded pid for liveness. A session directory that cannot
// be read (e.g. pid.lock missing entirely, perhaps removed concurrently by
// its own shutdown) is skipped rather than reported with an error, since a
// vanishing entry mid-scan is an ordinary race, not a failure of the scan
// itself.
func Enumerate() ([]Entry, error) {
	root := paths.RendezvousRoot()
	dirEntries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		id := de.Name()

		pid, err := session.ReadPID(paths.PidLock(id))
		if err != nil {
			continue
		}

		e := Entry{
			ID:     id,
			PID:    pid,
			Status: probePID(pid),
		}
		if m, err := session.ReadMeta(paths.MetaFile(id)); err == nil {
			e.Meta = m
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// probePID classifies pid by sending it the null signal. ESRCH is the only
// outcome that means "definitely gone"; every other error, including
// EPERM, leaves the question open.
func probePID(pid int) Status {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return Live
	case err == unix.ESRCH:
		return Stale
	default:
		return Unknown
	}
}
