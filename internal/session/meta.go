// Package session handles the descriptive meta.yaml sidecar written once at
// session bootstrap and the pid.lock contents shared by the server and the
// list enumerator.
//
// Neither file is part of the wire protocol: a session with no meta.yaml,
// or one that fails to parse, degrades silently to the bare listing.
package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Meta is the content of a session's meta.yaml sidecar.
type Meta struct {
	Shell     string    `yaml:"shell"`
	CreatedAt time.Time `yaml:"created_at"`
}

// WriteMeta writes meta.yaml to path. Called once during bootstrap, before
// the command channel is opened for listening.
func WriteMeta(path string, m Meta) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session metadata %s: %w", path, err)
	}
	return nil
}

// ReadMeta reads and parses meta.yaml at path. Callers should treat any
// error as "no metadata available" rather than a hard failure.
func ReadMeta(path string) (Meta, error) {
	var m Meta
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse session metadata %s: %w", path, err)
	}
	return m, nil
}

// WritePID truncates f (the pid.lock file, already open read/write and
// locked by the caller) and writes pid as decimal ASCII followed by a newline.
func WritePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate pid lock: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek pid lock: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		return fmt.Errorf("write pid lock: %w", err)
	}
	return nil
}

// ReadPID reads and parses the PID from a pid.lock file's contents.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse pid from %s: %w", path, err)
	}
	return pid, nil
}
