// Package errs holds the sentinel errors shared across headlesh's
// packages, so callers can branch with errors.Is instead of matching
// strings.
package errs

import "errors"

var (
	// ErrAlreadyRunning means pid.lock is held by another session server.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrRendezvousMissing means the target session's cmd.fifo does not
	// exist (the session is not running).
	ErrRendezvousMissing = errors.New("session not running")

	// ErrEnvelopeTooLarge means a script would make the envelope exceed
	// wire.EnvelopeMax.
	ErrEnvelopeTooLarge = errors.New("script exceeds envelope size limit")

	// ErrStatusTimeout means the exec client's wait for the status pipe
	// exceeded the status timeout.
	ErrStatusTimeout = errors.New("timed out waiting for exit status")

	// ErrStatusParse means the status channel did not contain a leading
	// decimal integer.
	ErrStatusParse = errors.New("could not parse exit status")

	// ErrInvalidSessionID means the session id was empty or contained a
	// path separator.
	ErrInvalidSessionID = errors.New("invalid session id")
)
