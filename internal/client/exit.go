package client

import "github.com/ianremillard/headlesh/internal/wire"

// dummyPipePath is used to fill the envelope's three path fields when
// submitting the exit sentinel: the session server reads the sentinel and
// shuts down before any of these paths would ever be opened, so they need
// only satisfy ValidatePath.
const dummyPipePath = "/dev/null"

// SubmitExit asks the named session to shut down by writing the exit
// sentinel to its command channel. It does not wait for the shutdown to
// complete; the command channel disappearing is the caller's signal that
// it did.
func SubmitExit(sessionID string) error {
	envelope := wire.Encode(wire.Envelope{
		OutPath:    dummyPipePath,
		ErrPath:    dummyPipePath,
		StatusPath: dummyPipePath,
		Script:     []byte(wire.ExitSentinel),
	})
	return submitEnvelope(sessionID, envelope)
}
