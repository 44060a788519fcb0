package instance

import "errors"

// Sentinel errors mirroring the taxonomy in
// original_source/cli/src/instance/error.rs's InstanceError enum, ported as
// plain sentinels rather than a Rust-style closed enum since that is how the
// rest of this codebase (e.g. mbclient.ErrTimedOut) reports terminal
// conditions.
var (
	ErrAlreadyActive    = errors.New("instance: already active")
	ErrNotRunning       = errors.New("instance: not running")
	ErrCancelFailed     = errors.New("instance: failed to cancel instance")
	ErrInvalidOperation = errors.New("instance: invalid operation for this instance kind")
)
