package engine

import "errors"

// Error kinds observable to the engine, per spec §7. NotConnected is
// handled locally (it only ever changes global state). MagicMismatch,
// DecodeFailed and TransportFailed are per-peer: the caller wraps a
// transport- or codec-level failure in one of these and delivers it as an
// Event::Error, which this package never returns to its own caller as a
// process-fatal error.
var (
	// ErrNotConnected means no peers are known when checking sync.
	ErrNotConnected = errors.New("engine: not connected to any peers")
	// ErrDecodeFailed wraps a codec decode failure.
	ErrDecodeFailed = errors.New("engine: decode failed")
	// ErrMagicMismatch wraps a network-magic mismatch.
	ErrMagicMismatch = errors.New("engine: magic mismatch")
	// ErrTransportFailed wraps a socket-level failure.
	ErrTransportFailed = errors.New("engine: transport failed")
)

// Fatal engine conditions: Step returns these as errors, and the caller
// (the reactor, or a test) must treat a non-nil error as fatal for the
// process — the engine itself never aborts, since it must stay a pure
// function of its prior state and the event (spec §4.4).
var (
	// ErrUnknownPeer means a Received event named a peer the engine has no
	// record for — an engine invariant violation.
	ErrUnknownPeer = errors.New("engine: received event for unknown peer")
	// ErrTreeFailure wraps a block-tree error that is not a validation
	// rejection (chain.ValidationError); spec §7 treats this as fatal.
	ErrTreeFailure = errors.New("engine: block tree failure")
)
