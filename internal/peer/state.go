package peer

// HandshakeState is a peer's progress through the version/verack exchange.
type HandshakeState int

// Handshake sub-states. Initial is AwaitingVersion; terminal is Done.
const (
	AwaitingVersion HandshakeState = iota
	AwaitingVerack
	HandshakeDone
)

// String implements fmt.Stringer.
func (h HandshakeState) String() string {
	switch h {
	case AwaitingVersion:
		return "awaiting_version"
	case AwaitingVerack:
		return "awaiting_verack"
	case HandshakeDone:
		return "done"
	default:
		return "unknown"
	}
}

// SyncState is a peer's progress through initial header sync.
type SyncState int

// Sync sub-states. Initial is RequestedHeaders.
const (
	RequestedHeaders SyncState = iota
	HeadersReceived
	SyncDone
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case RequestedHeaders:
		return "requested_headers"
	case HeadersReceived:
		return "headers_received"
	case SyncDone:
		return "done"
	default:
		return "unknown"
	}
}

// Phase distinguishes the two halves of a peer's tagged-union state.
type Phase int

const (
	// PhaseHandshake is the initial version/verack exchange.
	PhaseHandshake Phase = iota
	// PhaseSynchronize is post-handshake initial header sync.
	PhaseSynchronize
)

// State is the peer state tagged union of spec §3: either Handshake(h) or
// Synchronize(s), never both meaningfully populated at once.
type State struct {
	Phase     Phase
	Handshake HandshakeState
	Sync      SyncState
}

// InHandshake returns the state Handshake(h).
func InHandshake(h HandshakeState) State {
	return State{Phase: PhaseHandshake, Handshake: h}
}

// InSynchronize returns the state Synchronize(s).
func InSynchronize(s SyncState) State {
	return State{Phase: PhaseSynchronize, Sync: s}
}

// IsPostHandshake reports whether the state is Handshake(Done) or any
// Synchronize(_) — the condition under which a peer belongs in the
// connected set and has contributed a clock sample.
func (s State) IsPostHandshake() bool {
	return s.Phase == PhaseSynchronize || (s.Phase == PhaseHandshake && s.Handshake == HandshakeDone)
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s.Phase == PhaseHandshake {
		return "handshake(" + s.Handshake.String() + ")"
	}
	return "synchronize(" + s.Sync.String() + ")"
}
