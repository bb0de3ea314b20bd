// Package engine implements the protocol engine (spec component C4): a
// pure, transport-agnostic state machine that owns the peer table, the
// network-adjusted clock, and global sync state, and advances by consuming
// one Event per Step call.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sort"

	"go.uber.org/zap"

	"github.com/nakamoto-go/nakamoto/internal/chain"
	"github.com/nakamoto-go/nakamoto/internal/clock"
	"github.com/nakamoto-go/nakamoto/internal/peer"
	"github.com/nakamoto-go/nakamoto/internal/wire"
	"github.com/nakamoto-go/nakamoto/internal/wire/payload"
)

// PeerConnectionThreshold is the minimum number of handshake-complete peers
// before the engine makes a sync decision (spec glossary).
const PeerConnectionThreshold = 3

// SyncThreshold is the maximum block gap below which the node considers
// itself synced (spec glossary).
const SyncThreshold = 144

// Phase is the engine's global protocol state.
type Phase int

// Global states.
const (
	Connecting Phase = iota
	InitialSync
	Synced
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case InitialSync:
		return "initial_sync"
	case Synced:
		return "synced"
	default:
		return "unknown"
	}
}

// State is the engine's current global state: a Phase, plus the designated
// IBD peer when Phase is InitialSync.
type State struct {
	Phase    Phase
	SyncPeer peer.ID
}

// Engine is the pure protocol state machine of spec component C4. It
// performs no I/O: every read of the system clock goes through source, and
// every random choice goes through rng, both supplied at construction so
// tests can pin them.
type Engine struct {
	cfg    Config
	tree   chain.BlockTree
	source clock.Source
	rng    RNG
	log    *zap.Logger

	table    *peer.Table
	adjusted *clock.Adjusted
	state    State
}

// New returns an Engine in its initial Connecting state.
func New(cfg Config, tree chain.BlockTree, source clock.Source, rng RNG, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Engine{
		cfg:      cfg,
		tree:     tree,
		source:   source,
		rng:      rng,
		log:      log,
		table:    peer.NewTable(),
		adjusted: clock.New(source),
		state:    State{Phase: Connecting},
	}
}

// State returns the engine's current global state.
func (e *Engine) State() State {
	return e.state
}

// Clock returns the network-adjusted clock the engine feeds from
// handshake samples.
func (e *Engine) Clock() *clock.Adjusted {
	return e.adjusted
}

// Peer returns the record for id, if known. Exposed for inspection by
// callers and tests; the engine is the only mutator.
func (e *Engine) Peer(id peer.ID) (*peer.Record, bool) {
	return e.table.Get(id)
}

// ConnectedPeers returns the IDs of all handshake-complete peers. The
// reactor uses this to decide who needs an idle ping; the engine itself
// has no notion of keepalives.
func (e *Engine) ConnectedPeers() []peer.ID {
	return e.table.ConnectedIDs()
}

// Step advances the engine by one event and returns the outbound messages
// it produced. A non-nil error means an engine invariant was violated
// (unknown peer, non-validation tree failure) and is fatal for the
// process; the caller is responsible for aborting, since Step itself never
// performs I/O or process control.
func (e *Engine) Step(event Event) ([]Outbound, error) {
	var (
		out []Outbound
		err error
	)

	switch event.Kind {
	case EventConnected:
		out = e.handleConnected(event)
	case EventReceived:
		out, err = e.handleReceived(event)
	case EventSent:
		// Accounting only; no state change.
	case EventError:
		e.handleError(event)
	}
	if err != nil {
		return nil, err
	}

	e.reevaluateGlobalState()

	return out, nil
}

func (e *Engine) handleConnected(event Event) []Outbound {
	id := peer.IDFromAddr(event.Remote)
	rec := peer.NewRecord(event.Remote, event.Local, event.Link)
	e.table.Insert(id, rec)

	e.log.Debug("peer connected", zap.String("peer", string(id)), zap.Stringer("link", event.Link))

	if event.Link == peer.Outbound {
		return []Outbound{{Peer: id, Message: e.versionMessage(rec)}}
	}
	return nil
}

func (e *Engine) handleError(event Event) {
	e.log.Debug("peer error", zap.String("peer", string(event.Peer)), zap.Error(event.Err))
	e.disconnectPeer(event.Peer)
}

func (e *Engine) disconnectPeer(id peer.ID) {
	e.table.Disconnect(id)
	e.adjusted.RemoveSample(id)
}

func (e *Engine) handleReceived(event Event) ([]Outbound, error) {
	rec, ok := e.table.Get(event.Peer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, event.Peer)
	}

	now := e.source.Now()
	rec.LastActive = &now

	switch rec.State.Phase {
	case peer.PhaseHandshake:
		return e.receiveHandshake(event.Peer, rec, event.Message), nil
	case peer.PhaseSynchronize:
		return e.receiveSync(event.Peer, rec, event.Message)
	default:
		return nil, nil
	}
}

func (e *Engine) receiveHandshake(id peer.ID, rec *peer.Record, msg wire.Message) []Outbound {
	switch rec.State.Handshake {
	case peer.AwaitingVersion:
		if msg.Command != wire.CmdVersion {
			return nil // not matching the current sub-state: discard
		}
		var v payload.Version
		if err := v.Decode(bytes.NewReader(msg.Payload)); err != nil {
			e.log.Debug("malformed version payload", zap.String("peer", string(id)), zap.Error(err))
			e.disconnectPeer(id)
			return nil
		}
		if v.StartHeight < 0 {
			e.log.Debug("negative start height in version", zap.String("peer", string(id)))
			e.disconnectPeer(id)
			return nil
		}

		rec.Height = v.StartHeight
		rec.TimeOffset = v.Timestamp - e.source.Now().Unix()
		e.transition(id, rec, peer.InHandshake(peer.AwaitingVerack))

		if rec.Link == peer.Inbound {
			return []Outbound{
				{Peer: id, Message: e.versionMessage(rec)},
				{Peer: id, Message: wire.Message{Command: wire.CmdVerack}},
			}
		}
		return nil

	case peer.AwaitingVerack:
		if msg.Command != wire.CmdVerack {
			return nil
		}
		e.transition(id, rec, peer.InHandshake(peer.HandshakeDone))
		e.table.Connect(id)
		e.adjusted.AddSample(id, rec.TimeOffset)

		if rec.Link == peer.Outbound {
			return []Outbound{{Peer: id, Message: wire.Message{Command: wire.CmdVerack}}}
		}
		return nil

	case peer.HandshakeDone:
		// First post-handshake message: transition into sync, but this
		// message itself is not dispatched as a sync message.
		e.transition(id, rec, peer.InSynchronize(peer.RequestedHeaders))
		return nil
	}
	return nil
}

func (e *Engine) receiveSync(id peer.ID, rec *peer.Record, msg wire.Message) ([]Outbound, error) {
	if rec.State.Sync == peer.SyncDone {
		return nil, nil // terminal: discard
	}
	if msg.Command != wire.CmdHeaders {
		return nil, nil
	}

	var h payload.Headers
	if err := h.Decode(bytes.NewReader(msg.Payload)); err != nil {
		e.log.Debug("malformed headers payload", zap.String("peer", string(id)), zap.Error(err))
		e.disconnectPeer(id)
		return nil, nil
	}

	if len(h.Headers) == 0 {
		e.transition(id, rec, peer.InSynchronize(peer.SyncDone))
		return nil, nil
	}

	_, height, err := e.tree.ImportBlocks(h.Headers)
	if err != nil {
		var verr *chain.ValidationError
		if errors.As(err, &verr) {
			e.log.Debug("header import rejected", zap.String("peer", string(id)), zap.Error(err))
			e.disconnectPeer(id)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrTreeFailure, err)
	}

	if int32(height) > rec.Height {
		rec.Height = int32(height)
	}
	e.transition(id, rec, peer.InSynchronize(peer.HeadersReceived))
	return nil, nil
}

func (e *Engine) transition(id peer.ID, rec *peer.Record, next peer.State) {
	e.log.Debug("peer state transition",
		zap.String("peer", string(id)),
		zap.Stringer("from", rec.State),
		zap.Stringer("to", next))
	rec.State = next
}

// reevaluateGlobalState applies spec §4.4's post-event global state rules.
func (e *Engine) reevaluateGlobalState() {
	if e.table.ConnectedCount() >= PeerConnectionThreshold {
		minHeight, ok := e.table.MinKnownHeight()
		if !ok {
			e.state = State{Phase: Connecting}
		} else {
			height := e.tree.Height()
			if int64(height) >= int64(minHeight) || int64(minHeight)-int64(height) <= SyncThreshold {
				e.state = State{Phase: Synced}
			} else {
				e.state = State{Phase: InitialSync, SyncPeer: e.pickSyncPeer()}
			}
		}
	}

	if e.table.Len() == 0 {
		e.state = State{Phase: Connecting}
	}
}

// pickSyncPeer chooses uniformly at random among connected peers. IDs are
// sorted first so the choice is a deterministic function of the RNG's
// output alone, not of map iteration order.
func (e *Engine) pickSyncPeer() peer.ID {
	ids := e.table.ConnectedIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[e.rng.Intn(len(ids))]
}

func (e *Engine) versionMessage(rec *peer.Record) wire.Message {
	now := e.source.Now()
	v := payload.Version{
		ProtocolVersion: e.cfg.ProtocolVersion,
		Services:        e.cfg.Services,
		Timestamp:       now.Unix(),
		Receiver: payload.NetAddr{
			Services: payload.ServiceNetwork | payload.ServiceCompactFilters,
			IP:       addrIP(rec.Remote),
			Port:     addrPort(rec.Remote),
		},
		Sender: payload.NetAddr{
			Services: payload.ServiceNone,
			IP:       addrIP(rec.Local),
			Port:     addrPort(rec.Local),
		},
		Nonce:       0,
		UserAgent:   e.cfg.UserAgent,
		StartHeight: int32(e.tree.Height()),
		Relay:       e.cfg.Relay,
	}

	var buf bytes.Buffer
	_ = v.Encode(&buf) // encoding into a bytes.Buffer never fails
	return wire.Message{Command: wire.CmdVersion, Payload: buf.Bytes()}
}

func addrIP(addr net.Addr) net.IP {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return net.IPv4zero
	}
	return net.ParseIP(host)
}

func addrPort(addr net.Addr) uint16 {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	var p int
	fmt.Sscanf(port, "%d", &p)
	return uint16(p)
}
