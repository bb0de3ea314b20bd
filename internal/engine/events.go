package engine

import (
	"net"

	"github.com/nakamoto-go/nakamoto/internal/peer"
	"github.com/nakamoto-go/nakamoto/internal/wire"
)

// EventKind tags an Event's variant.
type EventKind int

// The event taxonomy of spec §4.4.
const (
	EventConnected EventKind = iota
	EventReceived
	EventSent
	EventError
)

// Event is the single input to Engine.Step. Only the fields relevant to
// Kind are meaningful; it is a tagged union rather than an interface so the
// engine's event log stays a plain, comparable value in tests.
type Event struct {
	Kind EventKind

	// EventConnected
	Remote net.Addr
	Local  net.Addr
	Link   peer.Link

	// EventReceived, EventSent, EventError all carry a known Peer.
	Peer peer.ID

	// EventReceived
	Message wire.Message

	// EventSent
	Bytes int

	// EventError
	Err error
}

// Connected builds an EventConnected.
func Connected(remote, local net.Addr, link peer.Link) Event {
	return Event{Kind: EventConnected, Remote: remote, Local: local, Link: link}
}

// Received builds an EventReceived.
func Received(id peer.ID, msg wire.Message) Event {
	return Event{Kind: EventReceived, Peer: id, Message: msg}
}

// Sent builds an EventSent.
func Sent(id peer.ID, nbytes int) Event {
	return Event{Kind: EventSent, Peer: id, Bytes: nbytes}
}

// ErrorEvent builds an EventError.
func ErrorEvent(id peer.ID, err error) Event {
	return Event{Kind: EventError, Peer: id, Err: err}
}

// Outbound is a single (peer, message) pair the engine wants written.
type Outbound struct {
	Peer    peer.ID
	Message wire.Message
}
