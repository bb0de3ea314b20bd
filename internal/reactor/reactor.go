// Package reactor implements the concurrent I/O layer (spec component C5):
// a reader goroutine per peer, a single writer goroutine, and a dispatch
// loop that is the only caller of the protocol engine's Step method. The
// engine itself never touches a socket; the reactor is where events and
// outbound messages actually cross a wire.
package reactor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nakamoto-go/nakamoto/internal/engine"
	"github.com/nakamoto-go/nakamoto/internal/peer"
	"github.com/nakamoto-go/nakamoto/internal/wire"
	"github.com/nakamoto-go/nakamoto/internal/wire/payload"
)

// IdleTimeout is the read/write deadline applied to every peer connection;
// a peer silent for this long is treated as a transport failure.
const IdleTimeout = 5 * time.Minute

// PingInterval bounds how long the dispatch loop waits with nothing to
// dispatch before checking for idle peers to ping.
const PingInterval = 60 * time.Second

// ReaderBufferSize sizes each peer's buffered reader. The prototype this
// reactor is adapted from sized its reader *threads'* stacks at 1 MiB, since
// it spawned one OS thread per peer; goroutines don't take a stack-size
// argument, so the same budget is spent here instead, on the per-peer read
// buffer.
const ReaderBufferSize = 1024 * 1024

// eventQueueDepth is the event and command channels' capacity. The
// prototype this is adapted from used a bounded channel of depth 1 for the
// same reason: a full channel applies backpressure all the way to the TCP
// socket, so a slow dispatch loop throttles reads rather than buffering
// unboundedly.
const eventQueueDepth = 1

// Command is an instruction the dispatch loop gives to the writer
// goroutine.
type Command struct {
	Kind    CommandKind
	Peer    peer.ID
	Message wire.Message
}

// CommandKind tags a Command's variant.
type CommandKind int

const (
	// CmdWrite asks the writer to encode and send Message to Peer.
	CmdWrite CommandKind = iota
	// CmdDisconnect asks the writer to close and drop Peer's connection.
	CmdDisconnect
	// CmdQuit asks the writer goroutine to return.
	CmdQuit
)

// Reactor owns the peer connections and runs the engine's dispatch loop. It
// is not safe for concurrent use beyond the reader/writer goroutines it
// manages internally; callers drive it with Run (typically in its own
// goroutine) and stop it with Close.
type Reactor struct {
	eng    *engine.Engine
	codec  *wire.Codec
	log    *zap.Logger
	metric *Metrics

	events chan engine.Event
	cmds   chan Command
	quit   chan struct{}

	mu    sync.Mutex
	conns map[peer.ID]net.Conn

	readers sync.WaitGroup
	writer  sync.WaitGroup
}

// New returns a Reactor driving eng over network, logging through log (a
// no-op logger is used if nil), and publishing metrics to reg.
func New(eng *engine.Engine, network wire.Network, log *zap.Logger, reg Registerer) *Reactor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reactor{
		eng:    eng,
		codec:  wire.NewCodec(network),
		log:    log,
		metric: NewMetrics(reg),
		events: make(chan engine.Event, eventQueueDepth),
		cmds:   make(chan Command, eventQueueDepth),
		quit:   make(chan struct{}),
		conns:  make(map[peer.ID]net.Conn),
	}
}

// Dial connects outbound to addr and starts its reader goroutine.
func (r *Reactor) Dial(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, IdleTimeout)
	if err != nil {
		return fmt.Errorf("reactor: dial %s: %w", addr, err)
	}
	r.addConn(conn, peer.Outbound)
	return nil
}

// Accept registers an inbound connection and starts its reader goroutine.
// Callers obtain conn from a net.Listener; the reactor takes ownership of
// it from this point on.
func (r *Reactor) Accept(conn net.Conn) {
	r.addConn(conn, peer.Inbound)
}

func (r *Reactor) addConn(conn net.Conn, link peer.Link) {
	id := peer.IDFromAddr(conn.RemoteAddr())

	r.mu.Lock()
	r.conns[id] = conn
	r.mu.Unlock()

	runID := uuid.New().String()
	log := r.log.With(zap.String("peer", string(id)), zap.String("run_id", runID))

	r.readers.Add(1)
	go r.readLoop(conn, link, log)
}

// readLoop is the per-peer reader goroutine: it decodes frames off conn and
// delivers them to the dispatch loop as events, until the connection fails
// or is closed by Close.
func (r *Reactor) readLoop(conn net.Conn, link peer.Link, log *zap.Logger) {
	defer r.readers.Done()

	remote, local := conn.RemoteAddr(), conn.LocalAddr()
	id := peer.IDFromAddr(remote)
	br := bufio.NewReaderSize(conn, ReaderBufferSize)

	log.Debug("peer connected", zap.Stringer("link", link))
	r.events <- engine.Connected(remote, local, link)
	r.metric.peersConnected.Inc()
	defer r.metric.peersConnected.Dec()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(IdleTimeout)); err != nil {
			r.events <- engine.ErrorEvent(id, fmt.Errorf("%w: %v", engine.ErrTransportFailed, err))
			return
		}

		msg, err := r.codec.Decode(br)
		if err != nil {
			log.Debug("read failed", zap.Error(err))
			r.metric.decodeErrors.Inc()
			r.events <- engine.ErrorEvent(id, classifyDecodeErr(err))
			return
		}

		r.metric.messagesReceived.WithLabelValues(string(msg.Command)).Inc()
		r.events <- engine.Received(id, msg)
	}
}

// writeLoop is the reactor's single writer goroutine: every outbound frame
// for every peer passes through it, which keeps per-connection write
// ordering simple and gives metrics one place to observe all outbound
// traffic.
func (r *Reactor) writeLoop() {
	defer r.writer.Done()

	for cmd := range r.cmds {
		switch cmd.Kind {
		case CmdWrite:
			r.write(cmd.Peer, cmd.Message)
		case CmdDisconnect:
			r.drop(cmd.Peer)
		case CmdQuit:
			return
		}
	}
}

func (r *Reactor) write(id peer.ID, msg wire.Message) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	r.mu.Unlock()
	if !ok {
		return
	}

	var framed bytes.Buffer
	if err := r.codec.Encode(&framed, msg); err != nil {
		r.events <- engine.ErrorEvent(id, fmt.Errorf("%w: %v", engine.ErrTransportFailed, err))
		return
	}

	if err := conn.SetWriteDeadline(time.Now().Add(IdleTimeout)); err != nil {
		r.events <- engine.ErrorEvent(id, fmt.Errorf("%w: %v", engine.ErrTransportFailed, err))
		return
	}

	n, err := conn.Write(framed.Bytes())
	if err != nil {
		r.events <- engine.ErrorEvent(id, fmt.Errorf("%w: %v", engine.ErrTransportFailed, err))
		return
	}

	r.metric.messagesSent.WithLabelValues(string(msg.Command)).Inc()
	r.metric.bytesWritten.Add(float64(n))
	r.events <- engine.Sent(id, n)
}

func (r *Reactor) drop(id peer.ID) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Run starts the writer goroutine and the dispatch loop, blocking until
// Close is called or the engine returns a fatal error. It is the only
// caller of Engine.Step, and the only goroutine that pings idle peers.
func (r *Reactor) Run() error {
	r.writer.Add(1)
	go r.writeLoop()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			r.cmds <- Command{Kind: CmdQuit}
			return nil

		case event := <-r.events:
			out, err := r.eng.Step(event)
			if err != nil {
				r.log.Error("fatal engine error", zap.Error(err))
				r.cmds <- Command{Kind: CmdQuit}
				return err
			}

			for _, o := range out {
				r.cmds <- Command{Kind: CmdWrite, Peer: o.Peer, Message: o.Message}
			}
			if event.Kind == engine.EventError {
				r.cmds <- Command{Kind: CmdDisconnect, Peer: event.Peer}
			}

		case <-ticker.C:
			r.pingIdlePeers()
		}
	}
}

// pingIdlePeers sends a ping to every connected peer the engine hasn't
// heard from in at least IdleTimeout. Keepalive traffic is a reactor
// concern, not a protocol state transition, so it bypasses Engine.Step
// entirely.
func (r *Reactor) pingIdlePeers() {
	now := time.Now()
	for _, id := range r.eng.ConnectedPeers() {
		rec, ok := r.eng.Peer(id)
		if !ok || rec.LastActive == nil || now.Sub(*rec.LastActive) < IdleTimeout {
			continue
		}

		msg, err := pingMessage()
		if err != nil {
			continue
		}
		r.cmds <- Command{Kind: CmdWrite, Peer: id, Message: msg}
	}
}

// Close disconnects every peer connection and waits for their reader
// goroutines to finish, then stops the dispatch loop and writer goroutine.
func (r *Reactor) Close() {
	r.mu.Lock()
	conns := make([]net.Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	r.readers.Wait()

	close(r.quit)
	r.writer.Wait()
}

func classifyDecodeErr(err error) error {
	switch {
	case errors.Is(err, wire.ErrMagicMismatch):
		return fmt.Errorf("%w: %v", engine.ErrMagicMismatch, err)
	case errors.Is(err, wire.ErrMessageTooLarge):
		return fmt.Errorf("%w: %v", engine.ErrDecodeFailed, err)
	default:
		return fmt.Errorf("%w: %v", engine.ErrTransportFailed, err)
	}
}

// pingMessage builds a zero-nonce ping frame. The engine never correlates
// pongs back to a specific ping, so there is nothing to gain from a random
// nonce here.
func pingMessage() (wire.Message, error) {
	var buf bytes.Buffer
	p := payload.Ping{Nonce: 0}
	if err := p.Encode(&buf); err != nil {
		return wire.Message{}, err
	}
	return wire.Message{Command: wire.CmdPing, Payload: buf.Bytes()}, nil
}
