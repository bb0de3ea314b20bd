package engine_test

import (
	"net"

	"github.com/nakamoto-go/nakamoto/internal/engine"
	"github.com/nakamoto-go/nakamoto/internal/peer"
)

// node pairs a simulated network address with the engine bound to it. The
// address doubles as the node's identity: when a node dials or accepts a
// connection, the other side will always key that peer by this address.
type node struct {
	addr net.Addr
	eng  *engine.Engine
}

// seed is a single event owed to a node at the start of the simulation.
type seed struct {
	to    string
	event engine.Event
}

// runSimulation drives a set of engines to quiescence exactly like the
// reference prototype's in-memory simulator: every Step's outbound
// messages become Received events queued for their recipient, addressed as
// coming from the sending node, and the loop continues until no node has
// pending events.
//
// Unlike a real reactor, this never touches a socket or a goroutine: it is
// the deterministic, single-threaded harness the engine's purity is meant
// to make possible.
func runSimulation(nodes []node, seeds []seed) {
	byAddr := make(map[string]node, len(nodes))
	for _, n := range nodes {
		byAddr[n.addr.String()] = n
	}

	type queued struct {
		to    string
		event engine.Event
	}
	pending := make([]queued, 0, len(seeds))
	for _, s := range seeds {
		pending = append(pending, queued{to: s.to, event: s.event})
	}

	for len(pending) > 0 {
		batch := pending
		pending = nil

		for _, q := range batch {
			n, ok := byAddr[q.to]
			if !ok {
				panic("simulator: event addressed to unknown node " + q.to)
			}

			out, err := n.eng.Step(q.event)
			if err != nil {
				panic("simulator: fatal engine error at " + q.to + ": " + err.Error())
			}

			sender := peer.IDFromAddr(n.addr)
			for _, o := range out {
				pending = append(pending, queued{
					to:    string(o.Peer),
					event: engine.Received(sender, o.Message),
				})
			}
		}
	}
}
