package peer

import (
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// disconnectedCacheSize bounds how many disconnected-peer records are kept
// for bookkeeping. Spec §3 only requires the record be "kept for optional
// bookkeeping"; an unbounded map would let a churning network grow memory
// without limit, so the disconnected set is an LRU of this size.
const disconnectedCacheSize = 4096

// Record is a single peer's connection-scoped data: spec §3's peer record.
type Record struct {
	Remote     net.Addr
	Local      net.Addr
	Height     int32 // best known height; non-negative, monotonic non-decreasing once set
	TimeOffset int64 // peer clock minus local clock, in seconds, sampled at handshake
	Link       Link
	State      State
	LastActive *time.Time // nil until the first Received event
}

// NewRecord creates a record for a freshly connected peer, in the initial
// handshake sub-state.
func NewRecord(remote, local net.Addr, link Link) *Record {
	return &Record{
		Remote: remote,
		Local:  local,
		Link:   link,
		State:  InHandshake(AwaitingVersion),
	}
}

// Table is the peer table of spec §3: records keyed by ID, plus the
// disjoint connected/disconnected sets.
type Table struct {
	records      map[ID]*Record
	connected    map[ID]struct{}
	disconnected *lru.Cache // ID -> struct{}, bounded bookkeeping only
}

// NewTable returns an empty peer table.
func NewTable() *Table {
	cache, err := lru.New(disconnectedCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// compile-time constant here.
		panic(err)
	}
	return &Table{
		records:      make(map[ID]*Record),
		connected:    make(map[ID]struct{}),
		disconnected: cache,
	}
}

// Insert adds or replaces the record for id.
func (t *Table) Insert(id ID, r *Record) {
	t.records[id] = r
	t.disconnected.Remove(id)
}

// Get returns the record for id, if known.
func (t *Table) Get(id ID) (*Record, bool) {
	r, ok := t.records[id]
	return r, ok
}

// Len returns the number of peers known to the table (connected,
// handshaking, or kept around as disconnected bookkeeping).
func (t *Table) Len() int {
	return len(t.records)
}

// Connect marks id as handshake-complete.
func (t *Table) Connect(id ID) {
	t.connected[id] = struct{}{}
	t.disconnected.Remove(id)
}

// Disconnect moves id from connected into the bounded disconnected set. The
// record itself is retained in the table.
func (t *Table) Disconnect(id ID) {
	delete(t.connected, id)
	t.disconnected.Add(id, struct{}{})
}

// Connected reports whether id has completed its handshake.
func (t *Table) Connected(id ID) bool {
	_, ok := t.connected[id]
	return ok
}

// Disconnected reports whether id's last known state was failure.
func (t *Table) Disconnected(id ID) bool {
	return t.disconnected.Contains(id)
}

// ConnectedCount returns the number of handshake-complete peers.
func (t *Table) ConnectedCount() int {
	return len(t.connected)
}

// ConnectedIDs returns the IDs of all handshake-complete peers, in no
// particular order.
func (t *Table) ConnectedIDs() []ID {
	ids := make([]ID, 0, len(t.connected))
	for id := range t.connected {
		ids = append(ids, id)
	}
	return ids
}

// MinKnownHeight returns the lowest Height among all known peer records
// and whether any peer is known at all.
func (t *Table) MinKnownHeight() (int32, bool) {
	var (
		min   int32
		first = true
	)
	for _, r := range t.records {
		if first || r.Height < min {
			min = r.Height
			first = false
		}
	}
	return min, !first
}
