package payload

import (
	"bytes"
	"errors"
	"io"
)

// ErrBadHeaderPadding is returned when a headers message's trailing
// tx-count byte is not zero, as the reference client guarantees it always
// is for a headers-only message.
var ErrBadHeaderPadding = errors.New("payload: header padding byte must be zero")

// BlockHeader is the fixed 80-byte block header carried by a headers
// message. Its fields are opaque to this core: validating them is the block
// tree collaborator's job.
type BlockHeader struct {
	Version    int32
	PrevBlock  [32]byte
	MerkleRoot [32]byte
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

func (h *BlockHeader) encode(w *writer) {
	w.write(h.Version)
	w.write(h.PrevBlock)
	w.write(h.MerkleRoot)
	w.write(h.Timestamp)
	w.write(h.Bits)
	w.write(h.Nonce)
}

// Bytes returns the fixed 80-byte raw serialization of the header, the form
// hashed to produce a block hash.
func (h *BlockHeader) Bytes() [80]byte {
	var buf bytes.Buffer
	bw := &writer{w: &buf}
	h.encode(bw)
	var out [80]byte
	copy(out[:], buf.Bytes())
	return out
}

func (h *BlockHeader) decode(r *reader) {
	r.read(&h.Version)
	r.read(&h.PrevBlock)
	r.read(&h.MerkleRoot)
	r.read(&h.Timestamp)
	r.read(&h.Bits)
	r.read(&h.Nonce)
}

// Headers is the payload of a headers message: a count-prefixed vector of
// 80-byte headers, each followed by a zero tx-count byte. An empty Headers
// means "no more headers to send" (end of initial sync for that peer).
type Headers struct {
	Headers []BlockHeader
}

// Encode writes the headers payload to w.
func (h *Headers) Encode(w io.Writer) error {
	bw := &writer{w: w}
	bw.varUint(uint64(len(h.Headers)))
	for i := range h.Headers {
		h.Headers[i].encode(bw)
		bw.write(uint8(0))
	}
	return bw.err
}

// Decode reads a headers payload from r.
func (h *Headers) Decode(r io.Reader) error {
	br := &reader{r: r}
	n := br.varUint()
	h.Headers = make([]BlockHeader, n)
	for i := range h.Headers {
		h.Headers[i].decode(br)
		var padding uint8
		br.read(&padding)
		if br.err == nil && padding != 0 {
			return ErrBadHeaderPadding
		}
	}
	return br.err
}
