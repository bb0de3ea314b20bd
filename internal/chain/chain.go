// Package chain declares the block-tree collaborator the protocol engine
// consumes. Its internals, chain validation rules, and storage are out of
// scope for this core (spec §1); the engine only ever sees this interface.
package chain

import (
	"crypto/sha256"

	"github.com/nakamoto-go/nakamoto/internal/wire/payload"
)

// Hash is a block or header hash.
type Hash [32]byte

// BlockTree is the reference block-tree abstraction of spec §3/§6: current
// height, current tip, and a header-import operation.
type BlockTree interface {
	// Height returns the current chain height.
	Height() uint32
	// Tip returns the current tip's hash.
	Tip() Hash
	// ImportBlocks validates and appends headers, returning the new tip and
	// height on success or a ValidationError on rejection.
	ImportBlocks(headers []payload.BlockHeader) (Hash, uint32, error)
}

// ValidationError wraps a rejection from ImportBlocks. The engine treats it
// as fatal only for the peer that sent the headers, per spec §7; any other
// error from ImportBlocks is a fatal engine condition.
type ValidationError struct {
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "chain: validation rejected: " + e.Err.Error()
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BlockHash computes the double-SHA256 hash of a header's raw 80-byte
// serialization, the reference client's block-hashing scheme.
func BlockHash(h payload.BlockHeader) Hash {
	raw := h.Bytes()
	first := sha256.Sum256(raw[:])
	return Hash(sha256.Sum256(first[:]))
}
