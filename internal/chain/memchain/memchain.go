// Package memchain is an in-memory reference implementation of the block
// tree collaborator, used by tests and the simulator. It performs no real
// chain validation — only contiguity checking — since full validation is
// out of scope for this core (spec §1).
package memchain

import (
	"errors"
	"sync"

	"github.com/nakamoto-go/nakamoto/internal/chain"
	"github.com/nakamoto-go/nakamoto/internal/wire/payload"
)

// ErrNonContiguous is the cause wrapped in a chain.ValidationError when an
// imported header's PrevBlock does not match the current tip.
var ErrNonContiguous = errors.New("memchain: header does not extend the current tip")

// Chain is a minimal in-memory block tree rooted at a caller-supplied
// genesis hash.
type Chain struct {
	mu     sync.Mutex
	tip    chain.Hash
	height uint32
}

// New returns a Chain starting at genesis (height 0, tip genesis).
func New(genesis chain.Hash) *Chain {
	return &Chain{tip: genesis}
}

// Height implements chain.BlockTree.
func (c *Chain) Height() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Tip implements chain.BlockTree.
func (c *Chain) Tip() chain.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

// ImportBlocks implements chain.BlockTree.
func (c *Chain) ImportBlocks(headers []payload.BlockHeader) (chain.Hash, uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip, height := c.tip, c.height
	for i := range headers {
		if headers[i].PrevBlock != tip {
			return chain.Hash{}, 0, &chain.ValidationError{Err: ErrNonContiguous}
		}
		tip = chain.BlockHash(headers[i])
		height++
	}

	c.tip, c.height = tip, height
	return tip, height, nil
}
