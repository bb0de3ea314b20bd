// Package boltchain is a bbolt-backed block tree collaborator: the
// persistent counterpart to memchain, used by cmd/node so a restarted node
// keeps its synced header chain. The engine never imports this package
// directly — it only ever sees chain.BlockTree.
package boltchain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/nakamoto-go/nakamoto/internal/chain"
	"github.com/nakamoto-go/nakamoto/internal/wire/payload"
)

var (
	bucketMeta    = []byte("meta")
	bucketHeaders = []byte("headers")
	keyTip        = []byte("tip")
	keyHeight     = []byte("height")
)

// ErrNonContiguous is the cause wrapped in a chain.ValidationError when an
// imported header's PrevBlock does not match the current tip.
var ErrNonContiguous = errors.New("boltchain: header does not extend the current tip")

// Chain is a bbolt-backed chain.BlockTree implementation.
type Chain struct {
	mu     sync.Mutex
	db     *bolt.DB
	tip    chain.Hash
	height uint32
}

// Open opens (creating if necessary) a bbolt database at path and returns a
// Chain rooted at genesis if the database is empty.
func Open(path string, genesis chain.Hash) (*Chain, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltchain: open %s: %w", path, err)
	}

	c := &Chain{db: db, tip: genesis}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketHeaders); err != nil {
			return err
		}

		if raw := meta.Get(keyTip); raw != nil {
			copy(c.tip[:], raw)
			// keyHeight is only written by the first non-empty import.
			if rawHeight := meta.Get(keyHeight); rawHeight != nil {
				c.height = binary.LittleEndian.Uint32(rawHeight)
			}
			return nil
		}
		return meta.Put(keyTip, genesis[:])
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltchain: init: %w", err)
	}
	return c, nil
}

// Close releases the underlying database handle.
func (c *Chain) Close() error {
	return c.db.Close()
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
	if len(headers) == 0 {
		return tip, height, nil
	}

	err := c.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		hdrs := tx.Bucket(bucketHeaders)

		h := height - uint32(len(headers))
		for i := range headers {
			h++
			var key [4]byte
			binary.LittleEndian.PutUint32(key[:], h)
			raw := headers[i].Bytes()
			if err := hdrs.Put(key[:], raw[:]); err != nil {
				return err
			}
		}

		if err := meta.Put(keyTip, tip[:]); err != nil {
			return err
		}
		var heightRaw [4]byte
		binary.LittleEndian.PutUint32(heightRaw[:], height)
		return meta.Put(keyHeight, heightRaw[:])
	})
	if err != nil {
		return chain.Hash{}, 0, fmt.Errorf("boltchain: persist: %w", err)
	}

	c.tip, c.height = tip, height
	return tip, height, nil
}
