// Package producer implements the node's block production and incoming
// block commit paths: proposer selection, mempool draining, ledger
// application, header signing, and atomic persistence (spec.md §4.10).
package producer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/storage"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/block"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Key prefixes and meta keys for the block store, grounded on
// internal/chain/store.go's BlockStore layout (block-by-hash, height
// index, tip metadata) with the UTXO-era undo/reorg/difficulty keys
// dropped — a PoS chain here only ever appends, it never reorganizes.
var (
	prefixBlock  = []byte("b/") // b/<hash(32)> -> block JSON
	prefixHeight = []byte("h/") // h/<height(8)> -> hash(32)

	keyTipHash     = []byte("s/tip")
	keyTipHeight   = []byte("s/height")
	keyTotalMinted = []byte("s/minted")
)

// Store persists committed blocks and the chain tip to a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a block store backed by db.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func blockKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixBlock)+types.HashSize)
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash[:])
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], height)
	return key
}

// Commit persists blk, indexes it by height, and advances the chain tip
// and total-minted counter, all through one Batch so the update is
// visible all-at-once or not at all (spec.md §4.10's atomic-commit rule).
func (s *Store) Commit(blk *block.Block, totalMinted uint64) error {
	data, err := json.Marshal(blk)
	if err != nil {
		return fmt.Errorf("producer: marshal block: %w", err)
	}
	hash := blk.Hash()

	batcher, ok := s.db.(storage.Batcher)
	if !ok {
		// No atomic batch support (e.g. a minimal test double): fall back
		// to sequential puts, best-effort.
		if err := s.db.Put(blockKey(hash), data); err != nil {
			return err
		}
		if err := s.db.Put(heightKey(blk.Height()), hash[:]); err != nil {
			return err
		}
		return s.setTipLocked(blk.Height(), hash, totalMinted)
	}

	b := batcher.NewBatch()
	if err := b.Put(blockKey(hash), data); err != nil {
		return fmt.Errorf("producer: batch block: %w", err)
	}
	if err := b.Put(heightKey(blk.Height()), hash[:]); err != nil {
		return fmt.Errorf("producer: batch height index: %w", err)
	}
	if err := b.Put(keyTipHash, hash[:]); err != nil {
		return fmt.Errorf("producer: batch tip hash: %w", err)
	}
	var heightBuf, mintedBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], blk.Height())
	binary.BigEndian.PutUint64(mintedBuf[:], totalMinted)
	if err := b.Put(keyTipHeight, heightBuf[:]); err != nil {
		return fmt.Errorf("producer: batch tip height: %w", err)
	}
	if err := b.Put(keyTotalMinted, mintedBuf[:]); err != nil {
		return fmt.Errorf("producer: batch total minted: %w", err)
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("producer: commit batch: %w", err)
	}
	return nil
}

func (s *Store) setTipLocked(height uint64, hash types.Hash, totalMinted uint64) error {
	if err := s.db.Put(keyTipHash, hash[:]); err != nil {
		return err
	}
	var heightBuf, mintedBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], height)
	binary.BigEndian.PutUint64(mintedBuf[:], totalMinted)
	if err := s.db.Put(keyTipHeight, heightBuf[:]); err != nil {
		return err
	}
	return s.db.Put(keyTotalMinted, mintedBuf[:])
}

// GetBlock retrieves a committed block by hash.
func (s *Store) GetBlock(hash types.Hash) (*block.Block, error) {
	data, err := s.db.Get(blockKey(hash))
	if err != nil {
		return nil, fmt.Errorf("producer: get block: %w", err)
	}
	var blk block.Block
	if err := json.Unmarshal(data, &blk); err != nil {
		return nil, fmt.Errorf("producer: unmarshal block: %w", err)
	}
	return &blk, nil
}

// GetBlockByHeight retrieves a committed block by height.
func (s *Store) GetBlockByHeight(height uint64) (*block.Block, error) {
	hashBytes, err := s.db.Get(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("producer: get height index: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return nil, fmt.Errorf("producer: corrupt height index: got %d bytes", len(hashBytes))
	}
	var hash types.Hash
	copy(hash[:], hashBytes)
	return s.GetBlock(hash)
}

// Tip returns the chain's current height, tip hash, and total coins
// minted so far. A fresh chain (no blocks committed) returns all zeros.
func (s *Store) Tip() (height uint64, hash types.Hash, totalMinted uint64) {
	hashBytes, err := s.db.Get(keyTipHash)
	if err != nil || len(hashBytes) != types.HashSize {
		return 0, types.Hash{}, 0
	}
	copy(hash[:], hashBytes)

	heightBytes, err := s.db.Get(keyTipHeight)
	if err == nil && len(heightBytes) == 8 {
		height = binary.BigEndian.Uint64(heightBytes)
	}

	mintedBytes, err := s.db.Get(keyTotalMinted)
	if err == nil && len(mintedBytes) == 8 {
		totalMinted = binary.BigEndian.Uint64(mintedBytes)
	}
	return height, hash, totalMinted
}
