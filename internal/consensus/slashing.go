package consensus

import (
	"sync"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Evidence records a validator endorsing two distinct block hashes at the
// same height.
type Evidence struct {
	Validator   types.Address
	Height      uint64
	BlockHashes []types.Hash
}

// SlashingDetector tracks, per (height, validator), the set of block
// hashes that validator has endorsed. A second distinct hash at the same
// height is double-sign evidence (core/slashing.py's SlashingDetector,
// spec.md §4.7).
type SlashingDetector struct {
	mu        sync.Mutex
	seenVotes map[uint64]map[types.Address]map[types.Hash]struct{}
}

// NewSlashingDetector creates an empty detector.
func NewSlashingDetector() *SlashingDetector {
	return &SlashingDetector{
		seenVotes: make(map[uint64]map[types.Address]map[types.Hash]struct{}),
	}
}

// Observe records that validator endorsed blockHash at height, returning
// Evidence if this is a second, distinct hash observed at that height for
// the same validator. Returns nil, false on the first (or a repeated)
// observation.
func (d *SlashingDetector) Observe(height uint64, validator types.Address, blockHash types.Hash) (*Evidence, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byValidator, ok := d.seenVotes[height]
	if !ok {
		byValidator = make(map[types.Address]map[types.Hash]struct{})
		d.seenVotes[height] = byValidator
	}

	hashes, ok := byValidator[validator]
	if !ok {
		hashes = make(map[types.Hash]struct{})
		byValidator[validator] = hashes
	}

	if len(hashes) > 0 {
		if _, alreadySeen := hashes[blockHash]; !alreadySeen {
			seen := make([]types.Hash, 0, len(hashes)+1)
			for h := range hashes {
				seen = append(seen, h)
			}
			seen = append(seen, blockHash)
			return &Evidence{Validator: validator, Height: height, BlockHashes: seen}, true
		}
		return nil, false
	}

	hashes[blockHash] = struct{}{}
	return nil, false
}

// Forget drops tracked votes for heights at or below upTo, bounding memory
// growth as the chain progresses. Not present in the reference detector
// (which never prunes), added since a long-running node otherwise retains
// one entry per height forever.
func (d *SlashingDetector) Forget(upTo uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for height := range d.seenVotes {
		if height <= upTo {
			delete(d.seenVotes, height)
		}
	}
}
