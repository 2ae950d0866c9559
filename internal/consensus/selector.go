// Package consensus implements proposer selection and misbehavior detection
// for the proof-of-stake engine: a stake-weighted rotation (Selector) and a
// double-sign detector (SlashingDetector).
package consensus

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/ledger"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Selector picks a block proposer by stake-weighted sampling over the
// active validator set. The rotation is rebuilt whenever the validator set
// changes (core/pos.py's ProofOfStake._update_rotation); selection itself
// is a pure function of height and seed so every node computes the same
// proposer without exchanging messages.
type Selector struct {
	mu                sync.RWMutex
	rotation          []types.Address // multiset, weighted by stake
	minValidatorStake uint64
}

// NewSelector creates a selector requiring minValidatorStake base units of
// combined stake for a validator to be eligible for rotation.
func NewSelector(minValidatorStake uint64) *Selector {
	return &Selector{minValidatorStake: minValidatorStake}
}

// Refresh rebuilds the rotation from the ledger's current validator set and
// the given height (used to evaluate jail expiry via Validator.Active).
// Let u be the minimum stake among active validators; each active
// validator contributes max(1, floor(stake/u)) entries (spec.md §4.6).
func (s *Selector) Refresh(validators []ledger.Validator, height uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]ledger.Validator, 0, len(validators))
	for _, v := range validators {
		if v.Active(height, s.minValidatorStake) {
			active = append(active, v)
		}
	}

	// Canonical order so identical validator sets always produce an
	// identical rotation slice, regardless of map iteration order.
	sort.Slice(active, func(i, j int) bool {
		return active[i].Address.String() < active[j].Address.String()
	})

	s.rotation = nil
	if len(active) == 0 {
		return
	}

	minStake := active[0].Stake + active[0].DelegatedStake
	for _, v := range active[1:] {
		total := v.Stake + v.DelegatedStake
		if total < minStake {
			minStake = total
		}
	}
	if minStake == 0 {
		minStake = s.minValidatorStake
	}

	for _, v := range active {
		total := v.Stake + v.DelegatedStake
		weight := total / minStake
		if weight < 1 {
			weight = 1
		}
		for i := uint64(0); i < weight; i++ {
			s.rotation = append(s.rotation, v.Address)
		}
	}
}

// SelectProposer deterministically picks a proposer for height, using seed
// to vary selection across forks that share a height (typically the
// previous block hash). index = int(sha256(f"{height}{seed}"),16) mod
// len(rotation) (spec.md §4.6, core/pos.py's select_proposer — sha256 here,
// not Keccak256; the selector's hash input is a raw decimal/hex string, not
// canonical JSON, so it follows the reference's literal hashlib.sha256 use
// rather than pkg/crypto's Keccak256 convention used for tx/state hashing).
// fallback supplies the "first known account" degenerate path when no
// validator exists at all.
func (s *Selector) SelectProposer(height uint64, seed string, fallback types.Address) types.Address {
	s.mu.RLock()
	rotation := s.rotation
	s.mu.RUnlock()

	if len(rotation) == 0 {
		return fallback
	}

	hashInput := fmt.Sprintf("%d%s", height, seed)
	sum := sha256.Sum256([]byte(hashInput))
	idx := new(big.Int).SetBytes(sum[:])
	idx.Mod(idx, big.NewInt(int64(len(rotation))))
	return rotation[idx.Int64()]
}

// RotationSize returns the number of entries in the current rotation
// (weighted count, not validator count) — useful for diagnostics/logging.
func (s *Selector) RotationSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rotation)
}
