// Package merkle builds and verifies the transaction merkle tree used in
// block headers. The hash combine step mirrors hash_object: two hex digest
// strings are concatenated as text and re-hashed through HashObject, not
// concatenated as raw bytes, so the root matches the reference
// implementation's MerkleTree bit for bit.
package merkle

import (
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// EmptyRoot is the tx root of a block with no transactions.
var EmptyRoot = crypto.MustHashObject(types.HashObjectSentinel)

func combine(left, right types.Hash) types.Hash {
	return crypto.MustHashObject(left.String() + right.String())
}

// Root computes the merkle root over the given leaf hashes (transaction
// hashes, in block order). An empty block hashes the EMPTY_BLOCK sentinel.
func Root(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return EmptyRoot
	}
	if len(leaves) == 1 {
		return leaves[0]
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = combine(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}

// Side records which side of a combine step a proof sibling sits on.
type Side int

const (
	Left Side = iota
	Right
)

// ProofStep is one sibling hash on the path from a leaf to the root.
type ProofStep struct {
	Hash types.Hash
	Side Side
}

// Tree retains every level so Proof can be computed for any leaf index
// without recomputing the whole tree.
type Tree struct {
	leaves []types.Hash
	levels [][]types.Hash
	root   types.Hash
}

// Build constructs a Tree over leaves, recording every intermediate level
// so that Proof(index) can be produced cheaply.
func Build(leaves []types.Hash) *Tree {
	t := &Tree{leaves: append([]types.Hash(nil), leaves...)}
	if len(leaves) == 0 {
		t.root = EmptyRoot
		return t
	}
	if len(leaves) == 1 {
		t.root = leaves[0]
		return t
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		t.levels = append(t.levels, append([]types.Hash(nil), level...))
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = combine(level[i], level[i+1])
		}
		level = next
	}
	t.root = level[0]
	return t
}

// Root returns the tree's root hash.
func (t *Tree) Root() types.Hash {
	return t.root
}

// Proof returns the sibling path for the leaf at index, from leaf to root.
func (t *Tree) Proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= len(t.leaves) {
		return nil, fmt.Errorf("merkle: index %d out of range [0,%d)", index, len(t.leaves))
	}

	var proof []ProofStep
	idx := index
	for _, level := range t.levels {
		var siblingIdx int
		var side Side
		if idx%2 == 0 {
			siblingIdx = idx + 1
			side = Right
		} else {
			siblingIdx = idx - 1
			side = Left
		}
		if siblingIdx < len(level) {
			proof = append(proof, ProofStep{Hash: level[siblingIdx], Side: side})
		}
		idx /= 2
	}
	return proof, nil
}

// VerifyProof checks that leaf, combined along proof, reproduces root.
func VerifyProof(leaf types.Hash, proof []ProofStep, root types.Hash) bool {
	current := leaf
	for _, step := range proof {
		if step.Side == Left {
			current = combine(step.Hash, current)
		} else {
			current = combine(current, step.Hash)
		}
	}
	return current == root
}
