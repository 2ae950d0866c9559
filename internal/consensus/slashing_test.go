package consensus

import (
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

func hashN(n byte) types.Hash {
	var h types.Hash
	h[len(h)-1] = n
	return h
}

func TestSlashingDetector_FirstObservationIsNotEvidence(t *testing.T) {
	d := NewSlashingDetector()
	validator := crypto.KeyPairFromSeed("v").Address()

	evidence, found := d.Observe(10, validator, hashN(1))
	if found || evidence != nil {
		t.Error("a single observation should never produce evidence")
	}
}

func TestSlashingDetector_RepeatedSameHashIsNotEvidence(t *testing.T) {
	d := NewSlashingDetector()
	validator := crypto.KeyPairFromSeed("v").Address()
	hash := hashN(1)

	d.Observe(10, validator, hash)
	evidence, found := d.Observe(10, validator, hash)
	if found || evidence != nil {
		t.Error("repeating the same hash at the same height should not produce evidence")
	}
}

func TestSlashingDetector_DistinctHashSameHeightIsDoubleSign(t *testing.T) {
	d := NewSlashingDetector()
	validator := crypto.KeyPairFromSeed("v").Address()
	hashA := hashN(1)
	hashB := hashN(2)

	d.Observe(10, validator, hashA)
	evidence, found := d.Observe(10, validator, hashB)
	if !found || evidence == nil {
		t.Fatal("a second distinct hash at the same height should produce evidence")
	}
	if evidence.Validator != validator || evidence.Height != 10 {
		t.Errorf("evidence = %+v, want validator=%v height=10", evidence, validator)
	}
	if len(evidence.BlockHashes) != 2 {
		t.Errorf("evidence.BlockHashes has %d entries, want 2", len(evidence.BlockHashes))
	}
}

func TestSlashingDetector_DifferentHeightsDoNotConflict(t *testing.T) {
	d := NewSlashingDetector()
	validator := crypto.KeyPairFromSeed("v").Address()

	d.Observe(10, validator, hashN(1))
	_, found := d.Observe(11, validator, hashN(2))
	if found {
		t.Error("distinct heights should never conflict")
	}
}

func TestSlashingDetector_Forget(t *testing.T) {
	d := NewSlashingDetector()
	validator := crypto.KeyPairFromSeed("v").Address()
	d.Observe(10, validator, hashN(1))

	d.Forget(10)
	// After forgetting height 10, a distinct hash there should look like a
	// fresh first observation rather than a conflict.
	_, found := d.Observe(10, validator, hashN(2))
	if found {
		t.Error("Forget should drop tracked votes, resetting double-sign detection for that height")
	}
}
