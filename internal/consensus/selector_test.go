package consensus

import (
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/ledger"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
)

func TestSelector_Refresh_ExcludesBelowMinimumStake(t *testing.T) {
	s := NewSelector(1000)
	below := ledger.Validator{Address: crypto.KeyPairFromSeed("below").Address(), Stake: 500}
	above := ledger.Validator{Address: crypto.KeyPairFromSeed("above").Address(), Stake: 1000}

	s.Refresh([]ledger.Validator{below, above}, 0)

	if s.RotationSize() != 1 {
		t.Fatalf("RotationSize() = %d, want 1 (only the above-minimum validator)", s.RotationSize())
	}
}

func TestSelector_Refresh_WeightsByStake(t *testing.T) {
	s := NewSelector(100)
	base := ledger.Validator{Address: crypto.KeyPairFromSeed("base").Address(), Stake: 100}
	triple := ledger.Validator{Address: crypto.KeyPairFromSeed("triple").Address(), Stake: 300}

	s.Refresh([]ledger.Validator{base, triple}, 0)

	if s.RotationSize() != 4 {
		t.Fatalf("RotationSize() = %d, want 4 (1 + 3)", s.RotationSize())
	}
}

func TestSelector_Refresh_ExcludesJailedUntilExpiry(t *testing.T) {
	s := NewSelector(100)
	jailed := ledger.Validator{
		Address:     crypto.KeyPairFromSeed("jailed").Address(),
		Stake:       1000,
		Jailed:      true,
		JailedUntil: 50,
	}

	s.Refresh([]ledger.Validator{jailed}, 10)
	if s.RotationSize() != 0 {
		t.Errorf("RotationSize() = %d, want 0 while still jailed", s.RotationSize())
	}

	s.Refresh([]ledger.Validator{jailed}, 50)
	if s.RotationSize() != 1 {
		t.Errorf("RotationSize() = %d, want 1 once jail term expires", s.RotationSize())
	}
}

func TestSelector_SelectProposer_Deterministic(t *testing.T) {
	s := NewSelector(100)
	v := ledger.Validator{Address: crypto.KeyPairFromSeed("only").Address(), Stake: 100}
	s.Refresh([]ledger.Validator{v}, 0)

	a := s.SelectProposer(5, "seedA", v.Address)
	b := s.SelectProposer(5, "seedA", v.Address)
	if a != b {
		t.Error("SelectProposer should be deterministic for the same (height, seed)")
	}
}

func TestSelector_SelectProposer_FallsBackWhenEmpty(t *testing.T) {
	s := NewSelector(100)
	fallback := crypto.KeyPairFromSeed("fallback").Address()

	got := s.SelectProposer(1, "seed", fallback)
	if got != fallback {
		t.Errorf("SelectProposer() = %v, want fallback %v", got, fallback)
	}
}
