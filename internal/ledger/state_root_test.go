package ledger

import (
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
)

func TestStateRoot_Deterministic(t *testing.T) {
	l1 := New()
	l2 := New()
	alice := crypto.KeyPairFromSeed("alice").Address()
	bob := crypto.KeyPairFromSeed("bob").Address()

	for _, l := range []*Ledger{l1, l2} {
		l.Credit(alice, 1000)
		l.Credit(bob, 2000)
		l.IncrementNonce(alice)
	}

	if l1.StateRoot() != l2.StateRoot() {
		t.Error("StateRoot should be deterministic across identical ledgers")
	}
}

func TestStateRoot_ChangesWithState(t *testing.T) {
	l := New()
	alice := crypto.KeyPairFromSeed("alice").Address()
	before := l.StateRoot()
	l.Credit(alice, 1000)
	after := l.StateRoot()
	if before == after {
		t.Error("StateRoot should change when account state changes")
	}
}

func TestStateRoot_EmptyLedger(t *testing.T) {
	l := New()
	if l.StateRoot().IsZero() {
		t.Error("StateRoot of an empty ledger should still hash to a non-zero digest (hash of {})")
	}
}
