package ledger

import (
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
)

var testRules = config.MainnetGenesis().Protocol.Consensus

func TestGetOrCreateAccount_ZeroValued(t *testing.T) {
	l := New()
	addr := crypto.KeyPairFromSeed("alice").Address()
	acc := l.GetOrCreateAccount(addr)
	if acc.Balance != 0 || acc.Nonce != 0 || acc.Staked != 0 {
		t.Error("fresh account should be zero-valued")
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	l := New()
	from := crypto.KeyPairFromSeed("alice").Address()
	to := crypto.KeyPairFromSeed("bob").Address()
	if l.Transfer(from, to, 100) {
		t.Error("transfer should fail with zero balance")
	}
}

func TestTransfer_Success(t *testing.T) {
	l := New()
	from := crypto.KeyPairFromSeed("alice").Address()
	to := crypto.KeyPairFromSeed("bob").Address()
	l.Credit(from, 1000)
	if !l.Transfer(from, to, 400) {
		t.Fatal("transfer should succeed")
	}
	if l.Balance(from) != 600 || l.Balance(to) != 400 {
		t.Errorf("balances after transfer: from=%d to=%d", l.Balance(from), l.Balance(to))
	}
}

func TestTotalSupplyAndStakingRatio(t *testing.T) {
	l := New()
	alice := crypto.KeyPairFromSeed("alice").Address()
	l.Credit(alice, 1000)
	acc := l.GetOrCreateAccount(alice)
	acc.Staked = 400
	acc.Balance -= 400 // model a prior stake debit without a tx

	if got := l.TotalSupply(); got != 1000 {
		t.Errorf("TotalSupply() = %d, want 1000", got)
	}
	if got := l.TotalStaked(); got != 400 {
		t.Errorf("TotalStaked() = %d, want 400", got)
	}
	if got := l.StakingRatio(); got != 0.4 {
		t.Errorf("StakingRatio() = %v, want 0.4", got)
	}
}

func TestStakingRatio_ZeroSupply(t *testing.T) {
	l := New()
	if l.StakingRatio() != 0 {
		t.Error("StakingRatio() on empty ledger should be 0")
	}
}

func TestProcessMatureUnbonding(t *testing.T) {
	l := New()
	delegator := crypto.KeyPairFromSeed("alice").Address()
	l.unbonding = []UnbondingEntry{
		{Delegator: delegator, Amount: 500, CompletionHeight: 10},
		{Delegator: delegator, Amount: 300, CompletionHeight: 20},
	}

	completed := l.ProcessMatureUnbonding(10)
	if completed != 1 {
		t.Fatalf("ProcessMatureUnbonding(10) = %d, want 1", completed)
	}
	if l.Balance(delegator) != 500 {
		t.Errorf("balance after maturing = %d, want 500", l.Balance(delegator))
	}
	if len(l.unbonding) != 1 {
		t.Errorf("remaining unbonding entries = %d, want 1", len(l.unbonding))
	}

	completed = l.ProcessMatureUnbonding(20)
	if completed != 1 || len(l.unbonding) != 0 {
		t.Error("second entry should mature and drain the queue")
	}
}

func TestSlashValidator(t *testing.T) {
	l := New()
	addr := crypto.KeyPairFromSeed("validator").Address()
	l.validators[addr] = &Validator{Address: addr, Stake: 1000}

	slashed := l.SlashValidator(addr, 5, "double_sign")
	if slashed != 50 {
		t.Errorf("SlashValidator slashed = %d, want 50", slashed)
	}
	if l.validators[addr].Stake != 950 {
		t.Errorf("stake after slash = %d, want 950", l.validators[addr].Stake)
	}
}

func TestSlashValidator_UnknownIsNoop(t *testing.T) {
	l := New()
	addr := crypto.KeyPairFromSeed("nobody").Address()
	if slashed := l.SlashValidator(addr, 5, "double_sign"); slashed != 0 {
		t.Errorf("SlashValidator on unknown validator = %d, want 0", slashed)
	}
}

func TestJailValidator(t *testing.T) {
	l := New()
	addr := crypto.KeyPairFromSeed("validator").Address()
	l.validators[addr] = &Validator{Address: addr, Stake: 1000}

	l.JailValidator(addr, 500)
	val := l.Validator(addr)
	if !val.Jailed || val.JailedUntil != 500 {
		t.Error("validator should be jailed until 500")
	}
}

func TestValidator_Active(t *testing.T) {
	v := &Validator{Stake: 1000, DelegatedStake: 0}
	if !v.Active(100, 1000) {
		t.Error("validator at exactly the minimum should be active")
	}
	if v.Active(100, 1001) {
		t.Error("validator below minimum should not be active")
	}

	v.Jailed = true
	v.JailedUntil = 200
	if v.Active(100, 1000) {
		t.Error("jailed validator before JailedUntil should not be active")
	}
	if !v.Active(200, 1000) {
		t.Error("validator should regain activity once height reaches JailedUntil")
	}
}
