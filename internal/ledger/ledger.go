package ledger

import (
	"sort"
	"sync"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Ledger is the node's full account/validator state at a given height.
// All accessors are safe for concurrent use; ApplyTransaction (apply.go)
// mutates state and must be serialized with reads by the caller holding
// no lock of its own — Ledger does its own locking.
type Ledger struct {
	mu sync.RWMutex

	accounts   map[types.Address]*Account
	validators map[types.Address]*Validator
	delegations []Delegation
	unbonding   []UnbondingEntry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts:   make(map[types.Address]*Account),
		validators: make(map[types.Address]*Validator),
	}
}

// GetOrCreateAccount returns the account at addr, materializing a
// zero-valued one on first touch.
func (l *Ledger) GetOrCreateAccount(addr types.Address) *Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getOrCreateAccountLocked(addr)
}

func (l *Ledger) getOrCreateAccountLocked(addr types.Address) *Account {
	acc, ok := l.accounts[addr]
	if !ok {
		acc = &Account{Address: addr}
		l.accounts[addr] = acc
	}
	return acc
}

// Balance returns addr's spendable balance.
func (l *Ledger) Balance(addr types.Address) uint64 {
	return l.GetOrCreateAccount(addr).Balance
}

// Nonce returns addr's next expected transaction nonce.
func (l *Ledger) Nonce(addr types.Address) uint64 {
	return l.GetOrCreateAccount(addr).Nonce
}

// Staked returns addr's self-staked balance.
func (l *Ledger) Staked(addr types.Address) uint64 {
	return l.GetOrCreateAccount(addr).Staked
}

// Validator returns the validator record at addr, or nil if addr is not
// (or is no longer) a validator.
func (l *Ledger) Validator(addr types.Address) *Validator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validators[addr]
}

// Validators returns a snapshot copy of all validator records.
func (l *Ledger) Validators() []*Validator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Validator, 0, len(l.validators))
	for _, v := range l.validators {
		cp := *v
		out = append(out, &cp)
	}
	return out
}

// Accounts returns every known address in sorted order. Used for the
// block producer's degenerate bootstrap path (spec.md §4.6: fall back to
// "the first known account" when no validator exists at all).
func (l *Ledger) Accounts() []types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.Address, 0, len(l.accounts))
	for addr := range l.accounts {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// HasSufficientBalance reports whether addr can cover amount.
func (l *Ledger) HasSufficientBalance(addr types.Address, amount uint64) bool {
	return l.Balance(addr) >= amount
}

// Transfer moves amount from one account to another with no fee and no
// nonce change, returning false (and changing nothing) when amount is 0 or
// from's balance is short. Unbonding maturation credits balances through
// ProcessMatureUnbonding, and user transfer transactions go through
// ApplyTransaction so fee/nonce rules apply uniformly.
func (l *Ledger) Transfer(from, to types.Address, amount uint64) bool {
	if amount == 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	sender := l.getOrCreateAccountLocked(from)
	if sender.Balance < amount {
		return false
	}
	recipient := l.getOrCreateAccountLocked(to)
	sender.Balance -= amount
	recipient.Balance += amount
	return true
}

// Credit adds amount to addr's balance unconditionally (block rewards,
// unbonding payouts).
func (l *Ledger) Credit(addr types.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getOrCreateAccountLocked(addr).Balance += amount
}

// IncrementNonce bumps addr's nonce by one.
func (l *Ledger) IncrementNonce(addr types.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getOrCreateAccountLocked(addr).Nonce++
}

// TotalSupply sums every account's balance plus staked amount.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for _, acc := range l.accounts {
		total += acc.Balance + acc.Staked
	}
	return total
}

// TotalStaked sums every account's staked amount.
func (l *Ledger) TotalStaked() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for _, acc := range l.accounts {
		total += acc.Staked
	}
	return total
}

// StakingRatio returns TotalStaked / TotalSupply, or 0 if supply is 0.
func (l *Ledger) StakingRatio() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var supply, staked uint64
	for _, acc := range l.accounts {
		supply += acc.Balance + acc.Staked
		staked += acc.Staked
	}
	if supply == 0 {
		return 0
	}
	return float64(staked) / float64(supply)
}

// ProcessMatureUnbonding credits every unbonding entry whose completion
// height has been reached and removes it from the pending set, returning
// the number of entries matured.
func (l *Ledger) ProcessMatureUnbonding(height uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.unbonding[:0]
	completed := 0
	for _, entry := range l.unbonding {
		if entry.CompletionHeight <= height {
			acc := l.getOrCreateAccountLocked(entry.Delegator)
			acc.Balance += entry.Amount
			completed++
		} else {
			remaining = append(remaining, entry)
		}
	}
	l.unbonding = remaining
	return completed
}

// SlashValidator deducts fractionPct percent of a validator's self-stake
// (floor division), returning the amount removed. A no-op for unknown
// validators.
func (l *Ledger) SlashValidator(addr types.Address, fractionPct uint64, reason string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	val, ok := l.validators[addr]
	if !ok {
		return 0
	}
	slashed := val.Stake * fractionPct / 100
	val.Stake -= slashed
	return slashed
}

// JailValidator marks a validator jailed until untilHeight.
func (l *Ledger) JailValidator(addr types.Address, untilHeight uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if val, ok := l.validators[addr]; ok {
		val.Jailed = true
		val.JailedUntil = untilHeight
	}
}
