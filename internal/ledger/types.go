// Package ledger implements the account-based state machine: balances,
// nonces, staking, validators, and deterministic state commitment. It is
// the account-model generalization of the reference node's
// storage/ledger.py, with no teacher equivalent (the teacher tracks state
// as a UTXO set, not accounts).
package ledger

import "github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"

// Account holds one address's balance, nonce, staking, and contract state.
// Accounts are materialized lazily on first touch; there is no explicit
// "account creation" transaction.
type Account struct {
	Address types.Address
	Balance uint64
	Nonce   uint64
	Staked  uint64

	// Contract state. Zero-valued for externally-owned accounts.
	IsContract      bool
	ContractCode    []byte
	ContractCodeHash types.Hash
	ContractStorage map[types.Hash]types.Hash
	ContractCreator types.Address
	ContractCreatedAt uint64
}

// Validator is an active or formerly-active stake-backed block producer.
type Validator struct {
	Address         types.Address
	PublicKey       []byte
	Stake           uint64
	DelegatedStake  uint64
	CommissionRate  float64
	Jailed          bool
	JailedUntil     uint64
	CreatedAt       uint64
	BlocksProposed  uint64
	BlocksMissed    uint64
}

// Active reports whether the validator is eligible for proposer selection:
// not jailed (or its jail term has expired) and still above the minimum
// combined self-stake + delegated stake, per spec.md §3.
func (v *Validator) Active(height, minValidatorStake uint64) bool {
	notJailed := !v.Jailed || height >= v.JailedUntil
	return notJailed && v.Stake+v.DelegatedStake >= minValidatorStake
}

// Delegation records stake a delegator has assigned to a validator, kept
// distinct from the validator's own self-stake so undelegation returns
// funds to the delegator rather than the validator.
type Delegation struct {
	Delegator types.Address
	Validator types.Address
	Amount    uint64
}

// UnbondingEntry is a pending balance return, maturing at CompletionHeight.
type UnbondingEntry struct {
	Delegator        types.Address
	Amount           uint64
	CompletionHeight uint64
}
