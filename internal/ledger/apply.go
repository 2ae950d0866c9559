package ledger

import (
	"errors"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Apply errors. Each names the invariant from spec.md §4.4 it enforces.
var (
	ErrInsufficientBalance     = errors.New("ledger: insufficient balance")
	ErrInsufficientStake       = errors.New("ledger: insufficient staked balance")
	ErrMissingStakeAmount      = errors.New("ledger: data.stake_amount required")
	ErrMissingUnstakeAmount    = errors.New("ledger: data.unstake_amount required")
	ErrMissingPublicKey        = errors.New("ledger: data.public_key required for first stake")
	ErrAlreadyValidator        = errors.New("ledger: sender is already a validator")
	ErrNotValidator            = errors.New("ledger: sender is not a validator")
	ErrMissingDelegateTarget   = errors.New("ledger: data.validator required")
	ErrMissingDelegateAmount   = errors.New("ledger: data.amount required")
	ErrInsufficientDelegation  = errors.New("ledger: insufficient delegated balance")
	ErrBatchCostExceedsBalance = errors.New("ledger: batch_transfer total cost exceeds balance")
	ErrUnsupportedTxType       = errors.New("ledger: unsupported tx_type")
)

// ContractExecutor is the seam into internal/evm. The ledger computes the
// deploy address and debits/credits balances; the executor runs bytecode
// and reports gas used plus success/failure.
type ContractExecutor interface {
	// Deploy runs constructor bytecode for a freshly-computed contract
	// address, returning the gas it consumed.
	Deploy(contract types.Address, bytecode []byte, value uint64, gasLimit uint64) (gasUsed uint64, err error)
	// Call invokes an existing contract, returning the gas it consumed.
	Call(caller, contract types.Address, input []byte, value uint64, gasLimit uint64) (gasUsed uint64, err error)
}

// ApplyTransaction mutates the ledger according to t's tx_type, per the
// dispatch table in spec.md §4.4 (extended with the enumerated-but-
// unspecified kinds per SPEC_FULL.md §4.4). height is the block height the
// transaction is being applied within (used for validator CreatedAt and
// unbonding-entry scheduling). executor may be nil for non-contract
// transactions.
func (l *Ledger) ApplyTransaction(t *tx.Transaction, rules config.ConsensusRules, height uint64, executor ContractExecutor) error {
	p := &t.Payload

	switch p.TxType {
	case tx.TxTransfer:
		return l.applyTransfer(p)
	case tx.TxStake:
		return l.applyStake(p, height)
	case tx.TxUnstake:
		return l.applyUnstake(p, rules)
	case tx.TxDelegate:
		return l.applyDelegate(p)
	case tx.TxUndelegate:
		return l.applyUndelegate(p, rules, height)
	case tx.TxVote:
		return l.applyVote(p)
	case tx.TxCreateValidator:
		return l.applyCreateValidator(p, height)
	case tx.TxEditValidator:
		return l.applyEditValidator(p)
	case tx.TxContractDeploy:
		return l.applyContractDeploy(p, executor)
	case tx.TxContractCall:
		return l.applyContractCall(p, executor)
	case tx.TxBatchTransfer:
		return l.applyBatchTransfer(p)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTxType, p.TxType)
	}
}

// applyTransfer: total cost = amount + fee; fails if sender can't cover
// it; debits sender, credits recipient, increments sender nonce.
func (l *Ledger) applyTransfer(p *tx.UnsignedPayload) error {
	if p.Recipient == nil {
		return tx.ErrMissingRecipient
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender := l.getOrCreateAccountLocked(p.Sender)
	totalCost := p.Amount + p.Fee
	if sender.Balance < totalCost {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, totalCost)
	}
	recipient := l.getOrCreateAccountLocked(*p.Recipient)
	sender.Balance -= totalCost
	sender.Nonce++
	recipient.Balance += p.Amount
	return nil
}

// applyStake: debits stake_amount+fee, increments staked, creates or
// updates the validator record.
func (l *Ledger) applyStake(p *tx.UnsignedPayload, height uint64) error {
	stakeAmount, ok := dataUint64(p.Data, "stake_amount")
	if !ok {
		return ErrMissingStakeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender := l.getOrCreateAccountLocked(p.Sender)
	totalCost := stakeAmount + p.Fee
	if sender.Balance < totalCost {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, totalCost)
	}

	sender.Balance -= totalCost
	sender.Staked += stakeAmount
	sender.Nonce++

	if val, exists := l.validators[p.Sender]; exists {
		val.Stake += stakeAmount
		return nil
	}

	pubKey := p.SenderPubKey
	if hexKey, ok := dataString(p.Data, "public_key"); ok && len(hexKey) > 0 {
		if decoded, err := decodeHexOrBytes(hexKey); err == nil {
			pubKey = decoded
		}
	}
	if len(pubKey) == 0 {
		return ErrMissingPublicKey
	}
	l.validators[p.Sender] = &Validator{
		Address:        p.Sender,
		PublicKey:      pubKey,
		Stake:          stakeAmount,
		CommissionRate: 0.1,
		CreatedAt:      height,
	}
	return nil
}

// applyUnstake: requires unstake_amount <= staked; debits fee, moves
// unstake_amount back to balance, drops the validator below min stake.
func (l *Ledger) applyUnstake(p *tx.UnsignedPayload, rules config.ConsensusRules) error {
	unstakeAmount, ok := dataUint64(p.Data, "unstake_amount")
	if !ok {
		return ErrMissingUnstakeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender := l.getOrCreateAccountLocked(p.Sender)
	if sender.Staked < unstakeAmount {
		return fmt.Errorf("%w: staked %d < %d", ErrInsufficientStake, sender.Staked, unstakeAmount)
	}
	if sender.Balance < p.Fee {
		return fmt.Errorf("%w: have %d, need fee %d", ErrInsufficientBalance, sender.Balance, p.Fee)
	}

	sender.Balance -= p.Fee
	sender.Staked -= unstakeAmount
	sender.Balance += unstakeAmount
	sender.Nonce++

	if val, exists := l.validators[p.Sender]; exists {
		val.Stake -= unstakeAmount
		if val.Stake+val.DelegatedStake < rules.MinValidatorStake {
			delete(l.validators, p.Sender)
		}
	}
	return nil
}

// applyDelegate moves stake out of the delegator's liquid balance into a
// chosen validator's DelegatedStake, recorded as a Delegation rather than
// the delegator's own validator record.
func (l *Ledger) applyDelegate(p *tx.UnsignedPayload) error {
	target, ok := dataAddress(p.Data, "validator")
	if !ok {
		return ErrMissingDelegateTarget
	}
	amount, ok := dataUint64(p.Data, "amount")
	if !ok {
		return ErrMissingDelegateAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	val, exists := l.validators[target]
	if !exists {
		return fmt.Errorf("%w: delegate target %s", ErrNotValidator, target)
	}

	sender := l.getOrCreateAccountLocked(p.Sender)
	totalCost := amount + p.Fee
	if sender.Balance < totalCost {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, totalCost)
	}

	sender.Balance -= totalCost
	sender.Nonce++
	val.DelegatedStake += amount
	l.delegations = append(l.delegations, Delegation{
		Delegator: p.Sender,
		Validator: target,
		Amount:    amount,
	})
	return nil
}

// applyUndelegate reverses a prior delegation: the amount is removed from
// the validator's DelegatedStake immediately and scheduled to return to
// the delegator via an UnbondingEntry after the network's unbonding
// period, mirroring the teacher-level expectation that stake withdrawal
// is never instantaneous.
func (l *Ledger) applyUndelegate(p *tx.UnsignedPayload, rules config.ConsensusRules, height uint64) error {
	target, ok := dataAddress(p.Data, "validator")
	if !ok {
		return ErrMissingDelegateTarget
	}
	amount, ok := dataUint64(p.Data, "amount")
	if !ok {
		return ErrMissingDelegateAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var remaining []Delegation
	var delegated uint64
	for _, d := range l.delegations {
		if d.Delegator == p.Sender && d.Validator == target {
			delegated += d.Amount
			continue
		}
		remaining = append(remaining, d)
	}
	if delegated < amount {
		return fmt.Errorf("%w: delegated %d < %d", ErrInsufficientDelegation, delegated, amount)
	}

	sender := l.getOrCreateAccountLocked(p.Sender)
	if sender.Balance < p.Fee {
		return fmt.Errorf("%w: have %d, need fee %d", ErrInsufficientBalance, sender.Balance, p.Fee)
	}
	sender.Balance -= p.Fee
	sender.Nonce++

	if leftover := delegated - amount; leftover > 0 {
		remaining = append(remaining, Delegation{Delegator: p.Sender, Validator: target, Amount: leftover})
	}
	l.delegations = remaining

	if val, exists := l.validators[target]; exists {
		val.DelegatedStake -= amount
	}
	l.unbonding = append(l.unbonding, UnbondingEntry{
		Delegator:        p.Sender,
		Amount:           amount,
		CompletionHeight: height + rules.UnbondingPeriod,
	})
	return nil
}

// applyVote increments nonce and debits fee only; the finality-vote module
// is not wired into block commit (spec.md §9), so a vote transaction has
// no other ledger effect.
func (l *Ledger) applyVote(p *tx.UnsignedPayload) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	sender := l.getOrCreateAccountLocked(p.Sender)
	if sender.Balance < p.Fee {
		return fmt.Errorf("%w: have %d, need fee %d", ErrInsufficientBalance, sender.Balance, p.Fee)
	}
	sender.Balance -= p.Fee
	sender.Nonce++
	return nil
}

// applyCreateValidator explicitly registers a validator record, distinct
// from the implicit creation applyStake performs on first stake. Fails if
// the sender is already a validator.
func (l *Ledger) applyCreateValidator(p *tx.UnsignedPayload, height uint64) error {
	stakeAmount, ok := dataUint64(p.Data, "stake_amount")
	if !ok {
		return ErrMissingStakeAmount
	}
	hexKey, ok := dataString(p.Data, "public_key")
	if !ok || hexKey == "" {
		return ErrMissingPublicKey
	}
	pubKey, err := decodeHexOrBytes(hexKey)
	if err != nil {
		return fmt.Errorf("ledger: data.public_key: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.validators[p.Sender]; exists {
		return ErrAlreadyValidator
	}

	sender := l.getOrCreateAccountLocked(p.Sender)
	totalCost := stakeAmount + p.Fee
	if sender.Balance < totalCost {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, sender.Balance, totalCost)
	}
	sender.Balance -= totalCost
	sender.Staked += stakeAmount
	sender.Nonce++

	l.validators[p.Sender] = &Validator{
		Address:        p.Sender,
		PublicKey:      pubKey,
		Stake:          stakeAmount,
		CommissionRate: 0.1,
		CreatedAt:      height,
	}
	return nil
}

// applyEditValidator updates commission_rate only, gated to the
// validator's own sender.
func (l *Ledger) applyEditValidator(p *tx.UnsignedPayload) error {
	rate, ok := dataFloat64(p.Data, "commission_rate")
	if !ok {
		return errors.New("ledger: data.commission_rate required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	val, exists := l.validators[p.Sender]
	if !exists {
		return ErrNotValidator
	}
	sender := l.getOrCreateAccountLocked(p.Sender)
	if sender.Balance < p.Fee {
		return fmt.Errorf("%w: have %d, need fee %d", ErrInsufficientBalance, sender.Balance, p.Fee)
	}
	sender.Balance -= p.Fee
	sender.Nonce++
	val.CommissionRate = rate
	return nil
}

// applyBatchTransfer applies N parallel (recipient, amount) debits as one
// atomic unit: fails entirely if total cost exceeds balance, matching
// spec.md §7's "no partial apply" rule.
func (l *Ledger) applyBatchTransfer(p *tx.UnsignedPayload) error {
	total := p.Fee
	for _, amt := range p.BatchAmounts {
		total += amt
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender := l.getOrCreateAccountLocked(p.Sender)
	if sender.Balance < total {
		return fmt.Errorf("%w: have %d, need %d", ErrBatchCostExceedsBalance, sender.Balance, total)
	}
	sender.Balance -= total
	sender.Nonce++
	for i, recipient := range p.BatchRecipients {
		l.getOrCreateAccountLocked(recipient).Balance += p.BatchAmounts[i]
	}
	return nil
}

// applyContractDeploy computes the deploy address, runs the constructor
// via executor, stores the bytecode on success, and burns the gas fee to
// the zero address regardless of outcome (if debitable) per spec.md §4.4.
func (l *Ledger) applyContractDeploy(p *tx.UnsignedPayload, executor ContractExecutor) error {
	l.mu.Lock()
	sender := l.getOrCreateAccountLocked(p.Sender)
	senderNonce := sender.Nonce
	l.mu.Unlock()

	contractAddr, err := ContractAddress(p.Sender, senderNonce)
	if err != nil {
		return fmt.Errorf("ledger: derive contract address: %w", err)
	}

	var gasUsed uint64
	var execErr error
	if executor != nil {
		gasUsed, execErr = executor.Deploy(contractAddr, p.ContractBytecode, p.ContractValue, p.GasLimit)
	}
	gasFee := gasUsed * p.GasPrice

	l.mu.Lock()
	defer l.mu.Unlock()

	sender = l.getOrCreateAccountLocked(p.Sender)
	if sender.Balance >= gasFee {
		sender.Balance -= gasFee
		l.getOrCreateAccountLocked(types.ZeroAddress).Balance += gasFee
	}
	if execErr != nil {
		return fmt.Errorf("ledger: contract deploy failed: %w", execErr)
	}

	contract := l.getOrCreateAccountLocked(contractAddr)
	contract.IsContract = true
	contract.ContractCode = p.ContractBytecode
	contract.ContractCreator = p.Sender
	sender.Nonce++
	return nil
}

// applyContractCall routes to the executor and burns the gas fee on
// success, per spec.md §4.4.
func (l *Ledger) applyContractCall(p *tx.UnsignedPayload, executor ContractExecutor) error {
	if p.ContractAddress == nil {
		return errors.New("ledger: contract_call requires contract_address")
	}

	var gasUsed uint64
	var execErr error
	if executor != nil {
		gasUsed, execErr = executor.Call(p.Sender, *p.ContractAddress, p.ContractInput, p.ContractValue, p.GasLimit)
	}
	if execErr != nil {
		return fmt.Errorf("ledger: contract call failed: %w", execErr)
	}
	gasFee := gasUsed * p.GasPrice

	l.mu.Lock()
	defer l.mu.Unlock()
	sender := l.getOrCreateAccountLocked(p.Sender)
	if sender.Balance < gasFee {
		return fmt.Errorf("%w: have %d, need gas fee %d", ErrInsufficientBalance, sender.Balance, gasFee)
	}
	sender.Balance -= gasFee
	l.getOrCreateAccountLocked(types.ZeroAddress).Balance += gasFee
	sender.Nonce++
	return nil
}
