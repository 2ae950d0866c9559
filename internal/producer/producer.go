package producer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/consensus"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/gas"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/ledger"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/log"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/mempool"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/block"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// maxReadyTxsPerBlock is the per-block pull limit from the mempool
// (spec.md §4.10 step 3: "up to 50 transactions"), distinct from
// config.ConsensusRules.MaxTxsPerBlock which bounds total block size for
// structural validation.
const maxReadyTxsPerBlock = 50

// Scheduling constants for the sleep-or-wait step (spec.md §4.10 step 6).
const (
	DefaultProduceInterval = 5 * time.Second
	EmptyBlockHeartbeat    = 900 * time.Second
)

// Producer is the node's sole mutator of committed chain state: a single
// cooperative loop that selects a proposer, drains the mempool, applies
// transactions to the ledger, signs and commits the resulting block, and
// evicts what it included (spec.md §4.10; grounded on the teacher's
// internal/miner.Miner single-responsibility ProduceBlock shape, its
// supply-capped reward and canonical-order transaction handling carried
// over and generalized from a UTXO coinbase output to a direct account
// credit).
type Producer struct {
	ledger   *ledger.Ledger
	pool     *mempool.Pool
	selector *consensus.Selector
	slashing *consensus.SlashingDetector
	executor ledger.ContractExecutor
	store    *Store
	rules    config.ConsensusRules
	gas      *gas.Calculator
	priv     *crypto.PrivateKey
	vm       string

	// OnBlockProduced, if set, is called after any block — self-produced
	// via Run, or received from a peer via CommitIncoming — is durably
	// committed. The node wires this to both broadcast the block to
	// peers and persist the post-commit ledger snapshot.
	OnBlockProduced func(*block.Block)
}

// New creates a Producer. executor may be nil if contract support is
// disabled (config.ContractRules.Enabled == false); slashing may be nil if
// double-sign detection is not wired up by the caller.
func New(l *ledger.Ledger, pool *mempool.Pool, selector *consensus.Selector, slashing *consensus.SlashingDetector,
	executor ledger.ContractExecutor, store *Store, rules config.ConsensusRules, gasCfg gas.Config,
	priv *crypto.PrivateKey, vmVersion string) *Producer {
	return &Producer{
		ledger:   l,
		pool:     pool,
		selector: selector,
		slashing: slashing,
		executor: executor,
		store:    store,
		rules:    rules,
		gas:      gas.NewCalculator(gasCfg),
		priv:     priv,
		vm:       vmVersion,
	}
}

// blockMetrics accumulates the contract-touching counters a block's
// header reports, via meteringExecutor wrapping the real executor —
// ledger.ApplyTransaction only returns an error, so this is how the
// producer observes gas usage without changing that signature.
type blockMetrics struct {
	contractsDeployed uint64
	contractCalls     uint64
	contractGasUsed   uint64
}

type meteringExecutor struct {
	inner   ledger.ContractExecutor
	metrics *blockMetrics
}

func (m *meteringExecutor) Deploy(contract types.Address, bytecode []byte, value, gasLimit uint64) (uint64, error) {
	if m.inner == nil {
		return 0, fmt.Errorf("producer: contract execution disabled")
	}
	gasUsed, err := m.inner.Deploy(contract, bytecode, value, gasLimit)
	m.metrics.contractsDeployed++
	m.metrics.contractGasUsed += gasUsed
	return gasUsed, err
}

func (m *meteringExecutor) Call(caller, contract types.Address, input []byte, value, gasLimit uint64) (uint64, error) {
	if m.inner == nil {
		return 0, fmt.Errorf("producer: contract execution disabled")
	}
	gasUsed, err := m.inner.Call(caller, contract, input, value, gasLimit)
	m.metrics.contractCalls++
	m.metrics.contractGasUsed += gasUsed
	return gasUsed, err
}

// PendingCount returns the number of transactions waiting in the mempool,
// used by Run's sleep-or-wait scheduling (step 1/6).
func (pr *Producer) PendingCount() int {
	return pr.pool.Count()
}

// Address returns this producer's proposer address.
func (pr *Producer) Address() types.Address {
	return pr.priv.Address()
}

// RefreshValidators rebuilds the proposer rotation from current ledger
// state. Callers should invoke this once at startup; ProduceBlock refreshes
// it itself after applying each block's transactions.
func (pr *Producer) RefreshValidators(height uint64) {
	validators := pr.ledger.Validators()
	snapshot := make([]ledger.Validator, len(validators))
	for i, v := range validators {
		snapshot[i] = *v
	}
	pr.selector.Refresh(snapshot, height)
}

// IsMyTurn reports whether this producer is the selected proposer for the
// next block (tipHeight+1), given seed (conventionally the tip hash).
func (pr *Producer) IsMyTurn(tipHeight uint64, seed string) bool {
	proposer := pr.selector.SelectProposer(tipHeight+1, seed, pr.firstKnownAccount())
	return proposer == pr.Address()
}

func (pr *Producer) firstKnownAccount() types.Address {
	accounts := pr.ledger.Accounts()
	if len(accounts) == 0 {
		return pr.Address()
	}
	return accounts[0]
}

// validatorSetHash commits to the current validator set: addresses and
// stakes, sorted for determinism. Used for both validator_set_hash (before
// this block's transactions) and next_validator_set_hash (after).
func (pr *Producer) validatorSetHash() types.Hash {
	return ValidatorSetHash(pr.ledger)
}

// ValidatorSetHash commits to l's current validator set: addresses,
// combined stake, and jailed status, sorted for determinism. Exported so
// the genesis constructor can compute the same commitment a produced
// block's header would (spec.md §4.10's "validator_set_hash" /
// "next_validator_set_hash" fields).
func ValidatorSetHash(l *ledger.Ledger) types.Hash {
	validators := l.Validators()
	sort.Slice(validators, func(i, j int) bool {
		return validators[i].Address.String() < validators[j].Address.String()
	})
	type entry struct {
		Address types.Address `json:"address"`
		Stake   uint64        `json:"stake"`
		Jailed  bool          `json:"jailed"`
	}
	snapshot := make([]entry, len(validators))
	for i, v := range validators {
		snapshot[i] = entry{Address: v.Address, Stake: v.Stake + v.DelegatedStake, Jailed: v.Jailed}
	}
	return crypto.MustHashObject(snapshot)
}

// consensusHash commits to the network's consensus rules, so a header
// records which ruleset it was produced under.
func (pr *Producer) consensusHash() types.Hash {
	return ConsensusHash(pr.rules)
}

// ConsensusHash commits to rules, so a header records which ruleset
// produced it. Exported for the genesis constructor.
func ConsensusHash(rules config.ConsensusRules) types.Hash {
	return crypto.MustHashObject(rules)
}

// Run drives the cooperative block-production loop until ctx is
// cancelled (spec.md §4.10 step 6): it refreshes the proposer rotation,
// waits out an adaptive interval — DefaultProduceInterval while the
// mempool has pending transactions, the longer EmptyBlockHeartbeat once
// it's drained — racing the mempool's new-tx signal so a freshly-admitted
// transaction can wake an idle loop early, then produces a block if and
// only if this node is the selected proposer for tip+1.
func (pr *Producer) Run(ctx context.Context) {
	tipHeight, tipHash, _ := pr.store.Tip()
	pr.RefreshValidators(tipHeight)

	for {
		interval := EmptyBlockHeartbeat
		if pr.PendingCount() > 0 {
			interval = DefaultProduceInterval
		}
		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-pr.pool.NewTxSignal():
			timer.Stop()
		case <-timer.C:
		}

		tipHeight, tipHash, _ = pr.store.Tip()
		if !pr.IsMyTurn(tipHeight, tipHash.String()) {
			continue
		}
		blk, err := pr.ProduceBlock()
		if err != nil {
			log.Producer.Error().Err(err).Msg("block production failed")
			continue
		}
		if pr.OnBlockProduced != nil {
			pr.OnBlockProduced(blk)
		}
	}
}

// ProduceBlock builds, applies, signs, and commits one block at the
// current tip+1 under this producer's own proposer key, then evicts its
// included transactions from the mempool. It is the sole writer to
// committed state and must not run concurrently with CommitIncoming (the
// caller serializes the two — e.g. one goroutine driving Run — per
// spec.md §5's single-writer rule).
func (pr *Producer) ProduceBlock() (*block.Block, error) {
	tipHeight, tipHash, totalMinted := pr.store.Tip()
	newHeight := tipHeight + 1

	expectedNonces := make(map[types.Address]uint64)
	for _, sender := range pr.pool.Senders() {
		expectedNonces[sender] = pr.ledger.Nonce(sender)
	}
	candidates := pr.pool.GetReady(expectedNonces, maxReadyTxsPerBlock)

	beforeValidatorHash := pr.validatorSetHash()

	metrics := &blockMetrics{}
	executor := &meteringExecutor{inner: pr.executor, metrics: metrics}

	var included []*tx.Transaction
	var totalFees uint64
	for _, candidate := range candidates {
		if err := candidate.Validate(); err != nil {
			log.Producer.Debug().Err(err).Str("tx", candidate.ID().String()).Msg("discarding invalid tx from block candidate")
			continue
		}
		if !pr.gas.ValidGasLimit(candidate.Payload.GasLimit) {
			log.Producer.Debug().Str("tx", candidate.ID().String()).Msg("discarding tx with out-of-range gas_limit")
			continue
		}

		if err := pr.ledger.ApplyTransaction(candidate, pr.rules, newHeight, executor); err != nil {
			switch candidate.Payload.TxType {
			case tx.TxContractDeploy, tx.TxContractCall:
				// Gas is burned (and, for deploys, the sender's nonce
				// already advanced) regardless of execution outcome, so
				// the ledger has already mutated — the tx still belongs
				// in the block or other nodes replaying it would diverge.
				log.Producer.Info().Err(err).Str("tx", candidate.ID().String()).Msg("contract execution failed, including tx anyway")
			default:
				// Every other apply path checks its preconditions before
				// mutating anything, so an error here means nothing
				// changed and the tx is safe to drop.
				log.Producer.Debug().Err(err).Str("tx", candidate.ID().String()).Msg("discarding tx that failed to apply")
				continue
			}
		}

		included = append(included, candidate)
		totalFees += candidate.Payload.Fee
	}

	pr.RefreshValidators(newHeight)
	afterValidatorHash := pr.validatorSetHash()

	blockReward := BlockReward(pr.rules, newHeight, totalMinted)
	if blockReward > 0 {
		pr.ledger.Credit(pr.Address(), blockReward)
	}

	data := block.HeaderData{
		Height:               newHeight,
		PrevHash:             tipHash,
		Timestamp:            uint64(time.Now().Unix()),
		TxRoot:               block.ComputeTxRoot(included),
		StateRoot:            pr.ledger.StateRoot(),
		ValidatorSetHash:     beforeValidatorHash,
		NextValidatorSetHash: afterValidatorHash,
		ConsensusHash:        pr.consensusHash(),
		AppHash:              pr.ledger.StateRoot(),
		TotalFees:            totalFees,
		BlockReward:          blockReward,
		ContractsDeployed:    metrics.contractsDeployed,
		ContractCalls:        metrics.contractCalls,
		ContractGasUsed:      metrics.contractGasUsed,
		VMVersion:            pr.vm,
		ProtocolVersion:      config.ProtocolVersion,
	}

	header, err := block.SignHeader(data, pr.priv)
	if err != nil {
		return nil, fmt.Errorf("producer: sign header: %w", err)
	}
	blk := block.NewBlock(header, included)

	if pr.slashing != nil {
		pr.slashing.Observe(newHeight, header.Data.Proposer, header.Hash)
	}

	if err := pr.store.Commit(blk, totalMinted+blockReward); err != nil {
		return nil, fmt.Errorf("producer: commit block: %w", err)
	}
	pr.pool.RemoveConfirmed(included)

	log.Producer.Info().
		Uint64("height", newHeight).
		Int("txs", len(included)).
		Uint64("reward", blockReward).
		Msg("produced block")

	return blk, nil
}

// CommitIncoming validates and applies a block received from a peer (not
// self-produced). Nonce sequencing, structural validity, and gas-limit
// bounds are checked up front; but balance/stake sufficiency can only be
// known by actually attempting each tx's apply, so before any mutation
// this snapshots the ledger and rolls back to it on every failure path
// from that point on (an applied-then-rejected tx, or a commit failure),
// so a rejected block never leaves the in-memory ledger ahead of the last
// durably committed height (spec.md §4.10's "no partial state" rule). The
// only mutation this does NOT roll back is the same
// contract-gas-burned-on-failure case ProduceBlock handles, which is
// itself part of valid ledger semantics, not partial state.
func (pr *Producer) CommitIncoming(blk *block.Block) error {
	tipHeight, tipHash, totalMinted := pr.store.Tip()
	now := uint64(time.Now().Unix())

	if err := blk.ValidateIncoming(pr.rules, tipHeight, tipHash, now); err != nil {
		return fmt.Errorf("producer: reject incoming block: %w", err)
	}

	expected := make(map[types.Address]uint64)
	for _, t := range blk.Transactions {
		if _, seen := expected[t.Payload.Sender]; !seen {
			expected[t.Payload.Sender] = pr.ledger.Nonce(t.Payload.Sender)
		}
		if t.Payload.Nonce != expected[t.Payload.Sender] {
			return fmt.Errorf("producer: reject incoming block: tx %s nonce %d, want %d",
				t.ID(), t.Payload.Nonce, expected[t.Payload.Sender])
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("producer: reject incoming block: tx %s: %w", t.ID(), err)
		}
		if !pr.gas.ValidGasLimit(t.Payload.GasLimit) {
			return fmt.Errorf("producer: reject incoming block: tx %s gas_limit out of range", t.ID())
		}
		expected[t.Payload.Sender]++
	}

	preApply, err := pr.ledger.Snapshot()
	if err != nil {
		return fmt.Errorf("producer: snapshot ledger before apply: %w", err)
	}
	rollback := func() {
		if err := pr.ledger.LoadSnapshot(preApply); err != nil {
			log.Producer.Error().Err(err).Msg("failed to roll back ledger after rejected incoming block")
		}
	}

	metrics := &blockMetrics{}
	executor := &meteringExecutor{inner: pr.executor, metrics: metrics}
	for _, t := range blk.Transactions {
		if err := pr.ledger.ApplyTransaction(t, pr.rules, blk.Height(), executor); err != nil {
			switch t.Payload.TxType {
			case tx.TxContractDeploy, tx.TxContractCall:
				log.Producer.Info().Err(err).Str("tx", t.ID().String()).Msg("incoming block: contract execution failed")
			default:
				rollback()
				return fmt.Errorf("producer: reject incoming block: applying tx %s: %w", t.ID(), err)
			}
		}
	}

	if blk.Header.Data.BlockReward > 0 {
		pr.ledger.Credit(blk.Header.Data.Proposer, blk.Header.Data.BlockReward)
	}
	pr.RefreshValidators(blk.Height())

	if pr.slashing != nil {
		if evidence, doubleSign := pr.slashing.Observe(blk.Height(), blk.Header.Data.Proposer, blk.Header.Hash); doubleSign {
			log.Producer.Warn().
				Str("validator", evidence.Validator.String()).
				Uint64("height", evidence.Height).
				Msg("double-sign evidence observed")
			pr.ledger.SlashValidator(evidence.Validator, pr.rules.SlashFraction, "double_sign")
			pr.ledger.JailValidator(evidence.Validator, blk.Height()+pr.rules.UnbondingPeriod)
		}
	}

	if err := pr.store.Commit(blk, totalMinted+blk.Header.Data.BlockReward); err != nil {
		rollback()
		return fmt.Errorf("producer: commit incoming block: %w", err)
	}
	pr.pool.RemoveConfirmed(blk.Transactions)

	if pr.OnBlockProduced != nil {
		pr.OnBlockProduced(blk)
	}

	log.Producer.Info().
		Uint64("height", blk.Height()).
		Int("txs", len(blk.Transactions)).
		Msg("committed incoming block")
	return nil
}
