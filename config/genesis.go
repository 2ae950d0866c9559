package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Denomination constants. 1 UNM = 10^8 base units, matching the reference
// implementation's balances, which are plain integers of base units.
const (
	Decimals = 8
	Coin     = 100_000_000
)

// ProtocolVersion is the wire/consensus version this build speaks.
const ProtocolVersion = 1

// MinSupportedVersion is the oldest ProtocolVersion this build will still
// sync with over the P2P overlay.
const MinSupportedVersion = 1

// Genesis holds the genesis block configuration and protocol rules. This
// is immutable after chain launch — changes require a coordinated restart
// of every node with an updated genesis file.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Symbol    string `json:"symbol,omitempty"`

	Timestamp uint64 `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	// Initial allocations (address -> balance in base units).
	Alloc map[string]uint64 `json:"alloc"`

	// Initial validator set: address -> initial stake, in base units.
	Validators map[string]uint64 `json:"validators"`

	Protocol ProtocolConfig `json:"protocol"`
}

// ProtocolConfig holds consensus-critical rules. All nodes MUST agree on
// these values or they will disagree about which blocks are valid.
type ProtocolConfig struct {
	Consensus ConsensusRules `json:"consensus"`
	Gas       GasRules       `json:"gas"`
	Contract  ContractRules  `json:"contract"`
}

// ConsensusRules defines how blocks are produced, rewarded, and validated.
type ConsensusRules struct {
	BlockTime int `json:"block_time"` // target seconds between blocks

	// Economics
	GenesisSupply       uint64 `json:"genesis_supply"`        // total of Alloc, informational cross-check
	MaxSupply            uint64 `json:"max_supply"`            // hard cap in base units
	InitialBlockReward    uint64 `json:"initial_block_reward"`  // base units credited to the proposer per block
	HalvingInterval       uint64 `json:"halving_interval"`      // blocks between reward halvings (0 = no halving)

	// Staking
	MinValidatorStake uint64 `json:"min_validator_stake"` // base units required to remain a validator
	UnbondingPeriod   uint64 `json:"unbonding_period"`    // blocks an unstake must wait before it matures
	SlashFraction     uint64 `json:"slash_fraction_pct"`  // percent of stake slashed on a double-sign, e.g. 5

	// Block/tx shape limits
	MaxTxsPerBlock    int    `json:"max_txs_per_block"`
	MaxBlockSize      int    `json:"max_block_size"`      // bytes
	MaxTimestampDrift uint64 `json:"max_timestamp_drift"` // seconds a block's timestamp may lead the local clock
}

// GasRules defines the gas metering constants. All nodes must agree on
// these or they will compute different fees for the same transaction.
type GasRules struct {
	MinGasPrice     uint64 `json:"min_gas_price"`
	DefaultGasPrice uint64 `json:"default_gas_price"`
	BlockGasLimit   uint64 `json:"block_gas_limit"`
}

// ContractRules defines EVM-adjacent protocol limits.
type ContractRules struct {
	Enabled         bool   `json:"enabled"`
	MaxContractSize int    `json:"max_contract_size"` // bytes, e.g. 24576 (EIP-170)
	VMVersion       string `json:"vm_version"`
}

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:   "unicrium-mainnet-1",
		ChainName: "Unicrium Mainnet",
		Symbol:    "UNCM",
		Timestamp: 1770734103, // 2026-02-10
		ExtraData: "Unicrium Genesis",
		Alloc: map[string]uint64{
			"0x00000000000000000000756e696372697567656e": 100_000 * Coin,
		},
		Validators: map[string]uint64{},
		Protocol: ProtocolConfig{
			Consensus: ConsensusRules{
				BlockTime:          3,
				GenesisSupply:      100_000 * Coin,
				MaxSupply:          100_000_000 * Coin,
				InitialBlockReward: 5 * Coin,
				HalvingInterval:    2_100_000,
				MinValidatorStake:  1_000 * Coin,
				UnbondingPeriod:    20_160, // roughly 17 hours at 3s blocks
				SlashFraction:      5,
				MaxTxsPerBlock:     2000,
				MaxBlockSize:       2_000_000,
				MaxTimestampDrift:  60,
			},
			Gas: GasRules{
				MinGasPrice:     1,
				DefaultGasPrice: 10,
				BlockGasLimit:   10_000_000,
			},
			Contract: ContractRules{
				Enabled:         true,
				MaxContractSize: 24_576,
				VMVersion:       "london",
			},
		},
	}
}

// TestnetGenesis returns the testnet genesis configuration.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "unicrium-testnet-1"
	g.ChainName = "Unicrium Testnet"
	g.ExtraData = "Unicrium Testnet Genesis"
	g.Protocol.Consensus.MinValidatorStake = 100 * Coin
	g.Protocol.Consensus.UnbondingPeriod = 100
	g.Protocol.Gas.MinGasPrice = 1
	g.Protocol.Gas.DefaultGasPrice = 1
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}
	return nil
}

// Validate checks that the genesis configuration is internally consistent.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if g.Protocol.Consensus.BlockTime <= 0 {
		return fmt.Errorf("block_time must be positive")
	}
	if g.Protocol.Consensus.MinValidatorStake == 0 {
		return fmt.Errorf("min_validator_stake must be positive")
	}
	if g.Protocol.Gas.MinGasPrice == 0 {
		return fmt.Errorf("min_gas_price must be positive")
	}
	if g.Protocol.Gas.DefaultGasPrice < g.Protocol.Gas.MinGasPrice {
		return fmt.Errorf("default_gas_price (%d) below min_gas_price (%d)",
			g.Protocol.Gas.DefaultGasPrice, g.Protocol.Gas.MinGasPrice)
	}

	var totalAlloc uint64
	for addrStr, v := range g.Alloc {
		if _, err := types.ParseAddress(addrStr); err != nil {
			return fmt.Errorf("invalid alloc address %q: %w", addrStr, err)
		}
		totalAlloc += v
	}
	for addrStr, stake := range g.Validators {
		if _, err := types.ParseAddress(addrStr); err != nil {
			return fmt.Errorf("invalid validator address %q: %w", addrStr, err)
		}
		if stake < g.Protocol.Consensus.MinValidatorStake {
			return fmt.Errorf("validator %s stake (%d) below min_validator_stake (%d)",
				addrStr, stake, g.Protocol.Consensus.MinValidatorStake)
		}
		totalAlloc += stake
	}
	if g.Protocol.Consensus.MaxSupply > 0 && totalAlloc > g.Protocol.Consensus.MaxSupply {
		return fmt.Errorf("genesis allocations + validator stake (%d) exceed max_supply (%d)",
			totalAlloc, g.Protocol.Consensus.MaxSupply)
	}

	return nil
}

// Hash returns the canonical hash of the genesis configuration. The P2P
// handshake does not carry it, so peers do not compare genesis hashes.
func (g *Genesis) Hash() (types.Hash, error) {
	return crypto.HashObject(g)
}
