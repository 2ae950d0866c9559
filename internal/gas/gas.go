// Package gas implements the node's resource-metering model: per-tx-type
// base costs, data/storage multipliers, and fee computation.
package gas

import "github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"

// Config holds the gas metering constants. All nodes must agree on these
// or they will compute different fees for the same transaction.
type Config struct {
	TxBase            uint64
	Transfer          uint64
	Stake             uint64
	Unstake           uint64
	Delegate          uint64
	Undelegate        uint64
	Vote              uint64
	SmartContractBase uint64
	ByteCost          uint64
	SignatureVerify   uint64
	StorageWrite      uint64
	StorageRead       uint64
	MaxGasPerTx       uint64
	MaxGasPerBlock    uint64
	MinGasPrice       uint64
	DefaultGasPrice   uint64
}

// DefaultConfig returns the protocol's gas constants.
func DefaultConfig() Config {
	return Config{
		TxBase:            1000,
		Transfer:          2000,
		Stake:             5000,
		Unstake:           5000,
		Delegate:          3000,
		Undelegate:        3000,
		Vote:              1000,
		SmartContractBase: 10000,
		ByteCost:          10,
		SignatureVerify:   500,
		StorageWrite:      100,
		StorageRead:       10,
		MaxGasPerTx:       1_000_000,
		MaxGasPerBlock:    10_000_000,
		MinGasPrice:       1,
		DefaultGasPrice:   10,
	}
}

// typeCost returns the per-tx-type base cost component. Contract kinds
// share the smart-contract bucket; any other type falls back to TxBase
// alone (the "other = 1,000" case).
func (c Config) typeCost(txType tx.TxType) uint64 {
	switch txType {
	case tx.TxTransfer, tx.TxBatchTransfer:
		return c.Transfer
	case tx.TxStake:
		return c.Stake
	case tx.TxUnstake:
		return c.Unstake
	case tx.TxDelegate:
		return c.Delegate
	case tx.TxUndelegate:
		return c.Undelegate
	case tx.TxVote:
		return c.Vote
	case tx.TxContractDeploy, tx.TxContractCall:
		return c.SmartContractBase
	default:
		return 0
	}
}

// Calculator computes gas usage and fees against a fixed Config.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator for cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// TxGas returns the gas used by a transaction of the given type, given the
// size of its attached free-form data and the bytes it reads/writes from
// contract storage (zero for non-contract transactions).
func (c *Calculator) TxGas(txType tx.TxType, dataSize, storageWrite, storageRead int) uint64 {
	used := c.cfg.TxBase + c.cfg.typeCost(txType)
	used += uint64(dataSize) * c.cfg.ByteCost
	used += uint64(storageWrite) * c.cfg.StorageWrite
	used += uint64(storageRead) * c.cfg.StorageRead
	used += c.cfg.SignatureVerify
	return used
}

// Fee returns gasUsed * max(gasPrice, MinGasPrice).
func (c *Calculator) Fee(gasUsed, gasPrice uint64) uint64 {
	if gasPrice < c.cfg.MinGasPrice {
		gasPrice = c.cfg.MinGasPrice
	}
	return gasUsed * gasPrice
}

// ValidGasLimit reports whether gasLimit is within (0, MaxGasPerTx].
func (c *Calculator) ValidGasLimit(gasLimit uint64) bool {
	return gasLimit > 0 && gasLimit <= c.cfg.MaxGasPerTx
}

// EstimateTxGas returns the gas a transaction of txType would use given its
// unsigned payload, with zero storage read/write (used for mempool/client
// fee estimation before execution determines actual storage touches).
func EstimateTxGas(cfg Config, payload tx.UnsignedPayload) uint64 {
	calc := NewCalculator(cfg)
	return calc.TxGas(payload.TxType, payload.DataSize(), 0, 0)
}
