package mempool

import (
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/gas"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
)

// DefaultMaxTxSize is the maximum transaction size in bytes (JSON-encoded).
const DefaultMaxTxSize = 100_000

// Policy defines admission rules layered on top of a transaction's own
// structural/signature validation (pkg/tx.Validate) — rules that can vary
// per node rather than being consensus-critical.
type Policy struct {
	MaxTxSize int
	Gas       gas.Config
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxTxSize: DefaultMaxTxSize,
		Gas:       gas.DefaultConfig(),
	}
}

// Check validates a transaction against policy rules and the structural
// invariants pkg/tx.Validate enforces, before it is ever admitted to the
// pool.
func (p *Policy) Check(transaction *tx.Transaction) error {
	if err := transaction.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	size := transactionSize(transaction)
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("policy: transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}

	calc := gas.NewCalculator(p.Gas)
	if !calc.ValidGasLimit(transaction.Payload.GasLimit) {
		return fmt.Errorf("policy: gas_limit %d invalid", transaction.Payload.GasLimit)
	}

	return nil
}

func transactionSize(t *tx.Transaction) int {
	encoded, err := t.MarshalJSON()
	if err != nil {
		return 0
	}
	return len(encoded)
}
