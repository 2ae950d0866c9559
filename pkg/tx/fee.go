package tx

import (
	"encoding/json"
	"errors"
	"math"
)

// ErrAmountFeeOverflow is returned by TotalCost when amount+fee overflows uint64.
var ErrAmountFeeOverflow = errors.New("tx: amount+fee overflows")

// DataSize returns the byte size of the free-form data payload the gas
// calculator charges per byte: the JSON encoding of Data plus any contract
// bytecode/input/extra_data attached to the transaction.
func (p UnsignedPayload) DataSize() int {
	size := len(p.ContractBytecode) + len(p.ContractInput) + len(p.ExtraData)
	if p.Data != nil {
		if encoded, err := json.Marshal(p.Data); err == nil {
			size += len(encoded)
		}
	}
	return size
}

// TotalCost returns the amount a transfer-shaped transaction debits from
// the sender's balance before gas: amount + fee. Gas fees are computed and
// debited separately by internal/gas + internal/ledger, since gas_used
// depends on execution (contract calls) not just the declared fee.
func (p UnsignedPayload) TotalCost() (uint64, error) {
	if p.Amount > math.MaxUint64-p.Fee {
		return 0, ErrAmountFeeOverflow
	}
	return p.Amount + p.Fee, nil
}
