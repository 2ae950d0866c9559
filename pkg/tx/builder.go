package tx

import (
	"time"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Builder constructs an UnsignedPayload incrementally, then signs it into a
// Transaction. Unlike the UTXO builder this replaces, there is only ever
// one signer — the sender — so Sign takes a single key.
type Builder struct {
	payload UnsignedPayload
}

// NewBuilder starts a builder for the given tx_type, nonce, and gas terms.
// Timestamp defaults to now; override with WithTimestamp for deterministic
// tests.
func NewBuilder(txType TxType, nonce uint64, gasLimit, gasPrice uint64) *Builder {
	return &Builder{payload: UnsignedPayload{
		TxType:    txType,
		Nonce:     nonce,
		GasLimit:  gasLimit,
		GasPrice:  gasPrice,
		Timestamp: uint64(time.Now().Unix()),
		Version:   1,
	}}
}

// WithTimestamp overrides the default now() timestamp.
func (b *Builder) WithTimestamp(ts uint64) *Builder {
	b.payload.Timestamp = ts
	return b
}

// WithTransfer sets amount, recipient, and fee for a transfer-shaped tx
// (transfer, stake, unstake, delegate, undelegate all route amount this way).
func (b *Builder) WithTransfer(recipient types.Address, amount, fee uint64) *Builder {
	b.payload.Recipient = &recipient
	b.payload.Amount = amount
	b.payload.Fee = fee
	return b
}

// WithFee sets the flat fee without a recipient (stake/unstake/vote/etc.).
func (b *Builder) WithFee(fee uint64) *Builder {
	b.payload.Fee = fee
	return b
}

// WithData attaches the free-form data map (stake_amount, unstake_amount,
// public_key, validator target, etc. depending on tx_type).
func (b *Builder) WithData(data map[string]any) *Builder {
	b.payload.Data = data
	return b
}

// WithContractDeploy sets the contract_deploy fields.
func (b *Builder) WithContractDeploy(bytecode []byte, value uint64) *Builder {
	b.payload.ContractBytecode = bytecode
	b.payload.ContractValue = value
	return b
}

// WithContractCall sets the contract_call fields.
func (b *Builder) WithContractCall(contract types.Address, input []byte, value uint64) *Builder {
	b.payload.ContractAddress = &contract
	b.payload.ContractInput = input
	b.payload.ContractValue = value
	return b
}

// WithBatch sets the batch_transfer parallel arrays.
func (b *Builder) WithBatch(recipients []types.Address, amounts []uint64) *Builder {
	b.payload.BatchRecipients = recipients
	b.payload.BatchAmounts = amounts
	return b
}

// WithExtraData sets the version-extension bytes.
func (b *Builder) WithExtraData(data []byte) *Builder {
	b.payload.ExtraData = data
	return b
}

// Sign finalizes the payload (filling sender/sender_pubkey from key) and
// returns the signed Transaction.
func (b *Builder) Sign(key *crypto.PrivateKey) (*Transaction, error) {
	return Sign(b.payload, key)
}

// Payload returns the builder's current unsigned payload, e.g. to estimate
// gas before signing.
func (b *Builder) Payload() UnsignedPayload {
	return b.payload
}
