package tx

import (
	"errors"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
)

// Validation errors.
var (
	ErrUnknownTxType     = errors.New("unknown tx_type")
	ErrInvalidSender     = errors.New("invalid sender address")
	ErrInvalidRecipient  = errors.New("invalid recipient address")
	ErrMissingRecipient  = errors.New("tx_type requires a recipient")
	ErrMissingPubKey     = errors.New("missing sender_pubkey")
	ErrMissingSignature  = errors.New("missing signature")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrAddressMismatch   = errors.New("sender does not match address_from_pubkey(sender_pubkey)")
	ErrExtraDataTooLarge = errors.New("extra_data exceeds max size")
	ErrBatchLengthMismatch = errors.New("batch_recipients and batch_amounts length mismatch")
	ErrEmptyBatch        = errors.New("batch_transfer requires at least one recipient")
)

// MaxGasPerTx mirrors the reference implementation's GasConfig.MAX_GAS_PER_TX;
// gas_limit must be in (0, MaxGasPerTx].
const MaxGasPerTx = 1_000_000

// Validate checks the structural and signature invariants from spec.md §3
// that hold independent of ledger state (balance/nonce checks happen at
// apply time in internal/ledger, since they need account state).
func (t *Transaction) Validate() error {
	p := &t.Payload

	if !validTxTypes[p.TxType] {
		return fmt.Errorf("%w: %q", ErrUnknownTxType, p.TxType)
	}
	if p.Sender.IsZero() {
		return ErrInvalidSender
	}
	if p.TxType == TxTransfer && p.Recipient == nil {
		return ErrMissingRecipient
	}
	if p.GasLimit == 0 || p.GasLimit > MaxGasPerTx {
		return fmt.Errorf("gas_limit %d out of range (0,%d]", p.GasLimit, MaxGasPerTx)
	}
	if len(p.ExtraData) > MaxExtraDataSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrExtraDataTooLarge, len(p.ExtraData), MaxExtraDataSize)
	}
	if p.TxType == TxBatchTransfer {
		if len(p.BatchRecipients) != len(p.BatchAmounts) {
			return ErrBatchLengthMismatch
		}
		if len(p.BatchRecipients) == 0 {
			return ErrEmptyBatch
		}
		for i, r := range p.BatchRecipients {
			if r.IsZero() {
				return fmt.Errorf("batch_recipients[%d]: %w", i, ErrInvalidRecipient)
			}
		}
	}

	if len(p.SenderPubKey) == 0 {
		return ErrMissingPubKey
	}
	if t.Signature == ([64]byte{}) {
		return ErrMissingSignature
	}

	return t.VerifyAddressAndSignature()
}

// VerifyAddressAndSignature checks address_from_pubkey(sender_pubkey) ==
// sender and that the signature verifies, without re-checking the other
// structural invariants Validate already covers.
func (t *Transaction) VerifyAddressAndSignature() error {
	if !t.VerifySignature() {
		// VerifySignature folds the address-derivation check in, but we
		// report the more specific error when that's the actual cause.
		if addr := crypto.AddressFromPubKey(t.Payload.SenderPubKey); addr != t.Payload.Sender {
			return fmt.Errorf("%w: sender %s, derived %s", ErrAddressMismatch, t.Payload.Sender, addr)
		}
		return ErrInvalidSignature
	}
	return nil
}
