package block

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Validation errors.
var (
	ErrNilHeader          = errors.New("block has nil header")
	ErrZeroTimestamp      = errors.New("block timestamp is zero")
	ErrBadTxRoot          = errors.New("tx_root mismatch")
	ErrTooManyTxs         = errors.New("too many transactions in block")
	ErrBlockTooLarge      = errors.New("block too large")
	ErrDuplicateTx        = errors.New("duplicate transaction in block")
	ErrMissingSignature   = errors.New("block has no signature")
	ErrInvalidSignature   = errors.New("block signature invalid")
	ErrZeroProposer       = errors.New("block has zero proposer address")
	ErrTimestampTooFuture = errors.New("block timestamp too far in the future")
	ErrHeightMismatch     = errors.New("block height does not follow chain tip")
	ErrPrevHashMismatch   = errors.New("block prev_hash does not match chain tip")
	ErrHashMismatch       = errors.New("block hash does not match its recomputed header hash")
)

// Validate checks block structure and internal consistency: it does NOT
// consult the ledger or chain tip (use the consensus/ledger packages for
// that). rules bounds transaction count and encoded size; pass the
// network's config.ConsensusRules.
func (b *Block) Validate(rules config.ConsensusRules) error {
	if b.Header == nil {
		return ErrNilHeader
	}
	header := b.Header

	if header.Data.Timestamp == 0 {
		return ErrZeroTimestamp
	}

	if header.Data.Proposer.IsZero() {
		return ErrZeroProposer
	}

	if rules.MaxTxsPerBlock > 0 && len(b.Transactions) > rules.MaxTxsPerBlock {
		return fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(b.Transactions), rules.MaxTxsPerBlock)
	}

	if rules.MaxBlockSize > 0 {
		size, err := b.encodedSize()
		if err != nil {
			return fmt.Errorf("measuring block size: %w", err)
		}
		if size > rules.MaxBlockSize {
			return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, size, rules.MaxBlockSize)
		}
	}

	seen := make(map[string]bool, len(b.Transactions))
	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		id := t.ID().String()
		if seen[id] {
			return fmt.Errorf("tx %d: %w: %s", i, ErrDuplicateTx, id)
		}
		seen[id] = true
	}

	expectedRoot := ComputeTxRoot(b.Transactions)
	if header.Data.TxRoot != expectedRoot {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadTxRoot, header.Data.TxRoot, expectedRoot)
	}

	if header.Signature == ([64]byte{}) {
		return ErrMissingSignature
	}
	if !header.VerifySignature() {
		return ErrInvalidSignature
	}
	if header.Hash != header.ComputeHash() {
		return ErrHashMismatch
	}

	return nil
}

// encodedSize returns the JSON-encoded byte size of the block, used as the
// block-size ceiling check.
func (b *Block) encodedSize() (int, error) {
	encoded, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}

// ValidateIncoming additionally checks the commit-time invariants for a
// block received from a peer (not self-produced): it must extend the
// local chain tip at exactly tipHeight+1, chain to tipHash, and carry a
// timestamp within rules.MaxTimestampDrift seconds of now (future tolerance only; blocks
// may be arbitrarily old).
func (b *Block) ValidateIncoming(rules config.ConsensusRules, tipHeight uint64, tipHash types.Hash, now uint64) error {
	if err := b.Validate(rules); err != nil {
		return err
	}
	if b.Header.Data.Height != tipHeight+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrHeightMismatch, b.Header.Data.Height, tipHeight+1)
	}
	if b.Header.Data.PrevHash != tipHash {
		return ErrPrevHashMismatch
	}
	if b.Header.Data.Timestamp > now+rules.MaxTimestampDrift {
		return fmt.Errorf("%w: timestamp %d exceeds now+%ds", ErrTimestampTooFuture, b.Header.Data.Timestamp, rules.MaxTimestampDrift)
	}
	return nil
}
