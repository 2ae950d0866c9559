package block

import (
	"errors"
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

var testRules = config.MainnetGenesis().Protocol.Consensus

func signedTransfer(t *testing.T, priv *crypto.PrivateKey, nonce uint64) *tx.Transaction {
	t.Helper()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction, err := tx.NewBuilder(tx.TxTransfer, nonce, 21000, 10).
		WithTransfer(recipient, 1000, 210).
		WithTimestamp(1700000000).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return transaction
}

// validBlock builds a minimal, fully signed, internally consistent block.
func validBlock(t *testing.T) *Block {
	t.Helper()
	priv, _ := crypto.GenerateKeyPair()
	transaction := signedTransfer(t, priv, 0)
	txs := []*tx.Transaction{transaction}

	data := HeaderData{
		Height:          1,
		PrevHash:        types.Hash{0xaa},
		Timestamp:       1700000000,
		TxRoot:          ComputeTxRoot(txs),
		VMVersion:       "none",
		ProtocolVersion: 1,
	}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	return NewBlock(header, txs)
}

func TestBlock_Validate_Valid(t *testing.T) {
	blk := validBlock(t)
	if err := blk.Validate(testRules); err != nil {
		t.Errorf("valid block should pass: %v", err)
	}
}

func TestBlock_Validate_NilHeader(t *testing.T) {
	blk := &Block{Header: nil}
	if err := blk.Validate(testRules); !errors.Is(err, ErrNilHeader) {
		t.Errorf("expected ErrNilHeader, got: %v", err)
	}
}

func TestBlock_Validate_ZeroTimestamp(t *testing.T) {
	blk := validBlock(t)
	blk.Header.Data.Timestamp = 0
	if err := blk.Validate(testRules); !errors.Is(err, ErrZeroTimestamp) {
		t.Errorf("expected ErrZeroTimestamp, got: %v", err)
	}
}

func TestBlock_Validate_ZeroProposer(t *testing.T) {
	blk := validBlock(t)
	blk.Header.Data.Proposer = types.Address{}
	if err := blk.Validate(testRules); !errors.Is(err, ErrZeroProposer) {
		t.Errorf("expected ErrZeroProposer, got: %v", err)
	}
}

func TestBlock_Validate_EmptyBlock_ZeroTxRoot(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	data := HeaderData{
		Height: 1, PrevHash: types.Hash{0xaa}, Timestamp: 1700000000,
		TxRoot: types.Hash{}, VMVersion: "none", ProtocolVersion: 1,
	}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	blk := NewBlock(header, nil)
	if err := blk.Validate(testRules); err != nil {
		t.Errorf("empty block with zero tx_root should validate: %v", err)
	}
}

func TestBlock_Validate_BadTxRoot(t *testing.T) {
	blk := validBlock(t)
	blk.Header.Data.TxRoot = types.Hash{0xde, 0xad}
	if err := blk.Validate(testRules); !errors.Is(err, ErrBadTxRoot) {
		t.Errorf("expected ErrBadTxRoot, got: %v", err)
	}
}

func TestBlock_Validate_InvalidTransaction(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	transaction := signedTransfer(t, priv, 0)
	transaction.Payload.TxType = "not_a_real_type"
	txs := []*tx.Transaction{transaction}

	data := HeaderData{
		Height: 1, PrevHash: types.Hash{0xaa}, Timestamp: 1700000000,
		TxRoot: ComputeTxRoot(txs), VMVersion: "none", ProtocolVersion: 1,
	}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	blk := NewBlock(header, txs)

	if err := blk.Validate(testRules); err == nil {
		t.Error("block with invalid tx should fail validation")
	}
}

func TestBlock_Validate_DuplicateTx(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	transaction := signedTransfer(t, priv, 0)
	txs := []*tx.Transaction{transaction, transaction}

	data := HeaderData{
		Height: 1, PrevHash: types.Hash{0xaa}, Timestamp: 1700000000,
		TxRoot: ComputeTxRoot(txs), VMVersion: "none", ProtocolVersion: 1,
	}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	blk := NewBlock(header, txs)

	if err := blk.Validate(testRules); !errors.Is(err, ErrDuplicateTx) {
		t.Errorf("expected ErrDuplicateTx, got: %v", err)
	}
}

func TestBlock_Validate_MultipleTxs(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	tx1 := signedTransfer(t, priv, 0)
	tx2 := signedTransfer(t, priv, 1)
	txs := []*tx.Transaction{tx1, tx2}

	data := HeaderData{
		Height: 5, PrevHash: types.Hash{0xaa}, Timestamp: 1700000000,
		TxRoot: ComputeTxRoot(txs), VMVersion: "none", ProtocolVersion: 1,
	}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	blk := NewBlock(header, txs)

	if err := blk.Validate(testRules); err != nil {
		t.Errorf("multi-tx block should validate: %v", err)
	}
}

func TestBlock_Validate_TooManyTxs(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	rules := testRules
	rules.MaxTxsPerBlock = 2

	txs := []*tx.Transaction{
		signedTransfer(t, priv, 0),
		signedTransfer(t, priv, 1),
		signedTransfer(t, priv, 2),
	}

	data := HeaderData{
		Height: 1, PrevHash: types.Hash{0xaa}, Timestamp: 1700000000,
		TxRoot: ComputeTxRoot(txs), VMVersion: "none", ProtocolVersion: 1,
	}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	blk := NewBlock(header, txs)

	if err := blk.Validate(rules); !errors.Is(err, ErrTooManyTxs) {
		t.Errorf("expected ErrTooManyTxs, got: %v", err)
	}
}

func TestBlock_Validate_BlockTooLarge(t *testing.T) {
	rules := testRules
	rules.MaxBlockSize = 10

	blk := validBlock(t)
	if err := blk.Validate(rules); !errors.Is(err, ErrBlockTooLarge) {
		t.Errorf("expected ErrBlockTooLarge, got: %v", err)
	}
}

func TestBlock_Validate_MissingSignature(t *testing.T) {
	blk := validBlock(t)
	blk.Header.Signature = [64]byte{}
	if err := blk.Validate(testRules); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got: %v", err)
	}
}

func TestBlock_Validate_InvalidSignature(t *testing.T) {
	blk := validBlock(t)
	blk.Header.Signature[0] ^= 0xFF
	blk.Header.Hash = blk.Header.ComputeHash()
	if err := blk.Validate(testRules); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got: %v", err)
	}
}

func TestBlock_Validate_HashMismatch(t *testing.T) {
	blk := validBlock(t)
	blk.Header.Hash = types.Hash{0x01}
	if err := blk.Validate(testRules); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("expected ErrHashMismatch, got: %v", err)
	}
}

func TestHeader_ComputeHash_Deterministic(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	data := HeaderData{Height: 1, PrevHash: types.Hash{0x01}, Timestamp: 1700000000}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}

	h1 := header.ComputeHash()
	h2 := header.ComputeHash()
	if h1 != h2 {
		t.Error("ComputeHash() should be deterministic")
	}
	if h1.IsZero() {
		t.Error("ComputeHash() should not be zero")
	}
}

func TestHeader_ComputeHash_IncludesSignature(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	data := HeaderData{Height: 1, PrevHash: types.Hash{0x01}, Timestamp: 1700000000}
	header, err := SignHeader(data, priv)
	if err != nil {
		t.Fatalf("SignHeader: %v", err)
	}
	withSig := header.ComputeHash()

	header.Signature = [64]byte{}
	withoutSig := header.ComputeHash()

	if withSig == withoutSig {
		t.Error("ComputeHash() must change when the signature changes (divergence from excluding it)")
	}
}

func TestBlock_ValidateIncoming_WrongHeight(t *testing.T) {
	blk := validBlock(t)
	err := blk.ValidateIncoming(testRules, 5, types.Hash{0xaa}, 1700000100)
	if !errors.Is(err, ErrHeightMismatch) {
		t.Errorf("expected ErrHeightMismatch, got: %v", err)
	}
}

func TestBlock_ValidateIncoming_WrongPrevHash(t *testing.T) {
	blk := validBlock(t)
	err := blk.ValidateIncoming(testRules, 0, types.Hash{0xbb}, 1700000100)
	if !errors.Is(err, ErrPrevHashMismatch) {
		t.Errorf("expected ErrPrevHashMismatch, got: %v", err)
	}
}

func TestBlock_ValidateIncoming_TooFarInFuture(t *testing.T) {
	blk := validBlock(t)
	err := blk.ValidateIncoming(testRules, 0, types.Hash{0xaa}, 1600000000)
	if !errors.Is(err, ErrTimestampTooFuture) {
		t.Errorf("expected ErrTimestampTooFuture, got: %v", err)
	}
}

func TestBlock_ValidateIncoming_Valid(t *testing.T) {
	blk := validBlock(t)
	err := blk.ValidateIncoming(testRules, 0, types.Hash{0xaa}, 1700000100)
	if err != nil {
		t.Errorf("expected valid incoming block, got: %v", err)
	}
}

func TestBlock_Hash(t *testing.T) {
	blk := validBlock(t)
	if blk.Hash().IsZero() {
		t.Error("Block.Hash() should not be zero")
	}

	blk2 := &Block{}
	if !blk2.Hash().IsZero() {
		t.Error("Block.Hash() with nil header should be zero")
	}
}
