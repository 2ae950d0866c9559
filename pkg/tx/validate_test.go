package tx

import (
	"errors"
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

func validTransferTx(t *testing.T) *Transaction {
	t.Helper()
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction, err := NewBuilder(TxTransfer, 0, 21000, 10).
		WithTransfer(recipient, 1000, 210).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return transaction
}

func TestValidate_Valid(t *testing.T) {
	transaction := validTransferTx(t)
	if err := transaction.Validate(); err != nil {
		t.Errorf("valid tx should pass: %v", err)
	}
}

func TestValidate_UnknownTxType(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.TxType = "mint_out_of_thin_air"
	if err := transaction.Validate(); !errors.Is(err, ErrUnknownTxType) {
		t.Errorf("expected ErrUnknownTxType, got: %v", err)
	}
}

func TestValidate_ZeroSender(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.Sender = types.Address{}
	if err := transaction.Validate(); !errors.Is(err, ErrInvalidSender) {
		t.Errorf("expected ErrInvalidSender, got: %v", err)
	}
}

func TestValidate_TransferMissingRecipient(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.Recipient = nil
	if err := transaction.Validate(); !errors.Is(err, ErrMissingRecipient) {
		t.Errorf("expected ErrMissingRecipient, got: %v", err)
	}
}

func TestValidate_GasLimitZero(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.GasLimit = 0
	if err := transaction.Validate(); err == nil {
		t.Error("gas_limit of 0 should be rejected")
	}
}

func TestValidate_GasLimitAboveMax(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.GasLimit = MaxGasPerTx + 1
	if err := transaction.Validate(); err == nil {
		t.Error("gas_limit above MaxGasPerTx should be rejected")
	}
}

func TestValidate_GasLimitAtMax(t *testing.T) {
	// gas_limit is part of the signed payload, so the tx is built and
	// signed at the boundary instead of being mutated after signing.
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction, err := NewBuilder(TxTransfer, 0, MaxGasPerTx, 10).
		WithTransfer(recipient, 1000, 210).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := transaction.Validate(); err != nil {
		t.Errorf("gas_limit == MaxGasPerTx should pass: %v", err)
	}
}

func TestValidate_ExtraDataTooLarge(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.ExtraData = make([]byte, MaxExtraDataSize+1)
	if err := transaction.Validate(); !errors.Is(err, ErrExtraDataTooLarge) {
		t.Errorf("expected ErrExtraDataTooLarge, got: %v", err)
	}
}

func TestValidate_MissingPubKey(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.SenderPubKey = nil
	if err := transaction.Validate(); !errors.Is(err, ErrMissingPubKey) {
		t.Errorf("expected ErrMissingPubKey, got: %v", err)
	}
}

func TestValidate_MissingSignature(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Signature = [64]byte{}
	if err := transaction.Validate(); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got: %v", err)
	}
}

func TestValidate_BatchLengthMismatch(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipients := []types.Address{crypto.KeyPairFromSeed("r1").Address()}
	amounts := []uint64{100, 200}
	transaction, err := NewBuilder(TxBatchTransfer, 0, 50000, 10).
		WithBatch(recipients, amounts).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := transaction.Validate(); !errors.Is(err, ErrBatchLengthMismatch) {
		t.Errorf("expected ErrBatchLengthMismatch, got: %v", err)
	}
}

func TestValidate_EmptyBatch(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	transaction, err := NewBuilder(TxBatchTransfer, 0, 50000, 10).Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := transaction.Validate(); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got: %v", err)
	}
}

func TestVerifyAddressAndSignature_WrongKey(t *testing.T) {
	transaction := validTransferTx(t)
	other, _ := crypto.GenerateKeyPair()
	transaction.Payload.SenderPubKey = other.PublicKeyUncompressed()
	transaction.Payload.Sender = other.Address()

	err := transaction.VerifyAddressAndSignature()
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got: %v", err)
	}
}

func TestVerifyAddressAndSignature_TamperedPayload(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.Amount = 999999999

	err := transaction.VerifyAddressAndSignature()
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("tampered tx should fail verification: %v", err)
	}
}

func TestVerifyAddressAndSignature_CorruptedSig(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Signature[0] ^= 0xFF

	if err := transaction.VerifyAddressAndSignature(); err == nil {
		t.Error("corrupted signature should fail verification")
	}
}

func TestVerifyAddressAndSignature_SenderMismatch(t *testing.T) {
	transaction := validTransferTx(t)
	transaction.Payload.Sender = crypto.KeyPairFromSeed("impersonator").Address()

	err := transaction.VerifyAddressAndSignature()
	if !errors.Is(err, ErrAddressMismatch) {
		t.Errorf("expected ErrAddressMismatch, got: %v", err)
	}
}
