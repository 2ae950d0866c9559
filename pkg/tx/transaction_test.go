package tx

import (
	"encoding/json"
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

func signedTransfer(t *testing.T, priv *crypto.PrivateKey, recipient types.Address, nonce uint64) *Transaction {
	t.Helper()
	transaction, err := NewBuilder(TxTransfer, nonce, 21000, 10).
		WithTransfer(recipient, 5000, 210).
		WithTimestamp(1700000000).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return transaction
}

func TestPayload_ID_Deterministic(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction := signedTransfer(t, priv, recipient, 0)

	id1 := transaction.ID()
	id2 := transaction.ID()
	if id1 != id2 {
		t.Error("ID() should be deterministic")
	}
}

func TestPayload_ID_IgnoresSignature(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	tx1 := signedTransfer(t, priv, recipient, 0)

	// Re-sign the identical payload; ID must stay the same even though
	// ECDSA signatures are randomized per-signing (k is not deterministic
	// in SignCompact).
	tx2, err := Sign(tx1.Payload, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if tx1.ID() != tx2.ID() {
		t.Error("ID() should not depend on the signature")
	}
}

func TestPayload_ID_ChangesWithContent(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	tx1 := signedTransfer(t, priv, recipient, 0)
	tx2 := signedTransfer(t, priv, recipient, 1)

	if tx1.ID() == tx2.ID() {
		t.Error("different nonces should produce different transaction IDs")
	}
}

func TestTransaction_VerifySignature(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction := signedTransfer(t, priv, recipient, 0)

	if !transaction.VerifySignature() {
		t.Error("VerifySignature() should succeed for a correctly signed tx")
	}
}

func TestTransaction_VerifySignature_RejectsTamperedPayload(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction := signedTransfer(t, priv, recipient, 0)

	transaction.Payload.Amount = 999999

	if transaction.VerifySignature() {
		t.Error("VerifySignature() should fail once the payload is tampered with")
	}
}

func TestTransaction_VerifySignature_RejectsMismatchedSender(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction := signedTransfer(t, priv, recipient, 0)

	transaction.Payload.Sender = crypto.KeyPairFromSeed("someone-else").Address()

	if transaction.VerifySignature() {
		t.Error("VerifySignature() should fail when sender doesn't match sender_pubkey")
	}
}

func TestTransaction_JSON_RoundTrip(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction := signedTransfer(t, priv, recipient, 7)
	transaction.Payload.Data = map[string]any{"memo": "hello"}
	transaction.Payload.ExtraData = []byte{0xde, 0xad}

	encoded, err := json.Marshal(transaction)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Transaction
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Payload.Sender != transaction.Payload.Sender {
		t.Errorf("sender mismatch: got %s, want %s", decoded.Payload.Sender, transaction.Payload.Sender)
	}
	if decoded.Payload.Nonce != 7 {
		t.Errorf("nonce = %d, want 7", decoded.Payload.Nonce)
	}
	if decoded.Signature != transaction.Signature {
		t.Error("signature mismatch after round-trip")
	}
	if !decoded.VerifySignature() {
		t.Error("round-tripped transaction should still verify")
	}
}

func TestTransaction_JSON_UnknownTxTypeFailsValidate(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipient := crypto.KeyPairFromSeed("recipient").Address()
	transaction := signedTransfer(t, priv, recipient, 0)
	transaction.Payload.TxType = "launder"

	if err := transaction.Validate(); err == nil {
		t.Error("Validate() should reject an unknown tx_type")
	}
}

func TestBuilder_ContractDeploy(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	bytecode := []byte{0x60, 0x00, 0x60, 0x00}

	transaction, err := NewBuilder(TxContractDeploy, 0, 200000, 10).
		WithContractDeploy(bytecode, 0).
		WithFee(0).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if transaction.Payload.TxType != TxContractDeploy {
		t.Errorf("tx_type = %s, want contract_deploy", transaction.Payload.TxType)
	}
	if string(transaction.Payload.ContractBytecode) != string(bytecode) {
		t.Error("contract bytecode mismatch")
	}
	if !transaction.VerifySignature() {
		t.Error("contract deploy transaction should verify")
	}
}

func TestBuilder_BatchTransfer(t *testing.T) {
	priv, _ := crypto.GenerateKeyPair()
	recipients := []types.Address{
		crypto.KeyPairFromSeed("r1").Address(),
		crypto.KeyPairFromSeed("r2").Address(),
	}
	amounts := []uint64{100, 200}

	transaction, err := NewBuilder(TxBatchTransfer, 0, 50000, 10).
		WithBatch(recipients, amounts).
		WithFee(50).
		Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := transaction.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
