// Package tx defines transaction types, signing, and validation for the
// account-based ledger.
package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// TxType is the closed set of transaction intents the ledger understands.
// Unknown values unmarshal without error and are rejected by Validate.
type TxType string

const (
	TxTransfer        TxType = "transfer"
	TxStake           TxType = "stake"
	TxUnstake         TxType = "unstake"
	TxDelegate        TxType = "delegate"
	TxUndelegate      TxType = "undelegate"
	TxVote            TxType = "vote"
	TxCreateValidator TxType = "create_validator"
	TxEditValidator   TxType = "edit_validator"
	TxContractDeploy  TxType = "contract_deploy"
	TxContractCall    TxType = "contract_call"
	TxBatchTransfer   TxType = "batch_transfer"
)

// validTxTypes is the closed membership set checked by Validate.
var validTxTypes = map[TxType]bool{
	TxTransfer: true, TxStake: true, TxUnstake: true,
	TxDelegate: true, TxUndelegate: true, TxVote: true,
	TxCreateValidator: true, TxEditValidator: true,
	TxContractDeploy: true, TxContractCall: true, TxBatchTransfer: true,
}

// MaxExtraDataSize bounds the version field's free-form extension bytes.
const MaxExtraDataSize = 1024

// UnsignedPayload is everything about a transaction except its signature.
// Signing and verification both hash the canonical JSON of this struct.
type UnsignedPayload struct {
	Sender       types.Address     `json:"sender"`
	SenderPubKey []byte            `json:"sender_pubkey"`
	Nonce        uint64            `json:"nonce"`
	TxType       TxType            `json:"tx_type"`
	Amount       uint64            `json:"amount"`
	Recipient    *types.Address    `json:"recipient,omitempty"`
	Data         map[string]any    `json:"data,omitempty"`
	Fee          uint64            `json:"fee"`
	GasLimit     uint64            `json:"gas_limit"`
	GasPrice     uint64            `json:"gas_price"`
	Timestamp    uint64            `json:"timestamp"`

	ContractAddress  *types.Address `json:"contract_address,omitempty"`
	ContractBytecode []byte         `json:"contract_bytecode,omitempty"`
	ContractInput    []byte         `json:"contract_input,omitempty"`
	ContractValue    uint64         `json:"contract_value,omitempty"`

	BatchRecipients []types.Address `json:"batch_recipients,omitempty"`
	BatchAmounts    []uint64        `json:"batch_amounts,omitempty"`

	Version   int    `json:"version"`
	ExtraData []byte `json:"extra_data,omitempty"`
}

// payloadJSON mirrors UnsignedPayload with hex-encoded byte fields, matching
// the wire form hash_object operates on (bytes never appear raw in JSON).
type payloadJSON struct {
	Sender       types.Address   `json:"sender"`
	SenderPubKey string          `json:"sender_pubkey,omitempty"`
	Nonce        uint64          `json:"nonce"`
	TxType       TxType          `json:"tx_type"`
	Amount       uint64          `json:"amount"`
	Recipient    *types.Address  `json:"recipient,omitempty"`
	Data         map[string]any  `json:"data,omitempty"`
	Fee          uint64          `json:"fee"`
	GasLimit     uint64          `json:"gas_limit"`
	GasPrice     uint64          `json:"gas_price"`
	Timestamp    uint64          `json:"timestamp"`

	ContractAddress  *types.Address `json:"contract_address,omitempty"`
	ContractBytecode string         `json:"contract_bytecode,omitempty"`
	ContractInput    string         `json:"contract_input,omitempty"`
	ContractValue    uint64         `json:"contract_value,omitempty"`

	BatchRecipients []types.Address `json:"batch_recipients,omitempty"`
	BatchAmounts    []uint64        `json:"batch_amounts,omitempty"`

	Version   int    `json:"version"`
	ExtraData string `json:"extra_data,omitempty"`
}

func (p UnsignedPayload) toJSON() payloadJSON {
	j := payloadJSON{
		Sender: p.Sender, Nonce: p.Nonce, TxType: p.TxType, Amount: p.Amount,
		Recipient: p.Recipient, Data: p.Data, Fee: p.Fee, GasLimit: p.GasLimit,
		GasPrice: p.GasPrice, Timestamp: p.Timestamp,
		ContractAddress: p.ContractAddress, ContractValue: p.ContractValue,
		BatchRecipients: p.BatchRecipients, BatchAmounts: p.BatchAmounts,
		Version: p.Version,
	}
	if p.SenderPubKey != nil {
		j.SenderPubKey = hex.EncodeToString(p.SenderPubKey)
	}
	if p.ContractBytecode != nil {
		j.ContractBytecode = hex.EncodeToString(p.ContractBytecode)
	}
	if p.ContractInput != nil {
		j.ContractInput = hex.EncodeToString(p.ContractInput)
	}
	if p.ExtraData != nil {
		j.ExtraData = hex.EncodeToString(p.ExtraData)
	}
	return j
}

func (j payloadJSON) toPayload() (UnsignedPayload, error) {
	p := UnsignedPayload{
		Sender: j.Sender, Nonce: j.Nonce, TxType: j.TxType, Amount: j.Amount,
		Recipient: j.Recipient, Data: j.Data, Fee: j.Fee, GasLimit: j.GasLimit,
		GasPrice: j.GasPrice, Timestamp: j.Timestamp,
		ContractAddress: j.ContractAddress, ContractValue: j.ContractValue,
		BatchRecipients: j.BatchRecipients, BatchAmounts: j.BatchAmounts,
		Version: j.Version,
	}
	var err error
	if j.SenderPubKey != "" {
		if p.SenderPubKey, err = hex.DecodeString(j.SenderPubKey); err != nil {
			return p, fmt.Errorf("sender_pubkey: %w", err)
		}
	}
	if j.ContractBytecode != "" {
		if p.ContractBytecode, err = hex.DecodeString(j.ContractBytecode); err != nil {
			return p, fmt.Errorf("contract_bytecode: %w", err)
		}
	}
	if j.ContractInput != "" {
		if p.ContractInput, err = hex.DecodeString(j.ContractInput); err != nil {
			return p, fmt.Errorf("contract_input: %w", err)
		}
	}
	if j.ExtraData != "" {
		if p.ExtraData, err = hex.DecodeString(j.ExtraData); err != nil {
			return p, fmt.Errorf("extra_data: %w", err)
		}
	}
	return p, nil
}

// MarshalJSON encodes the payload with hex-encoded byte fields.
func (p UnsignedPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.toJSON())
}

// UnmarshalJSON decodes a payload with hex-encoded byte fields.
func (p *UnsignedPayload) UnmarshalJSON(data []byte) error {
	var j payloadJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	decoded, err := j.toPayload()
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// ID returns the transaction ID: the hex Keccak-256 of the canonical JSON
// of the unsigned payload.
func (p UnsignedPayload) ID() types.Hash {
	canonical, err := crypto.CanonicalJSON(p)
	if err != nil {
		panic(fmt.Sprintf("tx: payload does not marshal: %v", err))
	}
	return crypto.Keccak256(canonical)
}

// Transaction is a signed, immutable (once constructed) transaction.
type Transaction struct {
	Payload   UnsignedPayload `json:"-"`
	Signature [64]byte        `json:"-"`
}

// transactionJSON flattens Payload's fields alongside the hex signature, so
// the wire form matches the reference implementation's single flat object.
type transactionJSON struct {
	payloadJSON
	Signature string `json:"signature,omitempty"`
}

// MarshalJSON encodes the transaction as a single flat object: the payload
// fields plus a hex-encoded signature.
func (t Transaction) MarshalJSON() ([]byte, error) {
	j := transactionJSON{payloadJSON: t.Payload.toJSON()}
	if t.Signature != ([64]byte{}) {
		j.Signature = hex.EncodeToString(t.Signature[:])
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a flat transaction object into Payload + Signature.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	payload, err := j.payloadJSON.toPayload()
	if err != nil {
		return err
	}
	t.Payload = payload
	if j.Signature != "" {
		sig, err := hex.DecodeString(j.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		if len(sig) != 64 {
			return fmt.Errorf("signature: want 64 bytes, got %d", len(sig))
		}
		copy(t.Signature[:], sig)
	}
	return nil
}

// ID returns the transaction ID (hash of the unsigned payload).
func (t *Transaction) ID() types.Hash {
	return t.Payload.ID()
}

// VerifySignature checks that Signature is a valid ECDSA signature by
// SenderPubKey over Keccak-256(canonical JSON of Payload), and that
// SenderPubKey actually derives Sender.
func (t *Transaction) VerifySignature() bool {
	if crypto.AddressFromPubKey(t.Payload.SenderPubKey) != t.Payload.Sender {
		return false
	}
	canonical, err := crypto.CanonicalJSON(t.Payload)
	if err != nil {
		return false
	}
	digest := crypto.Keccak256(canonical)
	return crypto.VerifySignature(t.Payload.SenderPubKey, digest, t.Signature)
}

// Sign signs the payload with priv, filling in SenderPubKey and Signature.
func Sign(payload UnsignedPayload, priv *crypto.PrivateKey) (*Transaction, error) {
	payload.SenderPubKey = priv.PublicKeyUncompressed()
	payload.Sender = priv.Address()
	canonical, err := crypto.CanonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("tx: canonicalize payload: %w", err)
	}
	digest := crypto.Keccak256(canonical)
	sig, err := priv.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("tx: sign: %w", err)
	}
	return &Transaction{Payload: payload, Signature: sig}, nil
}
