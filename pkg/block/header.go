package block

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// HeaderData is every block header field except the proposer's signature
// and the cached header hash. Signing and verification both hash the
// canonical JSON of this struct (with the signature appended separately,
// see Header.ComputeHash).
type HeaderData struct {
	Height               uint64        `json:"height"`
	PrevHash             types.Hash    `json:"prev_hash"`
	Timestamp            uint64        `json:"timestamp"`
	Proposer             types.Address `json:"proposer"`
	ProposerPubKey       []byte        `json:"proposer_pubkey"`
	TxRoot               types.Hash    `json:"tx_root"`
	StateRoot            types.Hash    `json:"state_root"`
	ValidatorSetHash     types.Hash    `json:"validator_set_hash"`
	NextValidatorSetHash types.Hash    `json:"next_validator_set_hash"`
	ConsensusHash        types.Hash    `json:"consensus_hash"`
	AppHash              types.Hash    `json:"app_hash"`
	TotalFees            uint64        `json:"total_fees"`
	BlockReward          uint64        `json:"block_reward"`

	ContractsDeployed uint64 `json:"contracts_deployed"`
	ContractCalls     uint64 `json:"contract_calls"`
	ContractGasUsed   uint64 `json:"contract_gas_used"`

	VMVersion       string `json:"vm_version"`
	ProtocolVersion uint32 `json:"protocol_version"`

	ExtraData      []byte `json:"extra_data,omitempty"`
	ReservedField1 uint64 `json:"reserved_field1,omitempty"`
	ReservedField2 uint64 `json:"reserved_field2,omitempty"`
	ReservedField3 string `json:"reserved_field3,omitempty"`
}

// headerDataJSON mirrors HeaderData with hex-encoded byte fields.
type headerDataJSON struct {
	Height               uint64        `json:"height"`
	PrevHash             types.Hash    `json:"prev_hash"`
	Timestamp            uint64        `json:"timestamp"`
	Proposer             types.Address `json:"proposer"`
	ProposerPubKey       string        `json:"proposer_pubkey,omitempty"`
	TxRoot               types.Hash    `json:"tx_root"`
	StateRoot            types.Hash    `json:"state_root"`
	ValidatorSetHash     types.Hash    `json:"validator_set_hash"`
	NextValidatorSetHash types.Hash    `json:"next_validator_set_hash"`
	ConsensusHash        types.Hash    `json:"consensus_hash"`
	AppHash              types.Hash    `json:"app_hash"`
	TotalFees            uint64        `json:"total_fees"`
	BlockReward          uint64        `json:"block_reward"`

	ContractsDeployed uint64 `json:"contracts_deployed"`
	ContractCalls     uint64 `json:"contract_calls"`
	ContractGasUsed   uint64 `json:"contract_gas_used"`

	VMVersion       string `json:"vm_version"`
	ProtocolVersion uint32 `json:"protocol_version"`

	ExtraData      string `json:"extra_data,omitempty"`
	ReservedField1 uint64 `json:"reserved_field1,omitempty"`
	ReservedField2 uint64 `json:"reserved_field2,omitempty"`
	ReservedField3 string `json:"reserved_field3,omitempty"`
}

func (d HeaderData) toJSON() headerDataJSON {
	j := headerDataJSON{
		Height: d.Height, PrevHash: d.PrevHash, Timestamp: d.Timestamp,
		Proposer: d.Proposer, TxRoot: d.TxRoot, StateRoot: d.StateRoot,
		ValidatorSetHash: d.ValidatorSetHash, NextValidatorSetHash: d.NextValidatorSetHash,
		ConsensusHash: d.ConsensusHash, AppHash: d.AppHash,
		TotalFees: d.TotalFees, BlockReward: d.BlockReward,
		ContractsDeployed: d.ContractsDeployed, ContractCalls: d.ContractCalls,
		ContractGasUsed: d.ContractGasUsed,
		VMVersion:       d.VMVersion, ProtocolVersion: d.ProtocolVersion,
		ReservedField1: d.ReservedField1, ReservedField2: d.ReservedField2,
		ReservedField3: d.ReservedField3,
	}
	if d.ProposerPubKey != nil {
		j.ProposerPubKey = hex.EncodeToString(d.ProposerPubKey)
	}
	if d.ExtraData != nil {
		j.ExtraData = hex.EncodeToString(d.ExtraData)
	}
	return j
}

func (j headerDataJSON) toData() (HeaderData, error) {
	d := HeaderData{
		Height: j.Height, PrevHash: j.PrevHash, Timestamp: j.Timestamp,
		Proposer: j.Proposer, TxRoot: j.TxRoot, StateRoot: j.StateRoot,
		ValidatorSetHash: j.ValidatorSetHash, NextValidatorSetHash: j.NextValidatorSetHash,
		ConsensusHash: j.ConsensusHash, AppHash: j.AppHash,
		TotalFees: j.TotalFees, BlockReward: j.BlockReward,
		ContractsDeployed: j.ContractsDeployed, ContractCalls: j.ContractCalls,
		ContractGasUsed: j.ContractGasUsed,
		VMVersion:       j.VMVersion, ProtocolVersion: j.ProtocolVersion,
		ReservedField1: j.ReservedField1, ReservedField2: j.ReservedField2,
		ReservedField3: j.ReservedField3,
	}
	var err error
	if j.ProposerPubKey != "" {
		if d.ProposerPubKey, err = hex.DecodeString(j.ProposerPubKey); err != nil {
			return d, fmt.Errorf("proposer_pubkey: %w", err)
		}
	}
	if j.ExtraData != "" {
		if d.ExtraData, err = hex.DecodeString(j.ExtraData); err != nil {
			return d, fmt.Errorf("extra_data: %w", err)
		}
	}
	return d, nil
}

// SigningDigest is the Keccak-256 digest the proposer's private key signs:
// the canonical JSON of HeaderData alone, signature not yet included.
func (d HeaderData) SigningDigest() types.Hash {
	canonical, err := crypto.CanonicalJSON(d)
	if err != nil {
		panic(fmt.Sprintf("block: header data does not marshal: %v", err))
	}
	return crypto.Keccak256(canonical)
}

// Header is a signed block header: HeaderData plus the proposer's
// signature and the cached header hash.
type Header struct {
	Data      HeaderData
	Signature [64]byte
	Hash      types.Hash
}

// headerWireJSON is the flat on-wire representation: header data fields,
// the hex signature, and the hex hash, all at the same level.
type headerWireJSON struct {
	headerDataJSON
	Signature string     `json:"signature,omitempty"`
	Hash      types.Hash `json:"hash"`
}

func (h Header) signedJSON() headerWireJSON {
	j := headerWireJSON{headerDataJSON: h.Data.toJSON(), Hash: h.Hash}
	if h.Signature != ([64]byte{}) {
		j.Signature = hex.EncodeToString(h.Signature[:])
	}
	return j
}

// MarshalJSON encodes the header as a single flat object.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.signedJSON())
}

// UnmarshalJSON decodes a flat header object.
func (h *Header) UnmarshalJSON(data []byte) error {
	var j headerWireJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	d, err := j.headerDataJSON.toData()
	if err != nil {
		return err
	}
	h.Data = d
	h.Hash = j.Hash
	if j.Signature != "" {
		sig, err := hex.DecodeString(j.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		if len(sig) != 64 {
			return fmt.Errorf("signature: want 64 bytes, got %d", len(sig))
		}
		copy(h.Signature[:], sig)
	}
	return nil
}

// ComputeHash returns the Keccak-256 of the canonical JSON of the header
// INCLUDING the signature, per the data model: hash is Keccak-256 of
// canonical JSON of the header (including signature). This is the one
// deliberate divergence from the teacher's Header.Hash(), which excluded
// the signature so the same digest could double as the signing message;
// here SigningDigest and ComputeHash are distinct on purpose.
func (h Header) ComputeHash() types.Hash {
	j := struct {
		headerDataJSON
		Signature string `json:"signature,omitempty"`
	}{headerDataJSON: h.Data.toJSON()}
	if h.Signature != ([64]byte{}) {
		j.Signature = hex.EncodeToString(h.Signature[:])
	}
	canonical, err := crypto.CanonicalJSON(j)
	if err != nil {
		panic(fmt.Sprintf("block: header does not marshal: %v", err))
	}
	return crypto.Keccak256(canonical)
}

// SignHeader signs data with priv, filling in Proposer/ProposerPubKey,
// Signature, and the resulting Hash.
func SignHeader(data HeaderData, priv *crypto.PrivateKey) (*Header, error) {
	data.ProposerPubKey = priv.PublicKeyUncompressed()
	data.Proposer = priv.Address()
	digest := data.SigningDigest()
	sig, err := priv.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("block: sign header: %w", err)
	}
	h := &Header{Data: data, Signature: sig}
	h.Hash = h.ComputeHash()
	return h, nil
}

// VerifySignature checks that Signature is a valid ECDSA signature by
// ProposerPubKey over the header's signing digest, and that
// ProposerPubKey actually derives Proposer.
func (h Header) VerifySignature() bool {
	if crypto.AddressFromPubKey(h.Data.ProposerPubKey) != h.Data.Proposer {
		return false
	}
	digest := h.Data.SigningDigest()
	return crypto.VerifySignature(h.Data.ProposerPubKey, digest, h.Signature)
}
