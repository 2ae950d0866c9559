package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// SignatureSize is the length, in bytes, of a raw (r||s) ECDSA signature.
const SignatureSize = 64

// PublicKeySize is the length of an uncompressed secp256k1 public key with
// the leading 0x04 marker stripped.
const PublicKeySize = 64

// PrivateKey wraps a secp256k1 private key for ECDSA signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKeyPair creates a new random secp256k1 keypair.
func GenerateKeyPair() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// KeyPairFromSeed derives a deterministic keypair from a seed string,
// useful for tests and genesis validator provisioning. Mirrors the
// reference implementation's seed-to-key derivation: sha256(seed) used
// directly as the scalar.
func KeyPairFromSeed(seed string) *PrivateKey {
	h := sha256.Sum256([]byte(seed))
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(h[:])}
}

// PrivateKeyFromBytes builds a PrivateKey from a 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PublicKeyUncompressed returns the 64-byte uncompressed public key (X||Y,
// no 0x04 marker) used throughout the wire format and address derivation.
func (pk *PrivateKey) PublicKeyUncompressed() []byte {
	serialized := pk.key.PubKey().SerializeUncompressed()
	return serialized[1:] // drop the 0x04 marker
}

// Serialize returns the 32-byte private scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero wipes the private key's memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// Address derives the 20-byte address this key signs for.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPubKey(pk.PublicKeyUncompressed())
}

// Sign produces a raw 64-byte (r||s) ECDSA signature over a 32-byte
// digest. The digest is expected to already be the Keccak-256 hash of the
// signed payload (Sign does not hash again).
func (pk *PrivateKey) Sign(digest [32]byte) ([SignatureSize]byte, error) {
	compact := ecdsa.SignCompact(pk.key, digest[:], false)
	var sig [SignatureSize]byte
	// SignCompact returns recovery-id || R || S (65 bytes); the wire
	// format only carries the raw 64-byte R||S pair.
	copy(sig[:], compact[1:])
	return sig, nil
}

// VerifySignature checks a raw 64-byte (r||s) signature over digest
// against an uncompressed (64-byte, no 0x04 marker) public key.
func VerifySignature(pubKey []byte, digest [32]byte, sig [SignatureSize]byte) bool {
	pub, err := parsePubKey(pubKey)
	if err != nil {
		return false
	}
	r := new(secp256k1.ModNScalar)
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false
	}
	s := new(secp256k1.ModNScalar)
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false
	}
	signature := ecdsa.NewSignature(r, s)
	return signature.Verify(digest[:], pub)
}

// parsePubKey accepts either a 64-byte uncompressed key (no marker) or a
// 65-byte key with the 0x04 marker still attached.
func parsePubKey(pubKey []byte) (*secp256k1.PublicKey, error) {
	switch len(pubKey) {
	case PublicKeySize:
		full := make([]byte, 0, 65)
		full = append(full, 0x04)
		full = append(full, pubKey...)
		return secp256k1.ParsePubKey(full)
	case PublicKeySize + 1:
		return secp256k1.ParsePubKey(pubKey)
	default:
		return nil, fmt.Errorf("public key must be %d or %d bytes, got %d", PublicKeySize, PublicKeySize+1, len(pubKey))
	}
}

// AddressFromPubKey derives a 20-byte address from an uncompressed public
// key: Keccak-256 of the 64-byte X||Y coordinates, last 20 bytes.
func AddressFromPubKey(pubKey []byte) types.Address {
	key := pubKey
	if len(key) == PublicKeySize+1 && key[0] == 0x04 {
		key = key[1:]
	}
	h := Keccak256(key)
	var addr types.Address
	copy(addr[:], h[types.HashSize-types.AddressSize:])
	return addr
}
