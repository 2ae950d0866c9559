// Package crypto provides the cryptographic primitives shared by every
// other package in the node: canonical-JSON object hashing, Keccak-256
// digests, and ECDSA/secp256k1 signing.
package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
	"golang.org/x/crypto/sha3"
)

// CanonicalJSON marshals v into the canonical form used for hashing and
// signing: sorted object keys AT EVERY NESTING LEVEL, no insignificant
// whitespace, ","/":" separators — matching the reference implementation's
// recursive `json.dumps(..., sort_keys=True)`. encoding/json only sorts
// map[string]T keys, and only at the level it is asked to marshal; a plain
// struct keeps its Go declaration order regardless of nesting, which would
// leak into the digest. To get sorting at every level regardless of v's
// shape (struct, nested struct, map of structs, ...), v is marshaled once,
// decoded back into a generic map[string]any/[]any tree (using
// json.Number so large uint64 literals survive the round trip exactly,
// rather than losing precision through float64), and marshaled again —
// this second pass is what actually produces sorted keys, since by then
// every object in the tree is a map[string]any.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// HashObject hashes the canonical JSON encoding of v with SHA-256. This
// mirrors hash_object: hashing a bare string still goes through JSON
// encoding first, so HashObject("EMPTY_BLOCK") hashes the 13-byte quoted
// literal `"EMPTY_BLOCK"`, not the bare 11-byte word.
func HashObject(v any) (types.Hash, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return types.Hash{}, err
	}
	return sha256.Sum256(canonical), nil
}

// MustHashObject is HashObject for values that are known to be
// JSON-marshalable (struct literals, maps of primitives); it panics on
// failure, which only a programmer error in the call site can trigger.
func MustHashObject(v any) types.Hash {
	h, err := HashObject(v)
	if err != nil {
		panic(err)
	}
	return h
}

// Keccak256 computes the Ethereum-style Keccak-256 digest of data, used
// for signing digests, addresses, and the state root.
func Keccak256(data ...[]byte) types.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out types.Hash
	h.Sum(out[:0])
	return out
}

// SortedAddressJSON marshals a per-account map (address -> {balance, nonce,
// staked, code_hash}) with its keys in sorted order. encoding/json already
// sorts map[string]T keys on marshal, so this is a thin, named wrapper.
// Ledger.StateRoot does not call it; it canonicalizes its map through
// CanonicalJSON.
func SortedAddressJSON(entries map[string]map[string]any) ([]byte, error) {
	return json.Marshal(entries)
}
