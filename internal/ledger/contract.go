package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// contractAddressInput is RLP-encoded as [sender, sender_nonce], matching
// Ethereum's CREATE address derivation (spec.md §4.4).
type contractAddressInput struct {
	Sender types.Address
	Nonce  uint64
}

// ContractAddress derives a deploy address as the last 20 bytes of
// keccak256(rlp([sender, sender_nonce])).
func ContractAddress(sender types.Address, senderNonce uint64) (types.Address, error) {
	encoded, err := rlp.EncodeToBytes(contractAddressInput{Sender: sender, Nonce: senderNonce})
	if err != nil {
		return types.Address{}, fmt.Errorf("ledger: rlp encode: %w", err)
	}
	digest := crypto.Keccak256(encoded)
	var addr types.Address
	copy(addr[:], digest[len(digest)-types.AddressSize:])
	return addr, nil
}
