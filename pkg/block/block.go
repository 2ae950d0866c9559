// Package block defines the account-model block type: a signed header plus
// an ordered transaction list, with merkle tx-root computation and
// structural validation.
package block

import (
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/merkle"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Block is a signed header plus the transactions it carries.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	if txs == nil {
		txs = []*tx.Transaction{}
	}
	return &Block{Header: header, Transactions: txs}
}

// ComputeTxRoot returns the tx_root for a candidate block's transaction
// list: the zeroed 64-hex sentinel for an empty block (per the block
// producer's §4.10 rule), otherwise the merkle root over the transaction
// IDs in block order.
func ComputeTxRoot(txs []*tx.Transaction) types.Hash {
	if len(txs) == 0 {
		return types.Hash{}
	}
	ids := make([]types.Hash, len(txs))
	for i, t := range txs {
		ids[i] = t.ID()
	}
	return merkle.Root(ids)
}

// Hash returns the block's header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash
}

// Height returns the block's height, or 0 if the header is missing.
func (b *Block) Height() uint64 {
	if b.Header == nil {
		return 0
	}
	return b.Header.Data.Height
}
