package producer

import (
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/ledger"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/block"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// BuildGenesisBlock seeds l from g's allocations and initial validator set,
// then constructs the height-0 block committing to the resulting state
// (spec.md §3: "Genesis has prev_hash = 0×64 and fixed sentinel hashes").
// Unlike every later block, genesis carries no proposer signature — there
// is no proposer at height 0, the protocol itself originates the chain —
// so its tx_root and validator_set_hash are left at their zero sentinel
// rather than computed. A later block with no transactions also carries
// the zero tx_root, since ComputeTxRoot returns it for an empty list.
// Grounded on the
// teacher's chain.CreateGenesisBlock, generalized from a UTXO coinbase
// transaction to a direct account-balance credit since the account model
// has no coinbase transaction kind.
func BuildGenesisBlock(g *config.Genesis, l *ledger.Ledger) (*block.Block, uint64, error) {
	totalMinted, err := l.ApplyGenesis(g)
	if err != nil {
		return nil, 0, fmt.Errorf("producer: apply genesis: %w", err)
	}

	data := block.HeaderData{
		Height:               0,
		PrevHash:             types.Hash{},
		Timestamp:            g.Timestamp,
		TxRoot:               types.Hash{},
		StateRoot:            l.StateRoot(),
		ValidatorSetHash:     types.Hash{},
		NextValidatorSetHash: ValidatorSetHash(l),
		ConsensusHash:        ConsensusHash(g.Protocol.Consensus),
		AppHash:              l.StateRoot(),
		VMVersion:            g.Protocol.Contract.VMVersion,
		ProtocolVersion:      config.ProtocolVersion,
	}
	header := &block.Header{Data: data}
	header.Hash = header.ComputeHash()

	return block.NewBlock(header, nil), totalMinted, nil
}
