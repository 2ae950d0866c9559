package ledger

import (
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// ApplyGenesis seeds a fresh ledger from a genesis configuration: initial
// balance allocations, then the initial validator set at its configured
// self-stake. Both move base units into accounts (debited from nothing —
// genesis is the one place value is minted outside a block reward), so
// the caller is responsible for recording the resulting sum as
// total_minted (spec.md §3 "total_minted ≤ MAX_SUPPLY").
func (l *Ledger) ApplyGenesis(g *config.Genesis) (totalMinted uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for addrStr, balance := range g.Alloc {
		addr, perr := types.ParseAddress(addrStr)
		if perr != nil {
			return 0, fmt.Errorf("ledger: genesis alloc address %q: %w", addrStr, perr)
		}
		acc := l.getOrCreateAccountLocked(addr)
		acc.Balance += balance
		totalMinted += balance
	}

	for addrStr, stake := range g.Validators {
		addr, perr := types.ParseAddress(addrStr)
		if perr != nil {
			return 0, fmt.Errorf("ledger: genesis validator address %q: %w", addrStr, perr)
		}
		acc := l.getOrCreateAccountLocked(addr)
		acc.Staked += stake
		totalMinted += stake

		l.validators[addr] = &Validator{
			Address:        addr,
			Stake:          stake,
			CommissionRate: 0.1,
		}
	}

	return totalMinted, nil
}
