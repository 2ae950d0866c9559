package ledger

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// accountStateJSON is the wire shape state_root hashes over, matching
// storage/ledger.py's Ledger.state_root exactly: balance and staked as
// decimal strings (so huge base-unit amounts survive JSON round-trips
// identically to Python's arbitrary-precision ints), nonce as a number,
// and code_hash as a fixed empty string for every account, contracts
// included.
type accountStateJSON struct {
	Balance  string `json:"balance"`
	Nonce    uint64 `json:"nonce"`
	Staked   string `json:"staked"`
	CodeHash string `json:"code_hash"`
}

// StateRoot computes the deterministic commitment over every tracked
// account: a sorted-by-address JSON map, canonicalized, then Keccak-256'd
// (spec.md §4.4 — unlike C2's merkle combine step, which uses the
// SHA-256-based hash_object, state_root is explicitly specified as a
// keccak256 digest). Must be sampled only after every ApplyTransaction for
// the block has run.
func (l *Ledger) StateRoot() types.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]string, 0, len(l.accounts))
	byAddr := make(map[string]*Account, len(l.accounts))
	for addr, acc := range l.accounts {
		s := addr.String()
		addrs = append(addrs, s)
		byAddr[s] = acc
	}
	sort.Strings(addrs)

	state := make(map[string]accountStateJSON, len(addrs))
	for _, s := range addrs {
		acc := byAddr[s]
		state[s] = accountStateJSON{
			Balance:  strconv.FormatUint(acc.Balance, 10),
			Nonce:    acc.Nonce,
			Staked:   strconv.FormatUint(acc.Staked, 10),
			CodeHash: "",
		}
	}

	canonical, err := crypto.CanonicalJSON(state)
	if err != nil {
		panic(fmt.Sprintf("ledger: state does not marshal: %v", err))
	}
	return crypto.Keccak256(canonical)
}
