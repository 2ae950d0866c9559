package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// accountWire is Account's on-disk shape for the state:current snapshot
// (spec.md §6): ContractStorage is a map of 32-byte key to 32-byte value,
// which JSON can't key by [32]byte directly, so it round-trips as a
// hex-keyed map of hex values, mirroring how C3's contract side-directory
// already encodes per-contract storage.
type accountWire struct {
	Address           types.Address     `json:"address"`
	Balance           uint64            `json:"balance"`
	Nonce             uint64            `json:"nonce"`
	Staked            uint64            `json:"staked"`
	IsContract        bool              `json:"is_contract,omitempty"`
	ContractCode      string            `json:"contract_bytecode,omitempty"`
	ContractCodeHash  types.Hash        `json:"contract_bytecode_hash,omitempty"`
	ContractStorage   map[string]string `json:"contract_storage,omitempty"`
	ContractCreator   types.Address     `json:"contract_creator,omitempty"`
	ContractCreatedAt uint64            `json:"contract_created_at,omitempty"`
}

func accountToWire(acc *Account) accountWire {
	w := accountWire{
		Address: acc.Address, Balance: acc.Balance, Nonce: acc.Nonce, Staked: acc.Staked,
		IsContract: acc.IsContract, ContractCodeHash: acc.ContractCodeHash,
		ContractCreator: acc.ContractCreator, ContractCreatedAt: acc.ContractCreatedAt,
	}
	if acc.ContractCode != nil {
		w.ContractCode = hex.EncodeToString(acc.ContractCode)
	}
	if len(acc.ContractStorage) > 0 {
		w.ContractStorage = make(map[string]string, len(acc.ContractStorage))
		for k, v := range acc.ContractStorage {
			w.ContractStorage[k.String()] = v.String()
		}
	}
	return w
}

func (w accountWire) toAccount() (*Account, error) {
	acc := &Account{
		Address: w.Address, Balance: w.Balance, Nonce: w.Nonce, Staked: w.Staked,
		IsContract: w.IsContract, ContractCodeHash: w.ContractCodeHash,
		ContractCreator: w.ContractCreator, ContractCreatedAt: w.ContractCreatedAt,
	}
	if w.ContractCode != "" {
		code, err := hex.DecodeString(w.ContractCode)
		if err != nil {
			return nil, fmt.Errorf("account %s: contract_bytecode: %w", w.Address, err)
		}
		acc.ContractCode = code
	}
	if len(w.ContractStorage) > 0 {
		acc.ContractStorage = make(map[types.Hash]types.Hash, len(w.ContractStorage))
		for k, v := range w.ContractStorage {
			key, err := types.HexToHash(k)
			if err != nil {
				return nil, fmt.Errorf("account %s: storage key: %w", w.Address, err)
			}
			val, err := types.HexToHash(v)
			if err != nil {
				return nil, fmt.Errorf("account %s: storage value: %w", w.Address, err)
			}
			acc.ContractStorage[key] = val
		}
	}
	return acc, nil
}

// snapshotWire is the full state:current document (spec.md §6:
// "{accounts, validators, delegations, unbonding}").
type snapshotWire struct {
	Accounts    []accountWire    `json:"accounts"`
	Validators  []*Validator     `json:"validators"`
	Delegations []Delegation     `json:"delegations"`
	Unbonding   []UnbondingEntry `json:"unbonding"`
}

// Snapshot serializes the full ledger state to the canonical state:current
// document for persistence in C3's state namespace.
func (l *Ledger) Snapshot() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := snapshotWire{
		Accounts:    make([]accountWire, 0, len(l.accounts)),
		Validators:  make([]*Validator, 0, len(l.validators)),
		Delegations: l.delegations,
		Unbonding:   l.unbonding,
	}
	for _, acc := range l.accounts {
		snap.Accounts = append(snap.Accounts, accountToWire(acc))
	}
	for _, v := range l.validators {
		cp := *v
		snap.Validators = append(snap.Validators, &cp)
	}
	return json.Marshal(snap)
}

// LoadSnapshot replaces the ledger's in-memory state with the contents of
// a previously-serialized Snapshot, used on node restart to reopen at the
// latest committed height with identical state (spec.md §8 "Restarting the
// node re-opens at the latest committed height with identical state_root").
func (l *Ledger) LoadSnapshot(data []byte) error {
	var snap snapshotWire
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("ledger: unmarshal snapshot: %w", err)
	}

	accounts := make(map[types.Address]*Account, len(snap.Accounts))
	for _, w := range snap.Accounts {
		acc, err := w.toAccount()
		if err != nil {
			return err
		}
		accounts[acc.Address] = acc
	}
	validators := make(map[types.Address]*Validator, len(snap.Validators))
	for _, v := range snap.Validators {
		validators[v.Address] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = accounts
	l.validators = validators
	l.delegations = snap.Delegations
	l.unbonding = snap.Unbonding
	return nil
}
