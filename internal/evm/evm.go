// Package evm implements the node's smart-contract adapter: it derives
// contract addresses and persists code and storage around calls into an
// Interpreter. It holds no reference to internal/ledger and does not read
// or write account balances or nonces; the value passed to Deploy/Call is
// not transferred. The actual London-semantics bytecode execution is treated
// as an external collaborator (spec.md §1/§4.9; grounded on
// original_source/vm/unicrium_evm.py's deploy_contract/call_contract
// shape).
package evm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/ledger"
	"github.com/unicriumnetwork/Unicrium-BlockChain/internal/storage"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// MaxContractSize is the maximum deployable bytecode size in bytes
// (spec.md §4.9, matching the reference's 24,576-byte EIP-170 limit).
const MaxContractSize = 24_576

// Interpreter is the seam a production London-semantics bytecode engine
// plugs into. Run executes code against input with the given gas budget,
// returning the output bytes, remaining gas, and any execution error.
type Interpreter interface {
	Run(code, input []byte, gas uint64) (ret []byte, gasLeft uint64, err error)
}

// contractRecord is what's persisted per contract in the side-namespace:
// bytecode plus key/value storage, hex-encoded for JSON.
type contractRecord struct {
	Bytecode string            `json:"bytecode"`
	Storage  map[string]string `json:"storage"`
}

// EVM owns contract code/storage persistence and gas-metered dispatch
// into an Interpreter.
type EVM struct {
	mu     sync.RWMutex
	db     storage.DB // contract side-namespace, keyed by address hex
	interp Interpreter
}

// New creates an EVM adapter backed by db (the contract side-namespace —
// spec.md's C3, typically a storage.PrefixDB carved out of the ledger
// state database rather than a directory of its own) and interp (the
// bytecode engine). Existing contracts are not eagerly loaded;
// GetCode/GetStorage read through to db on demand.
func New(db storage.DB, interp Interpreter) *EVM {
	return &EVM{db: db, interp: interp}
}

// Binder is implemented by interpreters that read/write per-contract
// storage (ReferenceInterpreter does); a production interpreter may
// instead take a full StateDB and not need this.
type Binder interface {
	Bind(StorageBackend)
}

// bindInterpreter points e.interp's storage access at contract, if the
// configured interpreter supports binding. Must be called with e.mu held.
func (e *EVM) bindInterpreter(contract types.Address) {
	if binder, ok := e.interp.(Binder); ok {
		binder.Bind(&contractStorageBackend{evm: e, addr: contract})
	}
}

// contractStorageBackend adapts a single contract's persisted storage to
// the StorageBackend interface the ReferenceInterpreter runs against. Its
// Get/Set call the unlocked load/saveRecord helpers directly since the EVM
// already holds e.mu for the duration of the bound Run call.
type contractStorageBackend struct {
	evm  *EVM
	addr types.Address
}

func (b *contractStorageBackend) Get(key types.Hash) types.Hash {
	rec, err := b.evm.loadRecord(b.addr)
	if err != nil || rec == nil || rec.Storage == nil {
		return types.Hash{}
	}
	raw, ok := rec.Storage[key.String()]
	if !ok {
		return types.Hash{}
	}
	value, err := types.HexToHash(raw)
	if err != nil {
		return types.Hash{}
	}
	return value
}

func (b *contractStorageBackend) Set(key, value types.Hash) {
	rec, err := b.evm.loadRecord(b.addr)
	if err != nil || rec == nil {
		rec = &contractRecord{Storage: map[string]string{}}
	}
	if rec.Storage == nil {
		rec.Storage = map[string]string{}
	}
	rec.Storage[key.String()] = value.String()
	_ = b.evm.saveRecord(b.addr, rec)
}

func contractKey(addr types.Address) []byte {
	return []byte("contract:" + addr.String())
}

func (e *EVM) loadRecord(addr types.Address) (*contractRecord, error) {
	raw, err := e.db.Get(contractKey(addr))
	if err != nil {
		return nil, nil // not found: treat as "no contract" rather than an error
	}
	var rec contractRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("evm: decode contract record: %w", err)
	}
	return &rec, nil
}

func (e *EVM) saveRecord(addr types.Address, rec *contractRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("evm: encode contract record: %w", err)
	}
	return e.db.Put(contractKey(addr), raw)
}

// ContractAddress derives the CREATE-style deploy address for (sender,
// senderNonce), delegating to internal/ledger's implementation so both
// packages agree on one algorithm.
func ContractAddress(sender types.Address, senderNonce uint64) (types.Address, error) {
	return ledger.ContractAddress(sender, senderNonce)
}

// Deploy runs constructor bytecode for contract and persists the
// resulting code on success. Implements ledger.ContractExecutor.
func (e *EVM) Deploy(contract types.Address, bytecode []byte, value uint64, gasLimit uint64) (uint64, error) {
	if len(bytecode) == 0 {
		return 0, fmt.Errorf("evm: empty bytecode")
	}
	if len(bytecode) > MaxContractSize {
		return 0, fmt.Errorf("evm: bytecode size %d exceeds max %d", len(bytecode), MaxContractSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.bindInterpreter(contract)
	ret, gasLeft, err := e.interp.Run(bytecode, nil, gasLimit)
	gasUsed := gasLimit - gasLeft
	if err != nil {
		return gasUsed, fmt.Errorf("evm: deploy: %w", err)
	}

	deployedCode := ret
	if len(deployedCode) == 0 {
		deployedCode = bytecode
	}

	// The constructor may have already written storage via the bound
	// backend; preserve it instead of clobbering with an empty map.
	rec, err := e.loadRecord(contract)
	if err != nil {
		return gasUsed, err
	}
	if rec == nil {
		rec = &contractRecord{Storage: map[string]string{}}
	}
	rec.Bytecode = bytesToHex(deployedCode)
	if err := e.saveRecord(contract, rec); err != nil {
		return gasUsed, err
	}
	return gasUsed, nil
}

// Call invokes an existing contract's code. Implements ledger.ContractExecutor.
func (e *EVM) Call(caller, contract types.Address, input []byte, value uint64, gasLimit uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.loadRecord(contract)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, fmt.Errorf("evm: contract %s not found", contract)
	}

	code, err := hexToBytes(rec.Bytecode)
	if err != nil {
		return 0, fmt.Errorf("evm: decode stored bytecode: %w", err)
	}

	e.bindInterpreter(contract)
	ret, gasLeft, err := e.interp.Run(code, input, gasLimit)
	gasUsed := gasLimit - gasLeft
	if err != nil {
		return gasUsed, fmt.Errorf("evm: call: %w", err)
	}
	_ = ret // return data is not surfaced to the ledger layer (spec.md §4.9 only needs gasUsed/err)
	return gasUsed, nil
}

// ContractExists reports whether a contract has been deployed at addr.
func (e *EVM) ContractExists(addr types.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.loadRecord(addr)
	return err == nil && rec != nil
}

// GetCode returns a contract's deployed bytecode, or nil if none exists.
func (e *EVM) GetCode(addr types.Address) []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.loadRecord(addr)
	if err != nil || rec == nil {
		return nil
	}
	code, err := hexToBytes(rec.Bytecode)
	if err != nil {
		return nil
	}
	return code
}

// GetStorage returns the 32-byte value at key in contract's storage, or
// the zero hash if unset.
func (e *EVM) GetStorage(addr types.Address, key types.Hash) types.Hash {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, err := e.loadRecord(addr)
	if err != nil || rec == nil {
		return types.Hash{}
	}
	raw, ok := rec.Storage[key.String()]
	if !ok {
		return types.Hash{}
	}
	value, err := types.HexToHash(raw)
	if err != nil {
		return types.Hash{}
	}
	return value
}

// SetStorage writes value at key in contract's storage, persisting the
// change immediately.
func (e *EVM) SetStorage(addr types.Address, key, value types.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.loadRecord(addr)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &contractRecord{Storage: map[string]string{}}
	}
	if rec.Storage == nil {
		rec.Storage = map[string]string{}
	}
	rec.Storage[key.String()] = value.String()
	return e.saveRecord(addr, rec)
}
