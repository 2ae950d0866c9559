package evm

import (
	"encoding/binary"
	"fmt"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// Reference opcode subset (spec.md §4.9): enough to deploy a contract that
// stores a value and to read it back on a later call, without depending on
// a production London-semantics interpreter. Not EVM-bytecode-compatible —
// a real interpreter plugs in via the Interpreter seam instead.
const (
	OpStop   byte = 0x00
	OpPush8  byte = 0x60 // followed by 8 big-endian bytes, pushed as a uint64
	OpSStore byte = 0x55 // pops key, then value; stores key -> value
	OpSLoad  byte = 0x54 // pops key; pushes stored value (0 if unset)
	OpReturn byte = 0xf3 // pops value; returns it as 8 big-endian bytes
)

// gas cost per opcode, charged before executing it.
const (
	gasPush8  = 3
	gasSStore = 5000
	gasSLoad  = 200
	gasReturn = 0
	gasStop   = 0
)

// StorageBackend is the per-contract key/value store a ReferenceInterpreter
// reads and writes SSTORE/SLOAD against.
type StorageBackend interface {
	Get(key types.Hash) types.Hash
	Set(key, value types.Hash)
}

// ReferenceInterpreter is a minimal, deterministic stand-in for a
// production bytecode engine: a tiny stack machine over uint64 words with
// five opcodes, sufficient to exercise deploy/call/storage round trips in
// tests. Bind must be called with the target contract's storage before
// each Run.
type ReferenceInterpreter struct {
	backend StorageBackend
}

// NewReferenceInterpreter creates an interpreter with no backend bound.
func NewReferenceInterpreter() *ReferenceInterpreter {
	return &ReferenceInterpreter{}
}

// Bind sets the storage backend SSTORE/SLOAD operate against for the next
// Run call. The EVM adapter calls this once per Deploy/Call, holding its
// own lock, so there is no concurrent-Run hazard.
func (r *ReferenceInterpreter) Bind(backend StorageBackend) {
	r.backend = backend
}

// Run executes code, a sequence of the opcodes above, against a uint64
// stack. input is ignored by this reference subset (real contracts would
// decode a function selector from it).
func (r *ReferenceInterpreter) Run(code, input []byte, gas uint64) ([]byte, uint64, error) {
	var stack []uint64
	pop := func() (uint64, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("stack underflow")
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}
	push := func(v uint64) { stack = append(stack, v) }

	charge := func(cost uint64) error {
		if gas < cost {
			return fmt.Errorf("out of gas")
		}
		gas -= cost
		return nil
	}

	for pc := 0; pc < len(code); {
		op := code[pc]
		switch op {
		case OpStop:
			if err := charge(gasStop); err != nil {
				return nil, gas, err
			}
			return nil, gas, nil

		case OpPush8:
			if err := charge(gasPush8); err != nil {
				return nil, gas, err
			}
			if pc+9 > len(code) {
				return nil, gas, fmt.Errorf("truncated PUSH8 operand")
			}
			push(binary.BigEndian.Uint64(code[pc+1 : pc+9]))
			pc += 9
			continue

		case OpSStore:
			if err := charge(gasSStore); err != nil {
				return nil, gas, err
			}
			key, err := pop()
			if err != nil {
				return nil, gas, err
			}
			value, err := pop()
			if err != nil {
				return nil, gas, err
			}
			if r.backend != nil {
				r.backend.Set(uint64ToHash(key), uint64ToHash(value))
			}

		case OpSLoad:
			if err := charge(gasSLoad); err != nil {
				return nil, gas, err
			}
			key, err := pop()
			if err != nil {
				return nil, gas, err
			}
			var value types.Hash
			if r.backend != nil {
				value = r.backend.Get(uint64ToHash(key))
			}
			push(hashToUint64(value))

		case OpReturn:
			if err := charge(gasReturn); err != nil {
				return nil, gas, err
			}
			value, err := pop()
			if err != nil {
				return nil, gas, err
			}
			out := make([]byte, 8)
			binary.BigEndian.PutUint64(out, value)
			return out, gas, nil

		default:
			return nil, gas, fmt.Errorf("unsupported opcode 0x%02x", op)
		}
		pc++
	}
	return nil, gas, nil
}

func uint64ToHash(v uint64) types.Hash {
	var h types.Hash
	binary.BigEndian.PutUint64(h[len(h)-8:], v)
	return h
}

func hashToUint64(h types.Hash) uint64 {
	return binary.BigEndian.Uint64(h[len(h)-8:])
}
