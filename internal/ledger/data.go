package ledger

import (
	"encoding/hex"
	"strings"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

// dataUint64 reads an integer-valued field out of a transaction's free-form
// Data map. JSON-decoded payloads carry numbers as float64; payloads built
// directly in Go code may carry any integer type, so both are accepted.
func dataUint64(data map[string]any, key string) (uint64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}

// dataFloat64 reads a float-valued field (e.g. commission_rate) out of Data.
func dataFloat64(data map[string]any, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// dataString reads a string-valued field out of Data.
func dataString(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// dataAddress reads a "0x"-prefixed hex address field out of Data.
func dataAddress(data map[string]any, key string) (types.Address, bool) {
	s, ok := dataString(data, key)
	if !ok {
		return types.Address{}, false
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return types.Address{}, false
	}
	return addr, true
}

// decodeHexOrBytes decodes a hex public-key string, with or without a
// "0x" prefix.
func decodeHexOrBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
