package block

import (
	"encoding/json"
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
)

// FuzzBlockUnmarshal tests that arbitrary JSON input does not panic when
// unmarshaled into a Block struct.
func FuzzBlockUnmarshal(f *testing.F) {
	f.Add([]byte(`{"header":{"height":0,"timestamp":1000,"proposer":"0x0000000000000000000000000000000000000001","vm_version":"none","protocol_version":1,"hash":"0000000000000000000000000000000000000000000000000000000000000000"},"transactions":[]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"header":null}`))
	f.Add([]byte(`{"header":{"height":99999},"transactions":[{"tx_type":"transfer"}]}`))

	rules := config.MainnetGenesis().Protocol.Consensus

	f.Fuzz(func(t *testing.T, data []byte) {
		var blk Block
		if err := json.Unmarshal(data, &blk); err != nil {
			return // Invalid JSON is expected.
		}
		// If unmarshal succeeded, these must not panic.
		blk.Validate(rules)
		blk.Hash()
	})
}

// FuzzBlockHeaderUnmarshal tests that arbitrary JSON input does not panic
// when unmarshaled into a Header struct.
func FuzzBlockHeaderUnmarshal(f *testing.F) {
	f.Add([]byte(`{"height":1000,"timestamp":1000,"protocol_version":1}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"total_fees":18446744073709551615}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var h Header
		if err := json.Unmarshal(data, &h); err != nil {
			return
		}
		h.ComputeHash()
		h.VerifySignature()
	})
}
