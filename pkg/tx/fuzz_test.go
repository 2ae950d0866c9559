package tx

import (
	"encoding/json"
	"testing"
)

// FuzzTxUnmarshal tests that arbitrary JSON input does not panic when
// unmarshaled into a Transaction struct.
func FuzzTxUnmarshal(f *testing.F) {
	f.Add([]byte(`{"sender":"0x0000000000000000000000000000000000000001","tx_type":"transfer","amount":1000,"recipient":"0x0000000000000000000000000000000000000002","nonce":0,"gas_limit":21000,"gas_price":10,"fee":210}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"tx_type":"transfer","data":null}`))
	f.Add([]byte(`{"tx_type":"contract_deploy","contract_bytecode":""}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var transaction Transaction
		if err := json.Unmarshal(data, &transaction); err != nil {
			return
		}
		// If unmarshal succeeded, these must not panic.
		transaction.ID()
		transaction.Validate()
		transaction.VerifySignature() // May fail but must not panic.
	})
}
