package config

import "testing"

func TestGenesis_Validate_MainnetValid(t *testing.T) {
	g := MainnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("mainnet genesis should be valid: %v", err)
	}
}

func TestGenesis_Validate_TestnetValid(t *testing.T) {
	g := TestnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("testnet genesis should be valid: %v", err)
	}
}

func TestGenesis_Validate_RejectsLowDefaultGasPrice(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Gas.DefaultGasPrice = 0
	g.Protocol.Gas.MinGasPrice = 1
	if err := g.Validate(); err == nil {
		t.Error("default_gas_price below min_gas_price should fail validation")
	}
}

func TestGenesis_Validate_RejectsUnderStakedValidator(t *testing.T) {
	g := MainnetGenesis()
	g.Validators = map[string]uint64{
		"0x0000000000000000000000000000000000000001": 1,
	}
	if err := g.Validate(); err == nil {
		t.Error("validator stake below min_validator_stake should fail validation")
	}
}

func TestGenesis_Hash_Deterministic(t *testing.T) {
	g := MainnetGenesis()
	h1, err := g.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := g.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Error("genesis hash should be deterministic")
	}
}
