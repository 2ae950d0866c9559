package tx

import "testing"

func TestUnsignedPayload_DataSize(t *testing.T) {
	p := UnsignedPayload{
		ContractBytecode: []byte{0x01, 0x02, 0x03},
		ContractInput:    []byte{0x04},
		ExtraData:        []byte{0x05, 0x06},
	}
	if got := p.DataSize(); got != 6 {
		t.Errorf("DataSize() = %d, want 6", got)
	}
}

func TestUnsignedPayload_DataSize_IncludesDataMap(t *testing.T) {
	p := UnsignedPayload{Data: map[string]any{"stake_amount": 1000}}
	if got := p.DataSize(); got == 0 {
		t.Error("DataSize() should account for the data map's JSON encoding")
	}
}

func TestUnsignedPayload_TotalCost(t *testing.T) {
	p := UnsignedPayload{Amount: 5000, Fee: 210}
	got, err := p.TotalCost()
	if err != nil {
		t.Fatalf("TotalCost() error: %v", err)
	}
	if got != 5210 {
		t.Errorf("TotalCost() = %d, want 5210", got)
	}
}

func TestUnsignedPayload_TotalCost_Overflow(t *testing.T) {
	p := UnsignedPayload{Amount: ^uint64(0), Fee: 1}
	if _, err := p.TotalCost(); err == nil {
		t.Error("TotalCost() should reject amount+fee overflow")
	}
}
