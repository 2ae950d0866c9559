package crypto

import (
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

func TestHashObject_Deterministic(t *testing.T) {
	obj := map[string]any{"b": 2, "a": 1}
	h1, err := HashObject(obj)
	if err != nil {
		t.Fatalf("HashObject: %v", err)
	}
	h2, err := HashObject(obj)
	if err != nil {
		t.Fatalf("HashObject: %v", err)
	}
	if h1 != h2 {
		t.Errorf("HashObject is not deterministic: %x != %x", h1, h2)
	}
}

func TestHashObject_KeyOrderIrrelevant(t *testing.T) {
	h1, err := HashObject(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("HashObject: %v", err)
	}
	h2, err := HashObject(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("HashObject: %v", err)
	}
	if h1 != h2 {
		t.Error("HashObject should be invariant to map construction order")
	}
}

func TestHashObject_BareStringQuoted(t *testing.T) {
	// hash_object JSON-encodes whatever it's given, so a bare string is
	// hashed as its quoted JSON literal.
	viaString, err := HashObject(types.HashObjectSentinel)
	if err != nil {
		t.Fatalf("HashObject: %v", err)
	}
	canonical, err := CanonicalJSON(types.HashObjectSentinel)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if string(canonical) != `"EMPTY_BLOCK"` {
		t.Fatalf("canonical JSON of bare string = %s, want quoted literal", canonical)
	}
	want := MustHashObject(types.HashObjectSentinel)
	if viaString != want {
		t.Errorf("HashObject(EMPTY_BLOCK) mismatch")
	}
}

func TestHashObject_DifferentInputs(t *testing.T) {
	h1, _ := HashObject("input A")
	h2, _ := HashObject("input B")
	if h1 == h2 {
		t.Error("different inputs produced the same hash")
	}
}

func TestKeccak256_Deterministic(t *testing.T) {
	h1 := Keccak256([]byte("hello"))
	h2 := Keccak256([]byte("hello"))
	if h1 != h2 {
		t.Error("Keccak256 is not deterministic")
	}
}

func TestKeccak256_MultiArg_EqualsConcat(t *testing.T) {
	a := Keccak256([]byte("foo"), []byte("bar"))
	b := Keccak256([]byte("foobar"))
	if a != b {
		t.Error("Keccak256 of split args should equal Keccak256 of concatenation")
	}
}

func TestCanonicalJSON_SortsStructFieldsAtEveryLevel(t *testing.T) {
	// Field order here (b, a) deliberately disagrees with alphabetical
	// order, and the nested struct repeats the same trick, so a fix that
	// only sorts the top level would still fail this.
	type inner struct {
		Z string `json:"z"`
		Y string `json:"y"`
	}
	type outer struct {
		B     int   `json:"b"`
		A     int   `json:"a"`
		Inner inner `json:"inner"`
	}

	got, err := CanonicalJSON(outer{B: 2, A: 1, Inner: inner{Z: "z", Y: "y"}})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"a":1,"b":2,"inner":{"y":"y","z":"z"}}`
	if string(got) != want {
		t.Errorf("CanonicalJSON(outer{...}) = %s, want %s", got, want)
	}
}

func TestCanonicalJSON_PreservesLargeUint64Precision(t *testing.T) {
	// A round trip through interface{} without json.Number would decode
	// this as a float64 and reformat it, losing precision.
	const big = uint64(18446744073709551615) // max uint64
	got, err := CanonicalJSON(map[string]any{"amount": big})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"amount":18446744073709551615}`
	if string(got) != want {
		t.Errorf("CanonicalJSON(large uint64) = %s, want %s", got, want)
	}
}

func TestKeccak256_KnownVector(t *testing.T) {
	// keccak256("") = c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470
	got := Keccak256([]byte{})
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got.String() != want {
		t.Errorf("Keccak256(\"\") = %s, want %s", got.String(), want)
	}
}
