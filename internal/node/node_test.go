package node

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/unicriumnetwork/Unicrium-BlockChain/config"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/crypto"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/tx"
	"github.com/unicriumnetwork/Unicrium-BlockChain/pkg/types"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		input, want string
	}{
		{"~/foo/bar", filepath.Join(home, "foo/bar")},
		{"~/.unicrium/key", filepath.Join(home, ".unicrium/key")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadValidatorKey(t *testing.T) {
	privKey, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	keyHex := hex.EncodeToString(privKey.Serialize())

	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "validator.key")
	if err := os.WriteFile(keyPath, []byte(keyHex+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := loadValidatorKey(keyPath)
	if err != nil {
		t.Fatalf("loadValidatorKey: %v", err)
	}
	if hex.EncodeToString(loaded.Serialize()) != keyHex {
		t.Errorf("key mismatch: got %x, want %s", loaded.Serialize(), keyHex)
	}
	loaded.Zero()
}

func TestLoadValidatorKey_Missing(t *testing.T) {
	_, err := loadValidatorKey("/nonexistent/path")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadValidatorKey_InvalidHex(t *testing.T) {
	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "bad.key")
	if err := os.WriteFile(keyPath, []byte("not-hex-data"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := loadValidatorKey(keyPath)
	if err == nil {
		t.Fatal("expected error for invalid hex")
	}
}

// newTestNode builds a non-producing, P2P-disabled node over a temp data
// directory, for lifecycle and query-surface tests.
func newTestNode(t *testing.T) *Node {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := config.Default(config.Testnet)
	cfg.DataDir = tmpDir
	cfg.P2P.Enabled = false
	cfg.Production.Enabled = false

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func TestNodeLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	n := newTestNode(t)

	if n.Height() != 0 {
		t.Errorf("expected height 0, got %d", n.Height())
	}
	if _, err := n.LoadBlock(0); err != nil {
		t.Errorf("LoadBlock(0): %v", err)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	n.Stop()
}

func TestNodeRestartResumesState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = tmpDir
	cfg.P2P.Enabled = false
	cfg.Production.Enabled = false

	n1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	genesisHeight := n1.Height()
	n1.Stop()

	n2, err := New(cfg)
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	if n2.Height() != genesisHeight {
		t.Errorf("restart height = %d, want %d", n2.Height(), genesisHeight)
	}
	n2.Stop()
}

func TestSubmitTransaction_RejectsBadNonce(t *testing.T) {
	n := newTestNode(t)

	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	// sender's ledger nonce is advanced to 2, so nonce 1 is stale and must
	// be rejected (a nonce above the ledger's is admitted and waits).
	n.ledger.IncrementNonce(priv.Address())
	n.ledger.IncrementNonce(priv.Address())
	recipient := types.Address{}
	builder := tx.NewBuilder(tx.TxTransfer, 1, 21000, 10).WithTransfer(recipient, 1, 100)
	t1, err := builder.Sign(priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := n.SubmitTransaction(t1); err == nil {
		t.Fatal("expected stale-nonce rejection")
	}
}
