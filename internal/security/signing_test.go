package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureKeyPairGeneratesThenLoads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	pub, priv, created, err := EnsureKeyPair(dir)
	if err != nil {
		t.Fatalf("ensure keys: %v", err)
	}
	if !created {
		t.Fatalf("expected keys to be generated")
	}

	pub2, priv2, created, err := EnsureKeyPair(dir)
	if err != nil {
		t.Fatalf("reload keys: %v", err)
	}
	if created {
		t.Fatalf("expected existing keys to be loaded")
	}
	if !pub.Equal(pub2) || !priv.Equal(priv2) {
		t.Fatalf("reloaded keys differ")
	}
}

func TestSignAndVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	sig := SignData(priv, []byte("block-hash"))
	ok, err := VerifySignature(pub, []byte("block-hash"), sig)
	if err != nil || !ok {
		t.Fatalf("expected valid signature, got %v %v", ok, err)
	}
	ok, err = VerifySignature(pub, []byte("other"), sig)
	if err != nil || ok {
		t.Fatalf("expected invalid signature for other data")
	}
}

func TestLoadKeyRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.pub")
	if err := os.WriteFile(path, []byte("abcd"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPublicKey(path); err == nil {
		t.Fatalf("expected size error")
	}
	if _, err := LoadPrivateKey(path); err == nil {
		t.Fatalf("expected size error")
	}
}
