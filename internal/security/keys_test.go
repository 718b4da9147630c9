package security

import (
	"strings"
	"testing"
)

const validHexKey = "8c4f9b2e1a7d3c5f0e6b8a9d2c4e6f8a1b3d5f7e9c0a2b4d6e8f0a1c3e5b7d9f"

func TestParseKeyring(t *testing.T) {
	kr, err := ParseKeyring("1:"+validHexKey, "1")
	if err != nil {
		t.Fatalf("ParseKeyring: %v", err)
	}
	kid, key := kr.Active()
	if kid != 1 {
		t.Errorf("active kid: got %d, want 1", kid)
	}
	if len(key) != 32 {
		t.Errorf("active key length: got %d, want 32", len(key))
	}
	if _, ok := kr.Lookup(1); !ok {
		t.Error("Lookup(1): want ok")
	}
	if _, ok := kr.Lookup(9); ok {
		t.Error("Lookup(9): want not ok")
	}
}

func TestParseKeyring_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		activeKid string
	}{
		{"empty", "", "1"},
		{"no separator", validHexKey, "1"},
		{"bad hex", "1:zz", "1"},
		{"short key", "1:abcd", "1"},
		{"kid zero", "0:" + validHexKey, "0"},
		{"kid too large", "300:" + validHexKey, "300"},
		{"duplicate kid", "1:" + validHexKey + ",1:" + validHexKey, "1"},
		{"active kid missing", "1:" + validHexKey, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseKeyring(tt.raw, tt.activeKid); err == nil {
				t.Errorf("ParseKeyring(%q, %q): want error, got nil", tt.raw, tt.activeKid)
			}
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if pub == nil {
		t.Fatal("nil public key")
	}
}

func TestParsePrivateKey(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if signer == nil {
		t.Fatal("nil signer")
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	for _, s := range []string{"", "not a key", strings.Repeat("x", 100)} {
		if _, err := ParsePublicKey(s); err == nil {
			t.Errorf("ParsePublicKey(%q): want error", s)
		}
		if _, err := ParsePrivateKey(s); err == nil {
			t.Errorf("ParsePrivateKey(%q): want error", s)
		}
	}
}
