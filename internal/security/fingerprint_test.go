package security

import "testing"

func TestHashFingerprint(t *testing.T) {
	h := HashFingerprint("mozilla/5.0|en-US|1920x1080")
	if len(h) != 64 {
		t.Errorf("hash length: got %d, want 64", len(h))
	}
	if h == HashFingerprint("other") {
		t.Error("different fingerprints hashed to the same value")
	}
	if h != HashFingerprint("mozilla/5.0|en-US|1920x1080") {
		t.Error("hash is not deterministic")
	}
}

func TestFingerprintEqual(t *testing.T) {
	stored := HashFingerprint("fp-raw")
	if !FingerprintEqual("fp-raw", stored) {
		t.Error("matching fingerprint: want equal")
	}
	if FingerprintEqual("fp-other", stored) {
		t.Error("non-matching fingerprint: want not equal")
	}
}
