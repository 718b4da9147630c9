package security

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func testPayload(ttl time.Duration) TokenPayload {
	now := time.Now().UTC()
	return TokenPayload{
		SessionID: "sess-001",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	c, err := NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	p := testPayload(time.Hour)
	token, err := c.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	got, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != p {
		t.Errorf("round trip: got %+v, want %+v", got, p)
	}
}

func TestSessionCodec_EncodeRequiresSessionID(t *testing.T) {
	c, err := NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	if _, err := c.Encode(TokenPayload{ExpiresAt: time.Now().Add(time.Hour).Unix()}); err == nil {
		t.Error("Encode with empty session id: want error, got nil")
	}
}

func TestSessionCodec_TamperAnyBit(t *testing.T) {
	c, err := NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	token, err := c.Encode(testPayload(time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(raw))
			copy(flipped, raw)
			flipped[i] ^= 1 << bit
			_, err := c.Decode(base64.RawURLEncoding.EncodeToString(flipped))
			if err == nil {
				t.Fatalf("byte %d bit %d: tampered token decoded successfully", i, bit)
			}
			if !errors.Is(err, ErrTokenTampered) && !errors.Is(err, ErrTokenMalformed) {
				t.Fatalf("byte %d bit %d: got %v, want tampered or malformed", i, bit, err)
			}
		}
	}
}

func TestSessionCodec_Expired(t *testing.T) {
	c, err := NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	token, err := c.Encode(testPayload(time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Integrity passes, but the clock is past exp.
	c.nowF = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Decode after expiry: got %v, want ErrTokenExpired", err)
	}
}

func TestSessionCodec_MalformedInputs(t *testing.T) {
	c, err := NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	for _, token := range []string{"", "not-a-real-token", "!!!not base64!!!", "AAAA"} {
		if _, err := c.Decode(token); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Decode(%q): got %v, want ErrTokenMalformed", token, err)
		}
	}
}

func TestSessionCodec_UnknownKid(t *testing.T) {
	c, err := NewTestCodec()
	if err != nil {
		t.Fatalf("NewTestCodec: %v", err)
	}
	token, err := c.Encode(testPayload(time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, _ := base64.RawURLEncoding.DecodeString(token)
	raw[0] = 0xFF // kid not in the test keyring
	if _, err := c.Decode(base64.RawURLEncoding.EncodeToString(raw)); !errors.Is(err, ErrTokenTampered) {
		t.Errorf("Decode with unknown kid: got %v, want ErrTokenTampered", err)
	}
}

func TestSessionCodec_KeyRotation(t *testing.T) {
	// Tokens minted under the old active key still decode after rotation,
	// because the rotated ring keeps the old kid listed.
	oldRing, err := NewTestKeyring("1")
	if err != nil {
		t.Fatalf("NewTestKeyring(1): %v", err)
	}
	newRing, err := NewTestKeyring("2")
	if err != nil {
		t.Fatalf("NewTestKeyring(2): %v", err)
	}
	oldCodec := NewSessionCodec(oldRing)
	newCodec := NewSessionCodec(newRing)

	p := testPayload(time.Hour)
	token, err := oldCodec.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := newCodec.Decode(token)
	if err != nil {
		t.Fatalf("Decode after rotation: %v", err)
	}
	if got != p {
		t.Errorf("Decode after rotation: got %+v, want %+v", got, p)
	}
}
