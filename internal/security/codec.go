// Package security holds the session token codec, the identity assertion
// verifier, and key handling for both.
package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sentinel errors for token decode; the gate folds all of them into RedirectToLogin.
var (
	// ErrTokenMalformed is returned when the token cannot be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenTampered is returned when the authenticated decryption fails.
	ErrTokenTampered = errors.New("token tampered")
	// ErrTokenExpired is returned when the payload's expiry has passed even though integrity held.
	ErrTokenExpired = errors.New("token expired")
)

// TokenPayload is the plaintext content of the opaque session token.
// It references server-held state only; it carries no authorization claims.
type TokenPayload struct {
	SessionID string `json:"sid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// SessionCodec encodes and decodes the opaque session token using
// XChaCha20-Poly1305 under a versioned keyring. Wire form:
// base64url(kid || 24-byte nonce || ciphertext+tag). Encryption and integrity
// are one primitive, so any bit-level change fails to open.
type SessionCodec struct {
	keyring *Keyring
	nowF    func() time.Time
}

// NewSessionCodec returns a codec over the given keyring.
func NewSessionCodec(keyring *Keyring) *SessionCodec {
	return &SessionCodec{keyring: keyring, nowF: func() time.Time { return time.Now().UTC() }}
}

// Encode seals the payload under the keyring's active key and returns the token string.
func (c *SessionCodec) Encode(p TokenPayload) (string, error) {
	if p.SessionID == "" {
		return "", errors.New("session id is required")
	}
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	kid, key := c.keyring.Active()
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	// The kid byte is bound into the tag as additional data so a swapped kid
	// cannot redirect a token to a different key undetected.
	sealed := aead.Seal(nil, nonce, plaintext, []byte{kid})

	buf := make([]byte, 0, 1+len(nonce)+len(sealed))
	buf = append(buf, kid)
	buf = append(buf, nonce...)
	buf = append(buf, sealed...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Decode opens the token and returns its payload. Integrity is checked before
// any field is trusted; expiry is checked only after the open succeeds.
// Fails with ErrTokenMalformed, ErrTokenTampered, or ErrTokenExpired.
func (c *SessionCodec) Decode(token string) (TokenPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return TokenPayload{}, ErrTokenMalformed
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return TokenPayload{}, ErrTokenMalformed
	}
	kid := raw[0]
	key, ok := c.keyring.Lookup(kid)
	if !ok {
		return TokenPayload{}, ErrTokenTampered
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return TokenPayload{}, ErrTokenMalformed
	}
	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	sealed := raw[1+chacha20poly1305.NonceSizeX:]
	plaintext, err := aeadOpen(aead, nonce, sealed, []byte{kid})
	if err != nil {
		return TokenPayload{}, ErrTokenTampered
	}
	var p TokenPayload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return TokenPayload{}, ErrTokenMalformed
	}
	if p.SessionID == "" {
		return TokenPayload{}, ErrTokenMalformed
	}
	if p.ExpiresAt == 0 || !c.nowF().Before(time.Unix(p.ExpiresAt, 0)) {
		return TokenPayload{}, ErrTokenExpired
	}
	return p, nil
}

func aeadOpen(aead cipher.AEAD, nonce, sealed, additional []byte) ([]byte, error) {
	return aead.Open(nil, nonce, sealed, additional)
}
