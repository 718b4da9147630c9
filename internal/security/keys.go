package security

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidKey is returned when PEM, hex, or key material is invalid.
var ErrInvalidKey = errors.New("invalid key")

// Keyring holds the versioned session token keys. One kid is active for
// encode; every listed kid decodes, which lets outstanding tokens survive a
// key rotation. Built once at startup and never mutated.
type Keyring struct {
	keys      map[byte][]byte
	activeKid byte
}

// ParseKeyring parses "kid:hex32,kid:hex32" (kid 1–255 decimal, key 32 bytes hex)
// and the active kid. Returns an error for duplicate kids, bad hex, wrong key
// length, or an active kid not present in the list.
func ParseKeyring(raw, activeKid string) (*Keyring, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("session keyring is empty")
	}
	keys := make(map[byte][]byte)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kidStr, hexKey, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("keyring entry %q: want kid:hex", part)
		}
		kid, err := parseKid(kidStr)
		if err != nil {
			return nil, err
		}
		key, err := hex.DecodeString(strings.TrimSpace(hexKey))
		if err != nil {
			return nil, fmt.Errorf("keyring kid %d: %w", kid, ErrInvalidKey)
		}
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("keyring kid %d: key must be %d bytes, got %d", kid, chacha20poly1305.KeySize, len(key))
		}
		if _, dup := keys[kid]; dup {
			return nil, fmt.Errorf("keyring kid %d: duplicate", kid)
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("session keyring is empty")
	}

	active, err := parseKid(activeKid)
	if err != nil {
		return nil, fmt.Errorf("active kid: %w", err)
	}
	if _, ok := keys[active]; !ok {
		return nil, fmt.Errorf("active kid %d not present in keyring", active)
	}
	return &Keyring{keys: keys, activeKid: active}, nil
}

// Active returns the encode key and its kid.
func (k *Keyring) Active() (byte, []byte) {
	return k.activeKid, k.keys[k.activeKid]
}

// Lookup returns the key for kid, or false when the kid is unknown.
func (k *Keyring) Lookup(kid byte) ([]byte, bool) {
	key, ok := k.keys[kid]
	return key, ok
}

func parseKid(s string) (byte, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("kid %q must be 1-255", s)
	}
	return byte(n), nil
}

// LoadPEM reads content from path if s does not look like inline PEM; otherwise returns s as bytes.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(s), nil
	}
	return os.ReadFile(s)
}

// ParsePrivateKey parses a PEM-encoded private key (RSA or ECDSA). s may be inline PEM or a file path.
// Used by tests and local tooling that mint identity assertions.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}

// ParsePublicKey parses a PEM-encoded public key (RSA or ECDSA). s may be inline PEM or a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	pemBytes, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}
