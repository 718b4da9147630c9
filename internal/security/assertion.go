package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAssertion is returned when an identity assertion is malformed, missigned, or expired.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// AssertionClaims holds the claims of a signed identity assertion. The external
// credential/OAuth collaborator mints one after verifying the caller; the gate
// trusts only its signature, never stores it, and never puts it in a cookie.
type AssertionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// AssertionVerifier validates identity assertions signed with RS256 or ES256.
type AssertionVerifier struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewAssertionVerifier returns an AssertionVerifier checking signature, exp, iss, and aud.
func NewAssertionVerifier(publicKey crypto.PublicKey, issuer, audience string) *AssertionVerifier {
	return &AssertionVerifier{publicKey: publicKey, issuer: issuer, audience: audience}
}

// Verify parses and validates the assertion. Returns the asserted user id (sub)
// and email, or ErrInvalidAssertion. An assertion older than its exp, from the
// wrong issuer, or for the wrong audience is rejected.
func (v *AssertionVerifier) Verify(assertion string) (userID, email string, err error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseWithClaims(assertion, &AssertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", "", ErrInvalidAssertion
	}
	claims, ok := token.Claims.(*AssertionClaims)
	if !ok || claims.Subject == "" {
		return "", "", ErrInvalidAssertion
	}
	return claims.Subject, claims.Email, nil
}

// SignAssertion mints an assertion with the given signer. Used by tests and cmd/seed
// to stand in for the external credential collaborator.
func SignAssertion(signer crypto.Signer, issuer, audience, userID, email string, ttl time.Duration) (string, error) {
	var method jwt.SigningMethod
	switch signer.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidKey
	}
	now := time.Now().UTC()
	claims := AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(method, claims).SignedString(signer)
}
