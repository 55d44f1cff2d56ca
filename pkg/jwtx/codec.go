package jwtx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrInvalidKey = errors.New("jwtx: invalid signing key")
)

// Codec signs and parses tokens with a single process-wide symmetric key.
// The key is loaded once at startup and never mutated, so a Codec is safe
// for concurrent use. Signing is pure: no I/O, deterministic for a given
// claims+time+key.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
	parser *jwt.Parser
}

// NewCodec builds a Codec from a base64-encoded HMAC secret. HS512 is the
// wire algorithm so any compliant JWT library can interoperate.
func NewCodec(base64Secret string) (*Codec, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not valid base64: %w", ErrInvalidKey, err)
	}
	if len(key) < 64 {
		// HS512 wants at least a hash-sized key.
		return nil, fmt.Errorf("%w: need at least 64 bytes, got %d", ErrInvalidKey, len(key))
	}

	return &Codec{
		key:    key,
		method: jwt.SigningMethodHS512,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()})),
	}, nil
}

// IssueAccess signs an access token for subject with the given session ID,
// role and authority set, expiring at now+ttl.
func (c *Codec) IssueAccess(
	subject, sid, role string,
	authorities []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) (string, error) {
	claims := NewAccessClaims(subject, sid, role, authorities, ttl, issuer, now)
	return c.sign(claims)
}

// IssueRefresh signs a refresh token for subject bound to the same session ID
// as the access token it was minted alongside.
func (c *Codec) IssueRefresh(subject, sid string, ttl time.Duration, issuer string, now time.Time) (string, error) {
	claims := NewRefreshClaims(subject, sid, ttl, issuer, now)
	return c.sign(claims)
}

func (c *Codec) sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(c.method, claims)
	signed, err := tok.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, expiry and structural well-formedness of a
// token and returns its claims. Failures collapse to one of three sentinels
// (ErrMalformed, ErrExpired, ErrInvalidSig); callers surface them uniformly
// as unauthenticated but keep the distinction for logs.
func (c *Codec) Parse(token string) (Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	if claims.Subject == "" {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

// ParseAllowExpired is Parse without the expiry check. Revocation uses it to
// recover the subject of a token that outlived its store entry so the store
// keys can still be cleaned up.
func (c *Codec) ParseAllowExpired(token string) (Claims, error) {
	claims, err := c.Parse(token)
	if err == nil || !errors.Is(err, ErrExpired) {
		return claims, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var expired Claims
	if _, err := parser.ParseWithClaims(token, &expired, func(t *jwt.Token) (any, error) {
		return c.key, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrSignatureInvalid) {
			return Claims{}, ErrInvalidSig
		}
		return Claims{}, ErrMalformed
	}

	if expired.Subject == "" {
		return Claims{}, ErrMalformed
	}

	return expired, nil
}
