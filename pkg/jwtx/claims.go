package jwtx

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the session lifecycle.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 30 * time.Minute

	// DefaultRememberMeTokenTTL is the extended access-token lifetime used
	// when the caller opts into "remember me" at login.
	DefaultRememberMeTokenTTL = 24 * time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// KindRefresh is the value of the "kind" claim on refresh tokens. Access
// tokens carry no kind claim at all.
const KindRefresh = "refresh"

// Claims are the signed token claims shared by access and refresh tokens.
// Authorities travel as a single comma-delimited string to keep the payload
// compact on the wire; use Authorities() to get them back as a slice.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the per-login session identifier. It is minted once at login
	// and survives access-token refreshes, which makes it the revocation
	// handle for the whole session.
	SID string `json:"sid,omitempty"`

	// Auth is the comma-delimited authority list, e.g. "users:read,users:write".
	// Empty on refresh tokens.
	Auth string `json:"auth,omitempty"`

	// Role is the principal's role code at issue time. Empty on refresh tokens.
	Role string `json:"role,omitempty"`

	// Kind tags refresh tokens ("refresh"). Access tokens omit it.
	Kind string `json:"kind,omitempty"`
}

// NewAccessClaims builds claims for an access token.
func NewAccessClaims(
	subject, sid, role string,
	authorities []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        sid,
		},
		SID:  sid,
		Auth: strings.Join(authorities, ","),
		Role: role,
	}
}

// NewRefreshClaims builds claims for a refresh token. Refresh tokens carry no
// authority or role snapshot: the access token reissued from them is rebuilt
// from current authorization state at refresh time.
func NewRefreshClaims(subject, sid string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        sid + "_refresh",
		},
		SID:  sid,
		Kind: KindRefresh,
	}
}

// Authorities decodes the delimited authority string. An empty or
// whitespace-only Auth claim yields an empty set, never a one-element set
// containing "".
func (c *Claims) Authorities() []string {
	if strings.TrimSpace(c.Auth) == "" {
		return nil
	}

	parts := strings.Split(c.Auth, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsRefresh reports whether the claims tag a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.Kind == KindRefresh
}
