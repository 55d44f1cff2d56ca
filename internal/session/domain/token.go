package domain

import (
	"strings"
	"time"
)

// TokenPair is what the authentication endpoints return: the short-lived
// access token and the longer-lived refresh token, both signed JWTs.
type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    time.Duration `json:"-"` // access-token validity window
}

// Principal is the authenticated identity attached to a request or a
// realtime channel after the gate resolves a bearer token.
type Principal struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
	SessionID   string   `json:"sessionId"`
}

// HasAuthority reports whether the principal holds the given authority.
func (p Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// NormalizePrincipal canonicalizes a principal name. Every entry point that
// accepts a login applies this so store keys and token subjects always agree.
func NormalizePrincipal(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
