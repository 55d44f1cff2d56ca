// Package directory defines the external collaborators the token service
// consults for credentials and authorization state. The session subsystem
// never persists these itself; the in-memory implementation here stands in
// for the backend's user storage.
package directory

import (
	"context"
	"errors"
)

var (
	// ErrBadCredentials reports a failed username/password check.
	ErrBadCredentials = errors.New("directory: invalid_credentials")

	// ErrUnknownPrincipal reports that no identity exists for the name.
	ErrUnknownPrincipal = errors.New("directory: unknown_principal")
)

// Identity is the directory's view of a principal: role and authority set as
// of now, never a token-time snapshot.
type Identity struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
	Disabled    bool     `json:"disabled,omitempty"`

	// PasswordHash is a PHC-format Argon2id hash.
	PasswordHash string `json:"passwordHash"`
}

// CredentialChecker verifies a principal's password and returns the identity
// on success.
type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (Identity, error)
}

// AuthorityProvider returns the current authority set and role for a
// principal. Login and refresh both consult it so reissued access tokens are
// rebuilt from live authorization state, never from stale claims.
type AuthorityProvider interface {
	CurrentAuthorities(ctx context.Context, username string) ([]string, string, error)
}
