package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/portalhq/sessiond/internal/session/domain"
	"github.com/portalhq/sessiond/pkg/cryptox"
)

// InMemory is a directory seeded from a JSON users file. It is read-mostly:
// the identity map is built once at load and guarded for the admin reload
// path.
type InMemory struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

// NewInMemory builds a directory from a set of identities. Names are
// case-normalized on the way in.
func NewInMemory(identities []Identity) *InMemory {
	d := &InMemory{identities: make(map[string]Identity, len(identities))}
	for _, id := range identities {
		d.identities[domain.NormalizePrincipal(id.Username)] = id
	}
	return d
}

// LoadFile reads a JSON array of identities from path.
func LoadFile(path string) (*InMemory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read users file: %w", err)
	}

	var identities []Identity
	if err := json.Unmarshal(raw, &identities); err != nil {
		return nil, fmt.Errorf("directory: parse users file: %w", err)
	}

	return NewInMemory(identities), nil
}

// Authenticate verifies the password against the stored Argon2id hash.
// Unknown and disabled principals fail the same way as a wrong password so
// the response does not leak which usernames exist.
func (d *InMemory) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	id, ok := d.lookup(username)
	if !ok || id.Disabled {
		return Identity{}, ErrBadCredentials
	}

	if err := cryptox.VerifyPassword(password, id.PasswordHash); err != nil {
		return Identity{}, ErrBadCredentials
	}

	return id, nil
}

// CurrentAuthorities returns the live authority set and role for username.
func (d *InMemory) CurrentAuthorities(ctx context.Context, username string) ([]string, string, error) {
	id, ok := d.lookup(username)
	if !ok || id.Disabled {
		return nil, "", ErrUnknownPrincipal
	}
	return id.Authorities, id.Role, nil
}

func (d *InMemory) lookup(username string) (Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.identities[domain.NormalizePrincipal(username)]
	return id, ok
}
