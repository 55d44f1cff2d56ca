package directory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portalhq/sessiond/internal/session/directory"
	"github.com/portalhq/sessiond/pkg/cryptox"
)

func seedDirectory(t *testing.T) *directory.InMemory {
	t.Helper()

	hash, err := cryptox.HashPassword("s3cret")
	require.NoError(t, err)

	return directory.NewInMemory([]directory.Identity{
		{
			Username:     "Alice",
			Role:         "admin",
			Authorities:  []string{"users:read", "users:write"},
			PasswordHash: hash,
		},
		{
			Username:     "bob",
			Role:         "user",
			Authorities:  []string{"users:read"},
			Disabled:     true,
			PasswordHash: hash,
		},
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	dir := seedDirectory(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		id, err := dir.Authenticate(ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.Equal(t, "admin", id.Role)
	})

	t.Run("name lookup ignores case and padding", func(t *testing.T) {
		_, err := dir.Authenticate(ctx, " ALICE ", "s3cret")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := dir.Authenticate(ctx, "alice", "nope")
		require.ErrorIs(t, err, directory.ErrBadCredentials)
	})

	t.Run("unknown user fails identically", func(t *testing.T) {
		_, err := dir.Authenticate(ctx, "mallory", "s3cret")
		require.ErrorIs(t, err, directory.ErrBadCredentials)
	})

	t.Run("disabled user fails identically", func(t *testing.T) {
		_, err := dir.Authenticate(ctx, "bob", "s3cret")
		require.ErrorIs(t, err, directory.ErrBadCredentials)
	})
}

func TestCurrentAuthorities(t *testing.T) {
	t.Parallel()

	dir := seedDirectory(t)
	ctx := context.Background()

	t.Run("known principal", func(t *testing.T) {
		authorities, role, err := dir.CurrentAuthorities(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "admin", role)
		require.Equal(t, []string{"users:read", "users:write"}, authorities)
	})

	t.Run("unknown principal", func(t *testing.T) {
		_, _, err := dir.CurrentAuthorities(ctx, "mallory")
		require.ErrorIs(t, err, directory.ErrUnknownPrincipal)
	})

	t.Run("disabled principal", func(t *testing.T) {
		_, _, err := dir.CurrentAuthorities(ctx, "bob")
		require.ErrorIs(t, err, directory.ErrUnknownPrincipal)
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("loads a users file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"username": "Carol", "role": "user", "authorities": ["users:read"], "passwordHash": "x"}
		]`), 0o600))

		dir, err := directory.LoadFile(path)
		require.NoError(t, err)

		_, role, err := dir.CurrentAuthorities(context.Background(), "carol")
		require.NoError(t, err)
		require.Equal(t, "user", role)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := directory.LoadFile(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

		_, err := directory.LoadFile(path)
		require.Error(t, err)
	})
}
