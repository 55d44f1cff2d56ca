package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/portalhq/sessiond/internal/session/directory"
	"github.com/portalhq/sessiond/internal/session/domain"
	"github.com/portalhq/sessiond/internal/session/store"
	"github.com/portalhq/sessiond/pkg/idx"
	"github.com/portalhq/sessiond/pkg/jwtx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrStoreUnavailable   = errors.New("session_store_unavailable")
)

// SessionNotifier delivers a forced-logout event to a principal's live
// channel(s). Delivery is best-effort: no live channel is the common case,
// and failures never propagate to the login that triggered the push.
type SessionNotifier interface {
	NotifyForcedLogout(ctx context.Context, principal, sessionID string)
}

// NopNotifier is a SessionNotifier that drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyForcedLogout(context.Context, string, string) {}

// TokenService orchestrates issuance, supersession, validation and
// revocation. The store holds exactly one valid access token and one valid
// refresh token per principal; a signed token that no longer matches the
// stored value is treated as revoked even though its signature still checks
// out.
type TokenService struct {
	Codec     *jwtx.Codec
	Store     store.Store
	Notifier  SessionNotifier
	Directory directory.AuthorityProvider
	Checker   directory.CredentialChecker

	Issuer        string
	AccessTTL     time.Duration
	RememberMeTTL time.Duration // access-token TTL when rememberMe is set
	RefreshTTL    time.Duration // fixed, independent of rememberMe
}

// Login authenticates the principal and issues a fresh token pair. If the
// principal already holds a live session this is a supersession: the old
// session's client is notified before its store keys are deleted, because
// the delete makes the old session ID unresolvable for targeted delivery.
func (s *TokenService) Login(
	ctx context.Context,
	principal, password string,
	rememberMe bool,
) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)
	principal = domain.NormalizePrincipal(principal)

	identity, err := s.Checker.Authenticate(ctx, principal, password)
	if err != nil {
		if errors.Is(err, directory.ErrBadCredentials) {
			l.Info("login rejected", slog.String("principal", principal))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	sessionID := idx.New().String()

	// 1. A prior session means this login supersedes it. Notify first: once
	// the keys are gone the old session ID cannot be resolved for delivery.
	old, err := s.Store.Get(ctx, store.SessionKey(principal))
	switch {
	case err == nil:
		if claims, perr := s.Codec.ParseAllowExpired(old); perr == nil {
			s.notify(ctx, principal, claims.SID)
		} else {
			l.Warn("superseded token unparseable, skipping notify",
				slog.String("principal", principal), slog.Any("error", perr))
		}
		if derr := s.Store.Delete(ctx, store.SessionKey(principal)); derr != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, derr)
		}
		if derr := s.Store.Delete(ctx, store.RefreshKey(principal)); derr != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, derr)
		}
		l.Info("session superseded",
			slog.String("principal", principal),
			slog.String("new_session_id", sessionID),
		)
	case errors.Is(err, store.ErrNotFound):
		// No live session, nothing to supersede.
	default:
		// Never issue a session we cannot verify later.
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// 2. Issue both halves. Remember-me extends the access window only; the
	// refresh TTL is fixed.
	accessTTL := s.AccessTTL
	if rememberMe {
		accessTTL = s.RememberMeTTL
	}

	accessToken, err := s.Codec.IssueAccess(
		principal, sessionID, identity.Role, identity.Authorities, accessTTL, s.Issuer, now,
	)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.Codec.IssueRefresh(principal, sessionID, s.RefreshTTL, s.Issuer, now)
	if err != nil {
		return nil, err
	}

	// 3. Store both with TTLs tracking the token expiries, so store expiry
	// and token expiry agree to within the store's clock skew.
	if err := s.Store.Put(ctx, store.SessionKey(principal), accessToken, accessTTL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if err := s.Store.Put(ctx, store.RefreshKey(principal), refreshToken, s.RefreshTTL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	l.Info("session issued",
		slog.String("principal", principal),
		slog.String("session_id", sessionID),
		slog.Bool("remember_me", rememberMe),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    accessTTL,
	}, nil
}

// ValidateAccess resolves a bearer access token to its principal. The token
// must verify cryptographically AND match the stored value for its subject;
// the second check is what makes revocation and supersession effective for
// otherwise self-contained JWTs. Any store failure fails closed.
func (s *TokenService) ValidateAccess(ctx context.Context, token string) (domain.Principal, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Parse(token)
	if err != nil {
		l.Debug("access token rejected", slog.Any("error", err))
		return domain.Principal{}, ErrInvalidToken
	}
	if claims.IsRefresh() {
		l.Debug("refresh token presented as access token", slog.String("principal", claims.Subject))
		return domain.Principal{}, ErrInvalidToken
	}

	stored, err := s.Store.Get(ctx, store.SessionKey(claims.Subject))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Warn("session store unreachable, failing closed", slog.Any("error", err))
		}
		return domain.Principal{}, ErrInvalidToken
	}
	if stored != token {
		l.Debug("session mismatch, token superseded",
			slog.String("principal", claims.Subject),
			slog.String("session_id", claims.SID),
		)
		return domain.Principal{}, ErrInvalidToken
	}

	return domain.Principal{
		Name:        claims.Subject,
		Role:        claims.Role,
		Authorities: claims.Authorities(),
		SessionID:   claims.SID,
	}, nil
}

// Authenticate satisfies the gate contract shared by the HTTP middleware and
// the realtime-channel handshake.
func (s *TokenService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	return s.ValidateAccess(ctx, token)
}

// Refresh mints a new access token from a valid refresh token without
// re-running credential checks. The refresh token and the session ID are NOT
// rotated: repeated refreshes against the same refresh token each yield a
// new, independently valid access token until the refresh token expires or
// is revoked. Reissued tokens always get the standard access window; the
// remember-me extension applies only to the token minted at login.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Parse(refreshToken)
	if err != nil {
		l.Debug("refresh token rejected", slog.Any("error", err))
		return nil, ErrInvalidRefresh
	}
	if !claims.IsRefresh() {
		l.Debug("wrong token kind at refresh endpoint", slog.String("principal", claims.Subject))
		return nil, ErrInvalidRefresh
	}

	principal := claims.Subject
	stored, err := s.Store.Get(ctx, store.RefreshKey(principal))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Warn("session store unreachable, failing closed", slog.Any("error", err))
		}
		return nil, ErrInvalidRefresh
	}
	if stored != refreshToken {
		return nil, ErrInvalidRefresh
	}

	// Authorities and role come from the directory, not from the embedded
	// claims, which may be stale by now.
	authorities, role, err := s.Directory.CurrentAuthorities(ctx, principal)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownPrincipal) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	accessToken, err := s.Codec.IssueAccess(
		principal, claims.SID, role, authorities, s.AccessTTL, s.Issuer, now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Put(ctx, store.SessionKey(principal), accessToken, s.AccessTTL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	l.Info("access token refreshed",
		slog.String("principal", principal),
		slog.String("session_id", claims.SID),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Revoke deletes the session entry for the token's subject. The token does
// not need to match the stored value - a token past its store lifetime can
// still be parsed to recover the subject for cleanup. Idempotent.
func (s *TokenService) Revoke(ctx context.Context, accessToken string) error {
	claims, err := s.Codec.ParseAllowExpired(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	return s.Store.Delete(ctx, store.SessionKey(claims.Subject))
}

// RevokeRefresh deletes the refresh entry for the token's subject. Idempotent.
func (s *TokenService) RevokeRefresh(ctx context.Context, refreshToken string) error {
	claims, err := s.Codec.ParseAllowExpired(refreshToken)
	if err != nil {
		return ErrInvalidRefresh
	}
	if !claims.IsRefresh() {
		return ErrInvalidRefresh
	}
	return s.Store.Delete(ctx, store.RefreshKey(claims.Subject))
}

// notify pushes the forced-logout event for the superseded session. It runs
// before the old keys are deleted so the session ID is still resolvable for
// targeted delivery. The notifier's sends are non-blocking and its failures
// never reach the login that triggered the push.
func (s *TokenService) notify(ctx context.Context, principal, sessionID string) {
	notifier := s.Notifier
	if notifier == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slogx.FromContext(ctx).Error("force-logout notify panicked", slog.Any("panic", r))
		}
	}()
	notifier.NotifyForcedLogout(ctx, principal, sessionID)
}
