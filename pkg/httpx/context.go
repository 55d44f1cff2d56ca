package httpx

import (
	"context"

	"github.com/portalhq/sessiond/internal/session/domain"
)

type ctxKey string

const (
	CtxKeyPrincipal ctxKey = "principal"
)

// PrincipalFromCtx returns the authenticated principal injected by
// AuthnMiddleware, if any.
func PrincipalFromCtx(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(domain.Principal)
	return p, ok
}
