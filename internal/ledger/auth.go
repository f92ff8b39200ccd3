package ledger

import (
	"context"
	"fmt"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// Authorizer proves that the current invocation may act for a principal
type Authorizer interface {
	RequireAuth(ctx context.Context, p models.Principal) error
}

type contextKey string

const callerContextKey contextKey = "ledger_caller"

// WithCaller records the authenticated principal driving an invocation
func WithCaller(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, callerContextKey, p)
}

// CallerFromContext extracts the authenticated principal
func CallerFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(callerContextKey).(models.Principal)
	return p, ok && p != ""
}

// CallerAuthorizer succeeds only when the context caller equals the principal
type CallerAuthorizer struct{}

// RequireAuth implements Authorizer
func (CallerAuthorizer) RequireAuth(ctx context.Context, p models.Principal) error {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return fmt.Errorf("no authenticated caller for %s: %w", p, ErrUnauthorized)
	}
	if caller != p {
		return fmt.Errorf("caller %s cannot act for %s: %w", caller, p, ErrUnauthorized)
	}
	return nil
}
