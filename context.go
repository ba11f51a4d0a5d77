package recur

import (
	"context"

	"github.com/xraph/recur/types"
)

type contextKey string

const callerKey contextKey = "recur.caller"

// WithCaller returns a context carrying the caller's account. Every
// engine operation that acts on behalf of an account reads its
// identity from the context; embedding hosts (HTTP middleware, a Forge
// scope) attach it once at the boundary.
func WithCaller(ctx context.Context, account types.Address) context.Context {
	return context.WithValue(ctx, callerKey, account)
}

// CallerFrom extracts the caller account from the context, if any.
func CallerFrom(ctx context.Context) (types.Address, bool) {
	account, ok := ctx.Value(callerKey).(types.Address)
	if !ok || account.IsZero() {
		return types.ZeroAddress, false
	}
	return account, true
}

// caller returns the caller account or ErrNoCaller.
func (e *Engine) caller(ctx context.Context) (types.Address, error) {
	account, ok := CallerFrom(ctx)
	if !ok {
		return types.ZeroAddress, ErrNoCaller
	}
	return account, nil
}

// requireOwnerLocked checks that the context caller is the owner. The
// engine mutex must be held; the owner field is guarded by it.
func (e *Engine) requireOwnerLocked(ctx context.Context) error {
	account, err := e.caller(ctx)
	if err != nil {
		return err
	}
	if e.owner.IsZero() || !account.Equal(e.owner) {
		return ErrNotOwner
	}
	return nil
}
