package token

import (
	"context"

	"github.com/xraph/recur/types"
)

// Store is the narrow persistence interface for price-feed bindings.
// Unlike the plan store, List order is not significant: Delete may
// reorder the remaining entries (swap-with-last removal).
type Store interface {
	Create(ctx context.Context, f *PriceFeed) error
	Get(ctx context.Context, token types.Address) (*PriceFeed, error)
	List(ctx context.Context) ([]*PriceFeed, error)
	Update(ctx context.Context, f *PriceFeed) error
	Delete(ctx context.Context, token types.Address) error
}
