package subscription

import (
	"context"
	"time"

	"github.com/xraph/recur/types"
)

// Store is the narrow persistence interface for subscriptions, the
// charge-day index, and charge records.
//
// ListByAccount returns subscriptions in creation order and Delete
// preserves the relative order of the remaining entries. The charge-day
// index is an append-only multimap from UTC day boundaries to
// subscription ids: entries are added on creation and on every
// successful charge, and are never removed — stale entries are filtered
// at sweep time against the live subscription state.
type Store interface {
	NextID(ctx context.Context) (uint64, error)
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID uint64) (*Subscription, error)
	GetByAccountPlan(ctx context.Context, account types.Address, planID uint64) (*Subscription, error)
	ListByAccount(ctx context.Context, account types.Address) ([]*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, subID uint64) error

	AppendChargeDay(ctx context.Context, day time.Time, subID uint64) error
	ListChargeDay(ctx context.Context, day time.Time) ([]uint64, error)

	CreateCharge(ctx context.Context, c *Charge) error
	ListCharges(ctx context.Context, subID uint64) ([]*Charge, error)
}
