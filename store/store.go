package store

import (
	"context"
	"time"

	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// Store is the unified storage interface for all Recur entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Ordering contracts: ListPlans and ListSubscriptionsByAccount return
// entries in registration/creation order and deletes preserve the
// relative order of what remains; ListPriceFeeds carries no order
// guarantee. The charge-day index is append-only — see
// subscription.Store.
type Store interface {
	// Plan methods
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error)
	ListPlans(ctx context.Context) ([]*plan.Plan, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	DeletePlan(ctx context.Context, planID uint64) error

	// Price feed methods
	CreatePriceFeed(ctx context.Context, f *token.PriceFeed) error
	GetPriceFeed(ctx context.Context, tok types.Address) (*token.PriceFeed, error)
	ListPriceFeeds(ctx context.Context) ([]*token.PriceFeed, error)
	UpdatePriceFeed(ctx context.Context, f *token.PriceFeed) error
	DeletePriceFeed(ctx context.Context, tok types.Address) error

	// Subscription methods
	NextSubscriptionID(ctx context.Context) (uint64, error)
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error)
	GetSubscriptionByAccountPlan(ctx context.Context, account types.Address, planID uint64) (*subscription.Subscription, error)
	ListSubscriptionsByAccount(ctx context.Context, account types.Address) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	DeleteSubscription(ctx context.Context, subID uint64) error

	// Charge-day index methods
	AppendChargeDay(ctx context.Context, day time.Time, subID uint64) error
	ListChargeDay(ctx context.Context, day time.Time) ([]uint64, error)

	// Charge record methods
	CreateCharge(ctx context.Context, c *subscription.Charge) error
	ListCharges(ctx context.Context, subID uint64) ([]*subscription.Charge, error)

	// Claimable balance methods
	AddClaimable(ctx context.Context, tok types.Address, amount types.Amount) error
	ListClaimables(ctx context.Context) ([]*token.Claimable, error)
	ResetClaimable(ctx context.Context, tok types.Address) (types.Amount, error)

	// Claim record methods
	CreateClaim(ctx context.Context, c *token.Claim) error
	ListClaims(ctx context.Context) ([]*token.Claim, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
