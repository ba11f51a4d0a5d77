// Package plugin provides an extensible plugin system for Recur.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated is called when a new plan is registered.
type OnPlanCreated interface {
	Plugin
	OnPlanCreated(ctx context.Context, plan interface{}) error
}

// OnPlanUpdated is called when a plan or one of its billing plans is
// updated. oldPlan may be nil for billing-plan-level edits.
type OnPlanUpdated interface {
	Plugin
	OnPlanUpdated(ctx context.Context, oldPlan, newPlan interface{}) error
}

// OnPlanDeleted is called when a plan is removed from the registry.
type OnPlanDeleted interface {
	Plugin
	OnPlanDeleted(ctx context.Context, planID uint64) error
}

// ──────────────────────────────────────────────────
// Price feed hooks
// ──────────────────────────────────────────────────

// OnPriceFeedAdded is called when a token is bound to a price feed.
type OnPriceFeedAdded interface {
	Plugin
	OnPriceFeedAdded(ctx context.Context, feed interface{}) error
}

// OnPriceFeedUpdated is called when a token is rebound to a new feed.
type OnPriceFeedUpdated interface {
	Plugin
	OnPriceFeedUpdated(ctx context.Context, oldFeed, newFeed interface{}) error
}

// OnPriceFeedDeleted is called when a token's feed binding is removed.
type OnPriceFeedDeleted interface {
	Plugin
	OnPriceFeedDeleted(ctx context.Context, token string) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a new subscription is created.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub interface{}) error
}

// OnSubscriptionDue is called for each subscription a scheduler scan
// finds due.
type OnSubscriptionDue interface {
	Plugin
	OnSubscriptionDue(ctx context.Context, subID uint64, at time.Time) error
}

// OnSubscriptionCharged is called after a billing cycle settles.
type OnSubscriptionCharged interface {
	Plugin
	OnSubscriptionCharged(ctx context.Context, charge interface{}) error
}

// OnSubscriptionCanceled is called when a subscription is canceled.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnTokensClaimed is called when the owner withdraws a custody balance.
type OnTokensClaimed interface {
	Plugin
	OnTokensClaimed(ctx context.Context, claim interface{}) error
}

// OnOwnershipTransferred is called when the owner role changes hands.
type OnOwnershipTransferred interface {
	Plugin
	OnOwnershipTransferred(ctx context.Context, oldOwner, newOwner string) error
}
