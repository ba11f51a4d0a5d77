// Package observability provides a metrics extension for Recur that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/recur/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnPlanCreated          = (*MetricsExtension)(nil)
	_ plugin.OnPlanUpdated          = (*MetricsExtension)(nil)
	_ plugin.OnPlanDeleted          = (*MetricsExtension)(nil)
	_ plugin.OnPriceFeedAdded       = (*MetricsExtension)(nil)
	_ plugin.OnPriceFeedUpdated     = (*MetricsExtension)(nil)
	_ plugin.OnPriceFeedDeleted     = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionDue      = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCharged  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnTokensClaimed        = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipTransferred = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Recur plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Plan metrics
	PlanCreated Counter
	PlanUpdated Counter
	PlanDeleted Counter

	// Price feed metrics
	PriceFeedAdded   Counter
	PriceFeedUpdated Counter
	PriceFeedDeleted Counter

	// Subscription metrics
	SubscriptionCreated  Counter
	SubscriptionDue      Counter
	SubscriptionCharged  Counter
	SubscriptionCanceled Counter
	DueLag               Histogram

	// Settlement metrics
	TokensClaimed Counter

	// Ownership metrics
	OwnershipTransferred Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Plan metrics
		PlanCreated: factory.Counter("recur.plan.created"),
		PlanUpdated: factory.Counter("recur.plan.updated"),
		PlanDeleted: factory.Counter("recur.plan.deleted"),

		// Price feed metrics
		PriceFeedAdded:   factory.Counter("recur.price_feed.added"),
		PriceFeedUpdated: factory.Counter("recur.price_feed.updated"),
		PriceFeedDeleted: factory.Counter("recur.price_feed.deleted"),

		// Subscription metrics
		SubscriptionCreated:  factory.Counter("recur.subscription.created"),
		SubscriptionDue:      factory.Counter("recur.subscription.due"),
		SubscriptionCharged:  factory.Counter("recur.subscription.charged"),
		SubscriptionCanceled: factory.Counter("recur.subscription.canceled"),
		DueLag:               factory.Histogram("recur.subscription.due.lag_ms"),

		// Settlement metrics
		TokensClaimed: factory.Counter("recur.claim.executed"),

		// Ownership metrics
		OwnershipTransferred: factory.Counter("recur.ownership.transferred"),

		// Error metrics
		StoreErrors:  factory.Counter("recur.store.errors"),
		PluginErrors: factory.Counter("recur.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated implements plugin.OnPlanCreated.
func (m *MetricsExtension) OnPlanCreated(_ context.Context, _ interface{}) error {
	m.PlanCreated.Inc()
	return nil
}

// OnPlanUpdated implements plugin.OnPlanUpdated.
func (m *MetricsExtension) OnPlanUpdated(_ context.Context, _, _ interface{}) error {
	m.PlanUpdated.Inc()
	return nil
}

// OnPlanDeleted implements plugin.OnPlanDeleted.
func (m *MetricsExtension) OnPlanDeleted(_ context.Context, _ uint64) error {
	m.PlanDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Price feed hooks
// ──────────────────────────────────────────────────

// OnPriceFeedAdded implements plugin.OnPriceFeedAdded.
func (m *MetricsExtension) OnPriceFeedAdded(_ context.Context, _ interface{}) error {
	m.PriceFeedAdded.Inc()
	return nil
}

// OnPriceFeedUpdated implements plugin.OnPriceFeedUpdated.
func (m *MetricsExtension) OnPriceFeedUpdated(_ context.Context, _, _ interface{}) error {
	m.PriceFeedUpdated.Inc()
	return nil
}

// OnPriceFeedDeleted implements plugin.OnPriceFeedDeleted.
func (m *MetricsExtension) OnPriceFeedDeleted(_ context.Context, _ string) error {
	m.PriceFeedDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ interface{}) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnSubscriptionDue implements plugin.OnSubscriptionDue.
func (m *MetricsExtension) OnSubscriptionDue(_ context.Context, _ uint64, at time.Time) error {
	m.SubscriptionDue.Inc()
	if lag := time.Since(at); lag > 0 {
		m.DueLag.Observe(float64(lag.Milliseconds()))
	}
	return nil
}

// OnSubscriptionCharged implements plugin.OnSubscriptionCharged.
func (m *MetricsExtension) OnSubscriptionCharged(_ context.Context, _ interface{}) error {
	m.SubscriptionCharged.Inc()
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ interface{}) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnTokensClaimed implements plugin.OnTokensClaimed.
func (m *MetricsExtension) OnTokensClaimed(_ context.Context, _ interface{}) error {
	m.TokensClaimed.Inc()
	return nil
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (m *MetricsExtension) OnOwnershipTransferred(_ context.Context, _, _ string) error {
	m.OwnershipTransferred.Inc()
	return nil
}
