// Package audithook bridges Recur lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/recur/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnPlanCreated          = (*Extension)(nil)
	_ plugin.OnPlanUpdated          = (*Extension)(nil)
	_ plugin.OnPlanDeleted          = (*Extension)(nil)
	_ plugin.OnPriceFeedAdded       = (*Extension)(nil)
	_ plugin.OnPriceFeedUpdated     = (*Extension)(nil)
	_ plugin.OnPriceFeedDeleted     = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated  = (*Extension)(nil)
	_ plugin.OnSubscriptionDue      = (*Extension)(nil)
	_ plugin.OnSubscriptionCharged  = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnTokensClaimed        = (*Extension)(nil)
	_ plugin.OnOwnershipTransferred = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Recur lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated implements plugin.OnPlanCreated.
func (e *Extension) OnPlanCreated(ctx context.Context, _ interface{}) error {
	// Would extract plan details from the interface
	return e.record(ctx, ActionPlanCreated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, "", CategoryBilling, nil,
		"event", "plan_created",
	)
}

// OnPlanUpdated implements plugin.OnPlanUpdated.
func (e *Extension) OnPlanUpdated(ctx context.Context, _, _ interface{}) error {
	return e.record(ctx, ActionPlanUpdated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, "", CategoryBilling, nil,
		"event", "plan_updated",
	)
}

// OnPlanDeleted implements plugin.OnPlanDeleted.
func (e *Extension) OnPlanDeleted(ctx context.Context, planID uint64) error {
	return e.record(ctx, ActionPlanDeleted, SeverityWarning, OutcomeSuccess,
		ResourcePlan, fmt.Sprintf("%d", planID), CategoryBilling, nil,
		"plan_id", planID,
	)
}

// ──────────────────────────────────────────────────
// Price feed hooks
// ──────────────────────────────────────────────────

// OnPriceFeedAdded implements plugin.OnPriceFeedAdded.
func (e *Extension) OnPriceFeedAdded(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionPriceFeedAdded, SeverityInfo, OutcomeSuccess,
		ResourcePriceFeed, "", CategoryBilling, nil,
		"event", "price_feed_added",
	)
}

// OnPriceFeedUpdated implements plugin.OnPriceFeedUpdated.
func (e *Extension) OnPriceFeedUpdated(ctx context.Context, _, _ interface{}) error {
	return e.record(ctx, ActionPriceFeedUpdated, SeverityInfo, OutcomeSuccess,
		ResourcePriceFeed, "", CategoryBilling, nil,
		"event", "price_feed_updated",
	)
}

// OnPriceFeedDeleted implements plugin.OnPriceFeedDeleted.
func (e *Extension) OnPriceFeedDeleted(ctx context.Context, token string) error {
	return e.record(ctx, ActionPriceFeedDeleted, SeverityWarning, OutcomeSuccess,
		ResourcePriceFeed, token, CategoryBilling, nil,
		"token", token,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, "", CategorySubscription, nil,
		"event", "subscription_created",
	)
}

// OnSubscriptionDue implements plugin.OnSubscriptionDue.
func (e *Extension) OnSubscriptionDue(ctx context.Context, subID uint64, at time.Time) error {
	return e.record(ctx, ActionSubscriptionDue, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, fmt.Sprintf("%d", subID), CategorySubscription, nil,
		"subscription_id", subID,
		"due_at", at,
	)
}

// OnSubscriptionCharged implements plugin.OnSubscriptionCharged.
func (e *Extension) OnSubscriptionCharged(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriptionCharged, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, "", CategorySettlement, nil,
		"event", "subscription_charged",
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, "", CategorySubscription, nil,
		"event", "subscription_canceled",
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnTokensClaimed implements plugin.OnTokensClaimed.
func (e *Extension) OnTokensClaimed(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTokensClaimed, SeverityInfo, OutcomeSuccess,
		ResourceClaim, "", CategorySettlement, nil,
		"event", "tokens_claimed",
	)
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, oldOwner, newOwner string) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityCritical, OutcomeSuccess,
		ResourceEngine, newOwner, CategoryAccess, nil,
		"old_owner", oldOwner,
		"new_owner", newOwner,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
