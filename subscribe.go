package recur

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// Subscribe enrolls the context caller in a plan's billing plan, paying
// with paymentToken. A zero startAt means now. When the start time is
// not in the future the first charge executes inside the call and the
// subscription comes back Active; otherwise it is Pending and becomes
// due at startAt. Nothing is persisted if the first charge fails.
//
// An account holds at most one live subscription per plan; subscribing
// again after an unsubscribe allocates a fresh subscription id.
func (e *Engine) Subscribe(ctx context.Context, planID uint64, billingPlanIndex int, paymentToken types.Address, startAt time.Time) (*subscription.Subscription, error) {
	account, err := e.caller(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if planID == 0 || paymentToken.IsZero() {
		return nil, ErrInvalidSubscriptionData
	}
	if _, err := e.store.GetSubscriptionByAccountPlan(ctx, account, planID); err == nil {
		return nil, fmt.Errorf("%w: account %s plan %d", ErrAlreadySubscribed, account, planID)
	}

	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}
	bp := p.BillingPlanAt(billingPlanIndex)
	if bp == nil {
		return nil, fmt.Errorf("%w: plan %d index %d", ErrBillingPlanNotFound, planID, billingPlanIndex)
	}
	if bp.TokenIndex(paymentToken) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotAllowed, paymentToken)
	}

	now := e.clock()
	if startAt.IsZero() {
		startAt = now
	}

	subID, err := e.store.NextSubscriptionID(ctx)
	if err != nil {
		return nil, err
	}
	sub := &subscription.Subscription{
		Entity:         types.NewEntity(),
		ID:             subID,
		Account:        account,
		PlanID:         planID,
		PaymentToken:   paymentToken,
		StartTime:      startAt,
		NextChargeTime: startAt,
		Status:         subscription.StatusPending,
		BillingPlan:    *bp,
	}

	if startAt.After(now) {
		// Deferred start: persist Pending and index the start day.
		if err := e.store.CreateSubscription(ctx, sub); err != nil {
			return nil, err
		}
		if err := e.store.AppendChargeDay(ctx, dayBucket(startAt), sub.ID); err != nil {
			return nil, err
		}
		e.logger.Info("subscription created",
			"subscription_id", sub.ID, "account", account, "plan_id", planID, "starts_at", startAt)
		e.plugins.EmitSubscriptionCreated(ctx, sub)
		return sub, nil
	}

	// Immediate start: run the first charge before anything is
	// persisted, then land the subscription already Active.
	charge, err := e.executeCharge(ctx, sub, now, func(ctx context.Context) error {
		return e.store.CreateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("subscription created",
		"subscription_id", sub.ID, "account", account, "plan_id", planID, "status", sub.Status)
	e.plugins.EmitSubscriptionCreated(ctx, sub)
	if charge != nil {
		e.plugins.EmitSubscriptionCharged(ctx, charge)
	}
	return sub, nil
}

// Unsubscribe cancels the context caller's subscription to planID. The
// subscription record and its account index entry are removed; entries
// in the charge-day index become tombstones the scheduler skips.
func (e *Engine) Unsubscribe(ctx context.Context, planID uint64) error {
	account, err := e.caller(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sub, err := e.store.GetSubscriptionByAccountPlan(ctx, account, planID)
	if err != nil {
		return fmt.Errorf("%w: account %s plan %d", ErrNotSubscribed, account, planID)
	}

	if err := e.store.DeleteSubscription(ctx, sub.ID); err != nil {
		return err
	}

	sub.Status = subscription.StatusCanceled
	sub.Touch()

	e.logger.Info("subscription canceled",
		"subscription_id", sub.ID, "account", account, "plan_id", planID, "cycles", sub.BillingCycle)
	e.plugins.EmitSubscriptionCanceled(ctx, sub)
	return nil
}

// ──────────────────────────────────────────────────
// Subscription Queries
// ──────────────────────────────────────────────────

// Subscriptions lists the context caller's subscriptions in creation
// order.
func (e *Engine) Subscriptions(ctx context.Context) ([]*subscription.Subscription, error) {
	account, err := e.caller(ctx)
	if err != nil {
		return nil, err
	}
	return e.store.ListSubscriptionsByAccount(ctx, account)
}

// Subscription retrieves any subscription by raw id. Owner only; the
// raw id space spans all accounts.
func (e *Engine) Subscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	e.mu.Lock()
	err := e.requireOwnerLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotFound, subID)
	}
	return sub, nil
}

// Charges lists the charge history of a subscription. Allowed for the
// subscribed account itself and for the owner.
func (e *Engine) Charges(ctx context.Context, subID uint64) ([]*subscription.Charge, error) {
	account, err := e.caller(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotFound, subID)
	}

	e.mu.Lock()
	isOwner := !e.owner.IsZero() && account.Equal(e.owner)
	e.mu.Unlock()
	if !isOwner && !sub.Account.Equal(account) {
		return nil, ErrNotOwner
	}
	return e.store.ListCharges(ctx, subID)
}
