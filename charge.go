package recur

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/types"
)

// dayBucket maps a moment to its UTC calendar day, the key space of
// the charge-day index.
func dayBucket(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// ──────────────────────────────────────────────────
// Scheduling
// ──────────────────────────────────────────────────

// ProcessDueSubscriptions scans the charge-day index bucket for now's
// UTC day and returns the subscription ids that are due at now. Index
// entries whose subscription no longer exists, or exists but is not
// due, are skipped; the index is append-only and tolerates such
// tombstones. A SubscriptionDue event fires per due subscription.
//
// The method is read-only: charging each returned id is the caller's
// next step via HandleSubscriptionCharge, so a failed charge never
// blocks the rest of the batch.
func (e *Engine) ProcessDueSubscriptions(ctx context.Context, now time.Time) ([]uint64, error) {
	ids, err := e.store.ListChargeDay(ctx, dayBucket(now))
	if err != nil {
		return nil, err
	}

	due := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, subID := range ids {
		if seen[subID] {
			continue
		}
		seen[subID] = true

		sub, err := e.store.GetSubscription(ctx, subID)
		if err != nil {
			continue // tombstone: unsubscribed after indexing
		}
		if !sub.Due(now) {
			continue
		}
		due = append(due, subID)
		e.plugins.EmitSubscriptionDue(ctx, subID, now)
	}

	e.logger.Debug("processed due subscriptions",
		"day", dayBucket(now).Format(time.DateOnly), "indexed", len(ids), "due", len(due))
	return due, nil
}

// HandleSubscriptionCharge executes the due charge of one subscription
// and returns the charge record, or nil when the cycle carried a zero
// amount. Idempotent per cycle: charging advances NextChargeTime, so a
// repeat call in the same cycle fails with ErrSubscriptionNotDue.
func (e *Engine) HandleSubscriptionCharge(ctx context.Context, subID uint64) (*subscription.Charge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub, err := e.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotFound, subID)
	}

	now := e.clock()
	if !sub.Due(now) {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionNotDue, subID)
	}

	charge, err := e.executeCharge(ctx, sub, now, func(ctx context.Context) error {
		return e.store.UpdateSubscription(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	if charge != nil {
		e.plugins.EmitSubscriptionCharged(ctx, charge)
	}
	return charge, nil
}

// chargePrep is the fully checked outcome of a charge before anything
// is written or moved.
type chargePrep struct {
	amount types.Amount
	fee    types.Amount
	next   time.Time
}

// prepareCharge computes the amount, fee and next schedule for charging
// sub at now, and verifies the allowance. It performs no writes, so any
// error here aborts the charge with no state change.
func (e *Engine) prepareCharge(ctx context.Context, sub *subscription.Subscription, now time.Time) (chargePrep, error) {
	bp := &sub.BillingPlan

	idx := bp.TokenIndex(sub.PaymentToken)
	if idx < 0 {
		return chargePrep{}, fmt.Errorf("%w: %s", ErrTokenNotAllowed, sub.PaymentToken)
	}

	var amount types.Amount
	switch bp.PricingType {
	case plan.PricingToken:
		amount = bp.TokenPrices[idx]
	case plan.PricingFiat:
		if bp.FiatPrice.IsPositive() {
			converted, err := e.ConvertFiatToTokenAmount(ctx, sub.PaymentToken, bp.FiatPrice)
			if err != nil {
				return chargePrep{}, fmt.Errorf("%w: %v", ErrTokenAmountCalculation, err)
			}
			if converted.IsZero() {
				return chargePrep{}, fmt.Errorf("%w: zero token amount for fiat price %s",
					ErrTokenAmountCalculation, bp.FiatPrice)
			}
			amount = converted
		}
	default:
		return chargePrep{}, fmt.Errorf("%w: %v", ErrTokenAmountCalculation,
			fmt.Errorf("unknown pricing type %q", bp.PricingType))
	}

	// Advance from the scheduled time, not from now, so late charges
	// do not drift the cadence. Lifetime plans get no next charge.
	base := sub.NextChargeTime
	if base.IsZero() {
		base = sub.StartTime
	}
	if base.IsZero() {
		base = now
	}
	var next time.Time
	if bp.Period != plan.PeriodLifetime {
		if !bp.Period.Valid() {
			return chargePrep{}, fmt.Errorf("%w: %q", ErrInvalidBillingPeriod, bp.Period)
		}
		next = bp.Period.Add(base, bp.PeriodValue)
	}

	var fee types.Amount
	if !amount.IsZero() && e.feeRate != nil && !e.serviceProvider.IsZero() {
		fee = amount.MulDivCeil(e.feeRate, FeeScale)
	}

	if !amount.IsZero() {
		allowance, err := e.tokens.Allowance(ctx, sub.PaymentToken, sub.Account, e.custody)
		if err != nil {
			return chargePrep{}, err
		}
		if allowance.Cmp(amount) < 0 {
			return chargePrep{}, fmt.Errorf("%w: have %s, need %s", ErrAllowanceTooLow, allowance, amount)
		}
	}

	return chargePrep{amount: amount, fee: fee, next: next}, nil
}

// executeCharge runs one billing cycle of sub at now: checks first,
// fund movement second, persistence last. persist lands the mutated
// subscription (create on first charge, update afterwards); the charge
// record, claimable credit and charge-day entry land with it. Returns
// nil for a zero-amount cycle, which advances the schedule silently.
//
// A persistence failure after funds moved is surfaced as
// ErrTransactionFailed and logged; the store write must be retried or
// reconciled out of band before the subscription is charged again.
func (e *Engine) executeCharge(ctx context.Context, sub *subscription.Subscription, now time.Time, persist func(context.Context) error) (*subscription.Charge, error) {
	prep, err := e.prepareCharge(ctx, sub, now)
	if err != nil {
		return nil, err
	}

	if !prep.amount.IsZero() {
		if err := e.tokens.TransferFrom(ctx, sub.PaymentToken, sub.Account, e.custody, prep.amount); err != nil {
			return nil, err
		}
		if !prep.fee.IsZero() {
			if err := e.tokens.Transfer(ctx, sub.PaymentToken, e.serviceProvider, prep.fee); err != nil {
				return nil, err
			}
		}
	}

	sub.Status = subscription.StatusActive
	sub.BillingCycle++
	sub.NextChargeTime = prep.next
	sub.Touch()

	if err := persist(ctx); err != nil {
		e.logger.Error("charge persistence failed after settlement",
			"subscription_id", sub.ID, "account", sub.Account, "amount", prep.amount, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	if !prep.next.IsZero() {
		if err := e.store.AppendChargeDay(ctx, dayBucket(prep.next), sub.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
	}

	if prep.amount.IsZero() {
		e.logger.Debug("zero-amount cycle advanced",
			"subscription_id", sub.ID, "cycle", sub.BillingCycle, "next_charge", prep.next)
		return nil, nil
	}

	charge := &subscription.Charge{
		ID:             id.NewChargeID(),
		SubscriptionID: sub.ID,
		Account:        sub.Account,
		Cycle:          sub.BillingCycle,
		Token:          sub.PaymentToken,
		Amount:         prep.amount,
		Fee:            prep.fee,
		ChargedAt:      now,
	}
	if err := e.store.CreateCharge(ctx, charge); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	if err := e.store.AddClaimable(ctx, sub.PaymentToken, prep.amount.Sub(prep.fee)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	e.logger.Info("subscription charged",
		"subscription_id", sub.ID, "account", sub.Account, "cycle", sub.BillingCycle,
		"token", sub.PaymentToken, "amount", prep.amount, "fee", prep.fee, "next_charge", prep.next)
	return charge, nil
}
