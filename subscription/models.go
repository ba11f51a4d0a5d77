package subscription

import (
	"time"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/types"
)

// Status is the subscription lifecycle state.
type Status string

const (
	// StatusPending means the start time is still in the future; the
	// first charge executes once it becomes due.
	StatusPending Status = "pending"
	// StatusActive means the subscription is billing normally.
	StatusActive Status = "active"
	// StatusSuspended is defined for forward compatibility; no engine
	// operation currently sets it.
	StatusSuspended Status = "suspended"
	// StatusCanceled means billing has stopped.
	StatusCanceled Status = "canceled"
)

// Chargeable reports whether a subscription in this status may be
// charged. Pending and Active are treated identically: a Pending
// subscription becomes Active implicitly when its first charge runs.
func (s Status) Chargeable() bool {
	return s == StatusPending || s == StatusActive
}

// Subscription is one account's enrollment in a plan. Ids are allocated
// from a monotonic counter and never reused. BillingPlan is a frozen
// copy taken at subscribe time — later plan edits never change what an
// existing subscriber pays.
type Subscription struct {
	types.Entity
	ID             uint64           `json:"id"`
	Account        types.Address    `json:"account"`
	PlanID         uint64           `json:"plan_id"`
	PaymentToken   types.Address    `json:"payment_token"`
	StartTime      time.Time        `json:"start_time"`
	NextChargeTime time.Time        `json:"next_charge_time"`
	Status         Status           `json:"status"`
	BillingCycle   int              `json:"billing_cycle"`
	BillingPlan    plan.BillingPlan `json:"billing_plan"`
}

// Due reports whether the subscription should be charged at now: the
// status is chargeable and a scheduled charge time has passed. A zero
// NextChargeTime means nothing is scheduled (lifetime plans after their
// single charge).
func (s *Subscription) Due(now time.Time) bool {
	if !s.Status.Chargeable() {
		return false
	}
	if s.NextChargeTime.IsZero() {
		return false
	}
	return !s.NextChargeTime.After(now)
}

// Charge records one executed billing cycle: who was charged, in which
// token, for how much, and what portion went to the service provider.
type Charge struct {
	ID             id.ChargeID   `json:"id"`
	SubscriptionID uint64        `json:"subscription_id"`
	Account        types.Address `json:"account"`
	Cycle          int           `json:"cycle"`
	Token          types.Address `json:"token"`
	Amount         types.Amount  `json:"amount"`
	Fee            types.Amount  `json:"fee"`
	ChargedAt      time.Time     `json:"charged_at"`
}
