package plan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/recur/types"
)

// Plan is a named offering with one or more billing plans. Plan ids are
// caller-assigned and non-zero; zero is the sentinel "absent" value.
type Plan struct {
	types.Entity
	ID           uint64        `json:"id"`
	Name         string        `json:"name"`
	BillingPlans []BillingPlan `json:"billing_plans"`
}

// PricingType selects how a billing plan is priced.
type PricingType string

const (
	// PricingToken prices each accepted token with a fixed amount.
	PricingToken PricingType = "token"
	// PricingFiat prices the plan in fiat; the owed token amount is
	// computed at charge time through the price oracle.
	PricingFiat PricingType = "fiat"
)

// Period is the billing cadence unit.
type Period string

const (
	PeriodDay      Period = "day"
	PeriodMonth    Period = "month"
	PeriodYear     Period = "year"
	PeriodLifetime Period = "lifetime"
)

// MaxValue returns the largest period value allowed for the period unit,
// or 0 for an unrecognized unit.
func (p Period) MaxValue() int {
	switch p {
	case PeriodDay:
		return 365
	case PeriodMonth:
		return 12
	case PeriodYear:
		return 50
	case PeriodLifetime:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the period tag is one of the known units.
func (p Period) Valid() bool { return p.MaxValue() > 0 }

// Add advances t by n period units using calendar-aware arithmetic
// (month and year additions follow calendar month lengths and leap
// years). Lifetime periods do not advance; the caller decides what a
// once-only cadence means for scheduling.
func (p Period) Add(t time.Time, n int) time.Time {
	switch p {
	case PeriodDay:
		return t.AddDate(0, 0, n)
	case PeriodMonth:
		return t.AddDate(0, n, 0)
	case PeriodYear:
		return t.AddDate(n, 0, 0)
	default:
		return t
	}
}

// BillingPlan is one price/period offering within a plan. Subscriptions
// embed a copy of the billing plan taken at subscribe time, so later
// plan edits never reprice an existing subscription.
type BillingPlan struct {
	Period         Period          `json:"period"`
	PeriodValue    int             `json:"period_value"`
	PricingType    PricingType     `json:"pricing_type"`
	AcceptedTokens []types.Address `json:"accepted_tokens"`
	TokenPrices    []types.Amount  `json:"token_prices,omitempty"`
	FiatPrice      decimal.Decimal `json:"fiat_price"`
}

// TokenIndex returns the position of token within the accepted-token
// list, or -1 if the token is not accepted.
func (b *BillingPlan) TokenIndex(token types.Address) int {
	for i, t := range b.AcceptedTokens {
		if t.Equal(token) {
			return i
		}
	}
	return -1
}

// BillingPlanAt returns the billing plan at index, or nil when the
// index is out of range.
func (p *Plan) BillingPlanAt(index int) *BillingPlan {
	if index < 0 || index >= len(p.BillingPlans) {
		return nil
	}
	return &p.BillingPlans[index]
}
