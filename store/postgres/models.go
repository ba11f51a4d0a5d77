package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:recur_plans"`

	ID           uint64          `grove:"id,pk"`
	Name         string          `grove:"name"`
	BillingPlans json.RawMessage `grove:"billing_plans,type:jsonb"`
	CreatedAt    time.Time       `grove:"created_at"`
	UpdatedAt    time.Time       `grove:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	billingPlans, _ := json.Marshal(p.BillingPlans) //nolint:errcheck // best-effort

	return &planModel{
		ID:           p.ID,
		Name:         p.Name,
		BillingPlans: billingPlans,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	var billingPlans []plan.BillingPlan
	if len(m.BillingPlans) > 0 {
		_ = json.Unmarshal(m.BillingPlans, &billingPlans) //nolint:errcheck // best-effort
	}

	return &plan.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           m.ID,
		Name:         m.Name,
		BillingPlans: billingPlans,
	}, nil
}

// ==================== Price feed models ====================

type priceFeedModel struct {
	grove.BaseModel `grove:"table:recur_price_feeds"`

	Token     string    `grove:"token,pk"`
	Feed      string    `grove:"feed"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toPriceFeedModel(f *token.PriceFeed) *priceFeedModel {
	return &priceFeedModel{
		Token:     f.Token.String(),
		Feed:      f.Feed.String(),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func fromPriceFeedModel(m *priceFeedModel) *token.PriceFeed {
	return &token.PriceFeed{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Token: types.Addr(m.Token),
		Feed:  types.Addr(m.Feed),
	}
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:recur_subscriptions"`

	ID             uint64          `grove:"id,pk"`
	Account        string          `grove:"account"`
	PlanID         uint64          `grove:"plan_id"`
	PaymentToken   string          `grove:"payment_token"`
	StartTime      time.Time       `grove:"start_time"`
	NextChargeTime *time.Time      `grove:"next_charge_time"`
	Status         string          `grove:"status"`
	BillingCycle   int             `grove:"billing_cycle"`
	BillingPlan    json.RawMessage `grove:"billing_plan,type:jsonb"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	billingPlan, _ := json.Marshal(s.BillingPlan) //nolint:errcheck // best-effort

	var next *time.Time
	if !s.NextChargeTime.IsZero() {
		t := s.NextChargeTime
		next = &t
	}

	return &subscriptionModel{
		ID:             s.ID,
		Account:        s.Account.String(),
		PlanID:         s.PlanID,
		PaymentToken:   s.PaymentToken.String(),
		StartTime:      s.StartTime,
		NextChargeTime: next,
		Status:         string(s.Status),
		BillingCycle:   s.BillingCycle,
		BillingPlan:    billingPlan,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	var billingPlan plan.BillingPlan
	if len(m.BillingPlan) > 0 {
		_ = json.Unmarshal(m.BillingPlan, &billingPlan) //nolint:errcheck // best-effort
	}

	var next time.Time
	if m.NextChargeTime != nil {
		next = *m.NextChargeTime
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             m.ID,
		Account:        types.Addr(m.Account),
		PlanID:         m.PlanID,
		PaymentToken:   types.Addr(m.PaymentToken),
		StartTime:      m.StartTime,
		NextChargeTime: next,
		Status:         subscription.Status(m.Status),
		BillingCycle:   m.BillingCycle,
		BillingPlan:    billingPlan,
	}, nil
}

// ==================== Charge-day index models ====================

type chargeDayModel struct {
	grove.BaseModel `grove:"table:recur_charge_days"`

	ID             int64     `grove:"id,pk,auto"`
	Day            time.Time `grove:"day"`
	SubscriptionID uint64    `grove:"subscription_id"`
}

// ==================== Charge record models ====================

type chargeModel struct {
	grove.BaseModel `grove:"table:recur_charges"`

	ID             string       `grove:"id,pk"`
	SubscriptionID uint64       `grove:"subscription_id"`
	Account        string       `grove:"account"`
	Cycle          int          `grove:"cycle"`
	Token          string       `grove:"token"`
	Amount         types.Amount `grove:"amount"`
	Fee            types.Amount `grove:"fee"`
	ChargedAt      time.Time    `grove:"charged_at"`
}

func toChargeModel(c *subscription.Charge) *chargeModel {
	return &chargeModel{
		ID:             c.ID.String(),
		SubscriptionID: c.SubscriptionID,
		Account:        c.Account.String(),
		Cycle:          c.Cycle,
		Token:          c.Token.String(),
		Amount:         c.Amount,
		Fee:            c.Fee,
		ChargedAt:      c.ChargedAt,
	}
}

func fromChargeModel(m *chargeModel) (*subscription.Charge, error) {
	chargeID, err := id.ParseChargeID(m.ID)
	if err != nil {
		return nil, err
	}

	return &subscription.Charge{
		ID:             chargeID,
		SubscriptionID: m.SubscriptionID,
		Account:        types.Addr(m.Account),
		Cycle:          m.Cycle,
		Token:          types.Addr(m.Token),
		Amount:         m.Amount,
		Fee:            m.Fee,
		ChargedAt:      m.ChargedAt,
	}, nil
}

// ==================== Claimable models ====================

type claimableModel struct {
	grove.BaseModel `grove:"table:recur_claimables"`

	Token     string       `grove:"token,pk"`
	Amount    types.Amount `grove:"amount"`
	UpdatedAt time.Time    `grove:"updated_at"`
}

// ==================== Claim models ====================

type claimModel struct {
	grove.BaseModel `grove:"table:recur_claims"`

	ID        string       `grove:"id,pk"`
	Token     string       `grove:"token"`
	Amount    types.Amount `grove:"amount"`
	To        string       `grove:"to_address"`
	ClaimedAt time.Time    `grove:"claimed_at"`
}

func toClaimModel(c *token.Claim) *claimModel {
	return &claimModel{
		ID:        c.ID.String(),
		Token:     c.Token.String(),
		Amount:    c.Amount,
		To:        c.To.String(),
		ClaimedAt: c.ClaimedAt,
	}
}

func fromClaimModel(m *claimModel) (*token.Claim, error) {
	claimID, err := id.ParseClaimID(m.ID)
	if err != nil {
		return nil, err
	}

	return &token.Claim{
		ID:        claimID,
		Token:     types.Addr(m.Token),
		Amount:    m.Amount,
		To:        types.Addr(m.To),
		ClaimedAt: m.ClaimedAt,
	}, nil
}

// ==================== Counter models ====================

type counterModel struct {
	grove.BaseModel `grove:"table:recur_counters"`

	Name  string `grove:"name,pk"`
	Value uint64 `grove:"value"`
}
