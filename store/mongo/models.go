package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/grove"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// Amounts are persisted as decimal strings; BSON has no integer type
// wide enough for 18-decimal fixed-point values.

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:recur_plans"`

	ID           int64              `grove:"id,pk"         bson:"_id"`
	Name         string             `grove:"name"          bson:"name"`
	BillingPlans []billingPlanModel `grove:"billing_plans" bson:"billing_plans"`
	CreatedAt    time.Time          `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time          `grove:"updated_at"    bson:"updated_at"`
}

type billingPlanModel struct {
	Period         string   `bson:"period"`
	PeriodValue    int      `bson:"period_value"`
	PricingType    string   `bson:"pricing_type"`
	AcceptedTokens []string `bson:"accepted_tokens"`
	TokenPrices    []string `bson:"token_prices,omitempty"`
	FiatPrice      string   `bson:"fiat_price"`
}

func toBillingPlanModel(b *plan.BillingPlan) billingPlanModel {
	tokens := make([]string, len(b.AcceptedTokens))
	for i, t := range b.AcceptedTokens {
		tokens[i] = t.String()
	}
	var prices []string
	if len(b.TokenPrices) > 0 {
		prices = make([]string, len(b.TokenPrices))
		for i, p := range b.TokenPrices {
			prices[i] = p.String()
		}
	}
	return billingPlanModel{
		Period:         string(b.Period),
		PeriodValue:    b.PeriodValue,
		PricingType:    string(b.PricingType),
		AcceptedTokens: tokens,
		TokenPrices:    prices,
		FiatPrice:      b.FiatPrice.String(),
	}
}

func fromBillingPlanModel(m *billingPlanModel) plan.BillingPlan {
	tokens := make([]types.Address, len(m.AcceptedTokens))
	for i, t := range m.AcceptedTokens {
		tokens[i] = types.Addr(t)
	}
	var prices []types.Amount
	if len(m.TokenPrices) > 0 {
		prices = make([]types.Amount, len(m.TokenPrices))
		for i, p := range m.TokenPrices {
			prices[i], _ = types.ParseAmount(p) //nolint:errcheck // best-effort
		}
	}
	fiat, _ := decimal.NewFromString(m.FiatPrice) //nolint:errcheck // best-effort
	return plan.BillingPlan{
		Period:         plan.Period(m.Period),
		PeriodValue:    m.PeriodValue,
		PricingType:    plan.PricingType(m.PricingType),
		AcceptedTokens: tokens,
		TokenPrices:    prices,
		FiatPrice:      fiat,
	}
}

func toPlanModel(p *plan.Plan) *planModel {
	billingPlans := make([]billingPlanModel, len(p.BillingPlans))
	for i := range p.BillingPlans {
		billingPlans[i] = toBillingPlanModel(&p.BillingPlans[i])
	}
	return &planModel{
		ID:           int64(p.ID),
		Name:         p.Name,
		BillingPlans: billingPlans,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) *plan.Plan {
	billingPlans := make([]plan.BillingPlan, len(m.BillingPlans))
	for i := range m.BillingPlans {
		billingPlans[i] = fromBillingPlanModel(&m.BillingPlans[i])
	}
	return &plan.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           uint64(m.ID),
		Name:         m.Name,
		BillingPlans: billingPlans,
	}
}

// ==================== Price feed models ====================

type priceFeedModel struct {
	grove.BaseModel `grove:"table:recur_price_feeds"`

	Token     string    `grove:"token,pk"   bson:"_id"`
	Feed      string    `grove:"feed"       bson:"feed"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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

	ID             int64            `grove:"id,pk"            bson:"_id"`
	Account        string           `grove:"account"          bson:"account"`
	PlanID         int64            `grove:"plan_id"          bson:"plan_id"`
	PaymentToken   string           `grove:"payment_token"    bson:"payment_token"`
	StartTime      time.Time        `grove:"start_time"       bson:"start_time"`
	NextChargeTime *time.Time       `grove:"next_charge_time" bson:"next_charge_time,omitempty"`
	Status         string           `grove:"status"           bson:"status"`
	BillingCycle   int              `grove:"billing_cycle"    bson:"billing_cycle"`
	BillingPlan    billingPlanModel `grove:"billing_plan"     bson:"billing_plan"`
	CreatedAt      time.Time        `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time        `grove:"updated_at"       bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	var next *time.Time
	if !s.NextChargeTime.IsZero() {
		t := s.NextChargeTime
		next = &t
	}
	return &subscriptionModel{
		ID:             int64(s.ID),
		Account:        s.Account.String(),
		PlanID:         int64(s.PlanID),
		PaymentToken:   s.PaymentToken.String(),
		StartTime:      s.StartTime,
		NextChargeTime: next,
		Status:         string(s.Status),
		BillingCycle:   s.BillingCycle,
		BillingPlan:    toBillingPlanModel(&s.BillingPlan),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) *subscription.Subscription {
	var next time.Time
	if m.NextChargeTime != nil {
		next = *m.NextChargeTime
	}
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             uint64(m.ID),
		Account:        types.Addr(m.Account),
		PlanID:         uint64(m.PlanID),
		PaymentToken:   types.Addr(m.PaymentToken),
		StartTime:      m.StartTime,
		NextChargeTime: next,
		Status:         subscription.Status(m.Status),
		BillingCycle:   m.BillingCycle,
		BillingPlan:    fromBillingPlanModel(&m.BillingPlan),
	}
}

// ==================== Charge-day index models ====================

// chargeDayModel keys on day+subscription so re-appends after a reschedule
// stay idempotent.
type chargeDayModel struct {
	grove.BaseModel `grove:"table:recur_charge_days"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	Day            time.Time `grove:"day"             bson:"day"`
	SubscriptionID int64     `grove:"subscription_id" bson:"subscription_id"`
}

// ==================== Charge record models ====================

type chargeModel struct {
	grove.BaseModel `grove:"table:recur_charges"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	SubscriptionID int64     `grove:"subscription_id" bson:"subscription_id"`
	Account        string    `grove:"account"         bson:"account"`
	Cycle          int       `grove:"cycle"           bson:"cycle"`
	Token          string    `grove:"token"           bson:"token"`
	Amount         string    `grove:"amount"          bson:"amount"`
	Fee            string    `grove:"fee"             bson:"fee"`
	ChargedAt      time.Time `grove:"charged_at"      bson:"charged_at"`
}

func toChargeModel(c *subscription.Charge) *chargeModel {
	return &chargeModel{
		ID:             c.ID.String(),
		SubscriptionID: int64(c.SubscriptionID),
		Account:        c.Account.String(),
		Cycle:          c.Cycle,
		Token:          c.Token.String(),
		Amount:         c.Amount.String(),
		Fee:            c.Fee.String(),
		ChargedAt:      c.ChargedAt,
	}
}

func fromChargeModel(m *chargeModel) (*subscription.Charge, error) {
	chargeID, err := id.ParseChargeID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	fee, err := types.ParseAmount(m.Fee)
	if err != nil {
		return nil, err
	}
	return &subscription.Charge{
		ID:             chargeID,
		SubscriptionID: uint64(m.SubscriptionID),
		Account:        types.Addr(m.Account),
		Cycle:          m.Cycle,
		Token:          types.Addr(m.Token),
		Amount:         amount,
		Fee:            fee,
		ChargedAt:      m.ChargedAt,
	}, nil
}

// ==================== Claimable models ====================

type claimableModel struct {
	grove.BaseModel `grove:"table:recur_claimables"`

	Token     string    `grove:"token,pk"   bson:"_id"`
	Amount    string    `grove:"amount"     bson:"amount"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

// ==================== Claim models ====================

type claimModel struct {
	grove.BaseModel `grove:"table:recur_claims"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Token     string    `grove:"token"      bson:"token"`
	Amount    string    `grove:"amount"     bson:"amount"`
	To        string    `grove:"to_address" bson:"to_address"`
	ClaimedAt time.Time `grove:"claimed_at" bson:"claimed_at"`
}

func toClaimModel(c *token.Claim) *claimModel {
	return &claimModel{
		ID:        c.ID.String(),
		Token:     c.Token.String(),
		Amount:    c.Amount.String(),
		To:        c.To.String(),
		ClaimedAt: c.ClaimedAt,
	}
}

func fromClaimModel(m *claimModel) (*token.Claim, error) {
	claimID, err := id.ParseClaimID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &token.Claim{
		ID:        claimID,
		Token:     types.Addr(m.Token),
		Amount:    amount,
		To:        types.Addr(m.To),
		ClaimedAt: m.ClaimedAt,
	}, nil
}

// ==================== Counter models ====================

type counterModel struct {
	grove.BaseModel `grove:"table:recur_counters"`

	Name  string `grove:"name,pk" bson:"_id"`
	Value int64  `grove:"value"   bson:"value"`
}
