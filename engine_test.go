package recur_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/recur"
	"github.com/xraph/recur/oracle"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

var (
	owner    = types.Addr("0xOwner")
	provider = types.Addr("0xProvider")
	custody  = types.Addr("0xCustody")
	alice    = types.Addr("0xAlice")
	bob      = types.Addr("0xBob")
	usdc     = types.Addr("0xUSDC")
	weth     = types.Addr("0xWETH")
	usdcFeed = types.Addr("0xFeedUSDC")
)

// fakeClock is a settable time source for driving billing cycles.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t      *testing.T
	eng    *recur.Engine
	bank   *token.Bank
	prices *oracle.Static
	clock  *fakeClock
}

func newFixture(t *testing.T, opts ...recur.Option) *fixture {
	t.Helper()

	clock := newFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	bank := token.NewBank(custody)
	prices := oracle.NewStatic(8)

	base := []recur.Option{
		recur.WithOwner(owner),
		recur.WithCustodyAccount(custody),
		recur.WithClock(clock.Now),
	}
	eng := recur.New(memory.New(), bank, prices, append(base, opts...)...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	return &fixture{t: t, eng: eng, bank: bank, prices: prices, clock: clock}
}

func ownerCtx() context.Context {
	return recur.WithCaller(context.Background(), owner)
}

func callerCtx(account types.Address) context.Context {
	return recur.WithCaller(context.Background(), account)
}

// fund mints amount to account and approves the custody account to
// pull it.
func (f *fixture) fund(account, tok types.Address, amount types.Amount) {
	f.t.Helper()
	f.bank.Mint(tok, account, amount)
	f.bank.Approve(tok, account, custody, amount)
}

func (f *fixture) createPlan(planID uint64, bps ...plan.BillingPlan) *plan.Plan {
	f.t.Helper()
	p := &plan.Plan{
		ID:           planID,
		Name:         fmt.Sprintf("plan-%d", planID),
		BillingPlans: bps,
	}
	if err := f.eng.CreatePlan(ownerCtx(), p); err != nil {
		f.t.Fatalf("CreatePlan(%d) error = %v", planID, err)
	}
	return p
}

func monthlyTokenPlan(price types.Amount) plan.BillingPlan {
	return plan.BillingPlan{
		Period:         plan.PeriodMonth,
		PeriodValue:    1,
		PricingType:    plan.PricingToken,
		AcceptedTokens: []types.Address{usdc},
		TokenPrices:    []types.Amount{price},
	}
}

func TestSubscribeImmediate(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.fund(alice, usdc, price)

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if sub.Status != subscription.StatusActive {
		t.Errorf("status = %q, want %q", sub.Status, subscription.StatusActive)
	}
	if sub.BillingCycle != 1 {
		t.Errorf("billing cycle = %d, want 1", sub.BillingCycle)
	}
	wantNext := f.clock.Now().AddDate(0, 1, 0)
	if !sub.NextChargeTime.Equal(wantNext) {
		t.Errorf("next charge = %v, want %v", sub.NextChargeTime, wantNext)
	}

	if got := f.bank.BalanceOf(usdc, alice); !got.IsZero() {
		t.Errorf("alice balance = %s, want 0", got)
	}
	if got := f.bank.BalanceOf(usdc, custody); !got.Equal(price) {
		t.Errorf("custody balance = %s, want %s", got, price)
	}

	charges, err := f.eng.Charges(callerCtx(alice), sub.ID)
	if err != nil {
		t.Fatalf("Charges() error = %v", err)
	}
	if len(charges) != 1 {
		t.Fatalf("len(charges) = %d, want 1", len(charges))
	}
	if !charges[0].Amount.Equal(price) {
		t.Errorf("charge amount = %s, want %s", charges[0].Amount, price)
	}
	if !charges[0].Fee.IsZero() {
		t.Errorf("charge fee = %s, want 0 without a fee rate", charges[0].Fee)
	}
}

func TestSubscribeDeferred(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))

	start := f.clock.Now().Add(48 * time.Hour)
	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, start)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if sub.Status != subscription.StatusPending {
		t.Errorf("status = %q, want %q", sub.Status, subscription.StatusPending)
	}
	if sub.BillingCycle != 0 {
		t.Errorf("billing cycle = %d, want 0 before first charge", sub.BillingCycle)
	}
	if got := f.bank.BalanceOf(usdc, custody); !got.IsZero() {
		t.Errorf("custody balance = %s, want 0 before the start time", got)
	}

	// Not in today's bucket.
	due, err := f.eng.ProcessDueSubscriptions(context.Background(), f.clock.Now())
	if err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due today = %v, want none", due)
	}

	// Due once the start day arrives.
	f.clock.Set(start)
	due, err = f.eng.ProcessDueSubscriptions(context.Background(), start)
	if err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}
	if len(due) != 1 || due[0] != sub.ID {
		t.Fatalf("due = %v, want [%d]", due, sub.ID)
	}

	f.fund(alice, usdc, price)
	charge, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("HandleSubscriptionCharge() error = %v", err)
	}
	if charge == nil {
		t.Fatal("HandleSubscriptionCharge() charge = nil, want record")
	}
	if !charge.Amount.Equal(price) {
		t.Errorf("charge amount = %s, want %s", charge.Amount, price)
	}
}

func TestSubscribeRejections(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.fund(alice, usdc, price)
	if _, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{}); err != nil {
		t.Fatalf("seed Subscribe() error = %v", err)
	}

	tests := []struct {
		name    string
		ctx     context.Context
		planID  uint64
		index   int
		token   types.Address
		wantErr error
	}{
		{"no caller", context.Background(), 1, 0, usdc, recur.ErrNoCaller},
		{"zero plan id", callerCtx(bob), 0, 0, usdc, recur.ErrInvalidSubscriptionData},
		{"zero token", callerCtx(bob), 1, 0, types.ZeroAddress, recur.ErrInvalidSubscriptionData},
		{"unknown plan", callerCtx(bob), 99, 0, usdc, recur.ErrPlanNotFound},
		{"bad billing plan index", callerCtx(bob), 1, 5, usdc, recur.ErrBillingPlanNotFound},
		{"token not accepted", callerCtx(bob), 1, 0, weth, recur.ErrTokenNotAllowed},
		{"already subscribed", callerCtx(alice), 1, 0, usdc, recur.ErrAlreadySubscribed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.Subscribe(tt.ctx, tt.planID, tt.index, tt.token, time.Time{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeAllowanceTooLowPersistsNothing(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))

	// Half the price approved.
	f.bank.Mint(usdc, alice, price)
	f.bank.Approve(usdc, alice, custody, types.Tokens(5))

	_, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if !errors.Is(err, recur.ErrAllowanceTooLow) {
		t.Fatalf("Subscribe() error = %v, want ErrAllowanceTooLow", err)
	}

	subs, err := f.eng.Subscriptions(callerCtx(alice))
	if err != nil {
		t.Fatalf("Subscriptions() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("len(subs) = %d, want 0 after failed first charge", len(subs))
	}
	if got := f.bank.BalanceOf(usdc, alice); !got.Equal(price) {
		t.Errorf("alice balance = %s, want untouched %s", got, price)
	}
}

func TestChargeIdempotentPerCycle(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.fund(alice, usdc, types.Tokens(20))

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Same cycle: the schedule already advanced.
	if _, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID); !errors.Is(err, recur.ErrSubscriptionNotDue) {
		t.Fatalf("second charge error = %v, want ErrSubscriptionNotDue", err)
	}

	// Next cycle charges exactly once more.
	f.clock.Set(f.clock.Now().AddDate(0, 1, 0))
	charge, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("HandleSubscriptionCharge() error = %v", err)
	}
	if charge.Cycle != 2 {
		t.Errorf("cycle = %d, want 2", charge.Cycle)
	}
	if _, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID); !errors.Is(err, recur.ErrSubscriptionNotDue) {
		t.Fatalf("repeat charge error = %v, want ErrSubscriptionNotDue", err)
	}
}

func TestTwelveMonthsWithOnePercentFee(t *testing.T) {
	onePercent := new(big.Int).Div(types.Scale(), big.NewInt(100))
	f := newFixture(t,
		recur.WithServiceProvider(provider),
		recur.WithFeeRate(onePercent),
	)

	// One base unit above a whole token so the 1% fee must round up.
	price := types.AmountFromBig(new(big.Int).Add(types.Scale(), big.NewInt(1)))
	wantFee := price.MulDivCeil(onePercent, recur.FeeScale)

	f.createPlan(1, monthlyTokenPlan(price))

	total := price
	for i := 1; i < 12; i++ {
		total = total.Add(price)
	}
	f.fund(alice, usdc, total)

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	for cycle := 2; cycle <= 12; cycle++ {
		f.clock.Set(f.clock.Now().AddDate(0, 1, 0))
		if _, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID); err != nil {
			t.Fatalf("cycle %d charge error = %v", cycle, err)
		}
	}

	charges, err := f.eng.Charges(ownerCtx(), sub.ID)
	if err != nil {
		t.Fatalf("Charges() error = %v", err)
	}
	if len(charges) != 12 {
		t.Fatalf("len(charges) = %d, want 12", len(charges))
	}
	for _, c := range charges {
		if !c.Fee.Equal(wantFee) {
			t.Fatalf("cycle %d fee = %s, want ceil-rounded %s", c.Cycle, c.Fee, wantFee)
		}
	}

	// Fund conservation: everything alice paid is either provider fees
	// or custody balance, and the custody balance equals the claimable
	// pool.
	var providerWant, custodyWant types.Amount
	for i := 0; i < 12; i++ {
		providerWant = providerWant.Add(wantFee)
		custodyWant = custodyWant.Add(price.Sub(wantFee))
	}
	if got := f.bank.BalanceOf(usdc, alice); !got.IsZero() {
		t.Errorf("alice balance = %s, want 0", got)
	}
	if got := f.bank.BalanceOf(usdc, provider); !got.Equal(providerWant) {
		t.Errorf("provider balance = %s, want %s", got, providerWant)
	}
	if got := f.bank.BalanceOf(usdc, custody); !got.Equal(custodyWant) {
		t.Errorf("custody balance = %s, want %s", got, custodyWant)
	}

	claimables, err := f.eng.ClaimableTokens(ownerCtx())
	if err != nil {
		t.Fatalf("ClaimableTokens() error = %v", err)
	}
	if len(claimables) != 1 || !claimables[0].Amount.Equal(custodyWant) {
		t.Fatalf("claimables = %+v, want one %s entry of %s", claimables, usdc, custodyWant)
	}

	// Claiming moves the custody balance to the owner and resets it.
	claims, err := f.eng.ClaimTokens(ownerCtx())
	if err != nil {
		t.Fatalf("ClaimTokens() error = %v", err)
	}
	if len(claims) != 1 || !claims[0].Amount.Equal(custodyWant) {
		t.Fatalf("claims = %+v, want one payout of %s", claims, custodyWant)
	}
	if got := f.bank.BalanceOf(usdc, owner); !got.Equal(custodyWant) {
		t.Errorf("owner balance = %s, want %s", got, custodyWant)
	}
	if _, err := f.eng.ClaimTokens(ownerCtx()); !errors.Is(err, recur.ErrNothingToClaim) {
		t.Fatalf("second ClaimTokens() error = %v, want ErrNothingToClaim", err)
	}

	history, err := f.eng.ClaimHistory(ownerCtx())
	if err != nil {
		t.Fatalf("ClaimHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("len(history) = %d, want 1", len(history))
	}
}

func TestLifetimePlanChargesOnce(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(100)
	f.createPlan(1, plan.BillingPlan{
		Period:         plan.PeriodLifetime,
		PeriodValue:    1,
		PricingType:    plan.PricingToken,
		AcceptedTokens: []types.Address{usdc},
		TokenPrices:    []types.Amount{price},
	})
	f.fund(alice, usdc, price)

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.NextChargeTime.IsZero() {
		t.Errorf("next charge = %v, want zero for lifetime", sub.NextChargeTime)
	}

	f.clock.Set(f.clock.Now().AddDate(1, 0, 0))
	if _, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID); !errors.Is(err, recur.ErrSubscriptionNotDue) {
		t.Fatalf("charge after lifetime error = %v, want ErrSubscriptionNotDue", err)
	}
	due, err := f.eng.ProcessDueSubscriptions(context.Background(), f.clock.Now())
	if err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due = %v, want none after the single charge", due)
	}
}

func TestZeroFiatPriceAdvancesSilently(t *testing.T) {
	f := newFixture(t)
	f.createPlan(1, plan.BillingPlan{
		Period:         plan.PeriodMonth,
		PeriodValue:    1,
		PricingType:    plan.PricingFiat,
		AcceptedTokens: []types.Address{usdc},
	})

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.Status != subscription.StatusActive {
		t.Errorf("status = %q, want %q", sub.Status, subscription.StatusActive)
	}
	if sub.BillingCycle != 1 {
		t.Errorf("billing cycle = %d, want 1", sub.BillingCycle)
	}

	charges, err := f.eng.Charges(callerCtx(alice), sub.ID)
	if err != nil {
		t.Fatalf("Charges() error = %v", err)
	}
	if len(charges) != 0 {
		t.Errorf("len(charges) = %d, want 0 for zero-amount cycles", len(charges))
	}
	claimables, err := f.eng.ClaimableTokens(ownerCtx())
	if err != nil {
		t.Fatalf("ClaimableTokens() error = %v", err)
	}
	if len(claimables) != 0 {
		t.Errorf("claimables = %+v, want none", claimables)
	}
}

func TestFiatPricingConvertsThroughOracle(t *testing.T) {
	f := newFixture(t)

	if err := f.eng.AddTokenPriceFeed(ownerCtx(), usdc, usdcFeed); err != nil {
		t.Fatalf("AddTokenPriceFeed() error = %v", err)
	}
	// $2.00 per token at 8 feed decimals.
	f.prices.SetPrice(usdcFeed, big.NewInt(200_000_000))

	f.createPlan(1, plan.BillingPlan{
		Period:         plan.PeriodMonth,
		PeriodValue:    1,
		PricingType:    plan.PricingFiat,
		AcceptedTokens: []types.Address{usdc},
		FiatPrice:      decimal.NewFromInt(50),
	})

	want := types.Tokens(25) // $50 at $2/token
	f.fund(alice, usdc, want)

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	charges, err := f.eng.Charges(callerCtx(alice), sub.ID)
	if err != nil {
		t.Fatalf("Charges() error = %v", err)
	}
	if len(charges) != 1 || !charges[0].Amount.Equal(want) {
		t.Fatalf("charges = %+v, want one charge of %s", charges, want)
	}
}

func TestFiatPricingWithoutFeedFails(t *testing.T) {
	f := newFixture(t)
	f.createPlan(1, plan.BillingPlan{
		Period:         plan.PeriodMonth,
		PeriodValue:    1,
		PricingType:    plan.PricingFiat,
		AcceptedTokens: []types.Address{usdc},
		FiatPrice:      decimal.NewFromInt(50),
	})

	_, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if !errors.Is(err, recur.ErrTokenAmountCalculation) {
		t.Fatalf("Subscribe() error = %v, want ErrTokenAmountCalculation", err)
	}
	subs, err := f.eng.Subscriptions(callerCtx(alice))
	if err != nil {
		t.Fatalf("Subscriptions() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("len(subs) = %d, want 0 after failed conversion", len(subs))
	}
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.createPlan(2, monthlyTokenPlan(price))
	f.fund(alice, usdc, types.Tokens(20))

	if _, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{}); err != nil {
		t.Fatalf("Subscribe(1) error = %v", err)
	}
	if _, err := f.eng.Subscribe(callerCtx(alice), 2, 0, usdc, time.Time{}); err != nil {
		t.Fatalf("Subscribe(2) error = %v", err)
	}

	if err := f.eng.Unsubscribe(callerCtx(alice), 1); err != nil {
		t.Fatalf("Unsubscribe(1) error = %v", err)
	}

	subs, err := f.eng.Subscriptions(callerCtx(alice))
	if err != nil {
		t.Fatalf("Subscriptions() error = %v", err)
	}
	if len(subs) != 1 || subs[0].PlanID != 2 {
		t.Fatalf("subs = %+v, want only plan 2", subs)
	}

	if err := f.eng.Unsubscribe(callerCtx(alice), 1); !errors.Is(err, recur.ErrNotSubscribed) {
		t.Fatalf("repeat Unsubscribe(1) error = %v, want ErrNotSubscribed", err)
	}
}

func TestUnsubscribeLeavesIndexTombstone(t *testing.T) {
	f := newFixture(t)
	f.createPlan(1, monthlyTokenPlan(types.Tokens(10)))

	start := f.clock.Now().Add(72 * time.Hour)
	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, start)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := f.eng.Unsubscribe(callerCtx(alice), 1); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	// The index entry survives the unsubscribe but the scan skips it.
	f.clock.Set(start)
	due, err := f.eng.ProcessDueSubscriptions(context.Background(), start)
	if err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}
	for _, id := range due {
		if id == sub.ID {
			t.Fatalf("unsubscribed %d still reported due", sub.ID)
		}
	}
}

func TestResubscribeAllocatesNewID(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.fund(alice, usdc, types.Tokens(20))

	first, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("first Subscribe() error = %v", err)
	}
	if err := f.eng.Unsubscribe(callerCtx(alice), 1); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	second, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("second Subscribe() error = %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("second id = %d, want > %d (ids are never reused)", second.ID, first.ID)
	}
	if second.BillingCycle != 1 {
		t.Errorf("second billing cycle = %d, want fresh count of 1", second.BillingCycle)
	}
}

func TestProcessDueSubscriptionsDeduplicates(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, plan.BillingPlan{
		// Daily cadence: consecutive cycles can land in one bucket
		// after a missed sweep.
		Period:         plan.PeriodDay,
		PeriodValue:    1,
		PricingType:    plan.PricingToken,
		AcceptedTokens: []types.Address{usdc},
		TokenPrices:    []types.Amount{price},
	})
	f.fund(alice, usdc, types.Tokens(30))

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	f.clock.Advance(24 * time.Hour)
	if _, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID); err != nil {
		t.Fatalf("charge error = %v", err)
	}

	f.clock.Advance(24 * time.Hour)
	due, err := f.eng.ProcessDueSubscriptions(context.Background(), f.clock.Now())
	if err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}
	count := 0
	for _, id := range due {
		if id == sub.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("subscription %d reported %d times, want once", sub.ID, count)
	}
}

func TestSubscriptionQueryAccess(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.fund(alice, usdc, price)

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Raw-id lookup is owner only.
	if _, err := f.eng.Subscription(callerCtx(alice), sub.ID); !errors.Is(err, recur.ErrNotOwner) {
		t.Errorf("Subscription() as account error = %v, want ErrNotOwner", err)
	}
	if _, err := f.eng.Subscription(ownerCtx(), sub.ID); err != nil {
		t.Errorf("Subscription() as owner error = %v", err)
	}

	// Charge history is visible to the account and the owner, nobody else.
	if _, err := f.eng.Charges(callerCtx(alice), sub.ID); err != nil {
		t.Errorf("Charges() as account error = %v", err)
	}
	if _, err := f.eng.Charges(ownerCtx(), sub.ID); err != nil {
		t.Errorf("Charges() as owner error = %v", err)
	}
	if _, err := f.eng.Charges(callerCtx(bob), sub.ID); !errors.Is(err, recur.ErrNotOwner) {
		t.Errorf("Charges() as stranger error = %v, want ErrNotOwner", err)
	}
}

func TestDriftFreeSchedule(t *testing.T) {
	f := newFixture(t)
	price := types.Tokens(10)
	f.createPlan(1, monthlyTokenPlan(price))
	f.fund(alice, usdc, types.Tokens(20))

	sub, err := f.eng.Subscribe(callerCtx(alice), 1, 0, usdc, time.Time{})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	scheduled := sub.NextChargeTime

	// Charge three days late; the next cycle still anchors on the
	// scheduled time.
	f.clock.Set(scheduled.Add(72 * time.Hour))
	if _, err := f.eng.HandleSubscriptionCharge(context.Background(), sub.ID); err != nil {
		t.Fatalf("late charge error = %v", err)
	}

	got, err := f.eng.Subscription(ownerCtx(), sub.ID)
	if err != nil {
		t.Fatalf("Subscription() error = %v", err)
	}
	want := scheduled.AddDate(0, 1, 0)
	if !got.NextChargeTime.Equal(want) {
		t.Errorf("next charge = %v, want %v anchored on the schedule", got.NextChargeTime, want)
	}
}
