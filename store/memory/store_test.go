package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/recur"
	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

func TestPlanOrderPreserved(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []uint64{3, 1, 2} {
		if err := s.CreatePlan(ctx, &plan.Plan{ID: id}); err != nil {
			t.Fatalf("CreatePlan(%d) error = %v", id, err)
		}
	}

	plans, err := s.ListPlans(ctx)
	if err != nil {
		t.Fatalf("ListPlans() error = %v", err)
	}
	got := make([]uint64, 0, len(plans))
	for _, p := range plans {
		got = append(got, p.ID)
	}
	want := []uint64{3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plan order = %v, want registration order %v", got, want)
		}
	}

	if err := s.DeletePlan(ctx, 1); err != nil {
		t.Fatalf("DeletePlan() error = %v", err)
	}
	plans, err = s.ListPlans(ctx)
	if err != nil {
		t.Fatalf("ListPlans() after delete error = %v", err)
	}
	if len(plans) != 2 || plans[0].ID != 3 || plans[1].ID != 2 {
		t.Errorf("plans after delete = %v, want [3 2]", plans)
	}

	if err := s.CreatePlan(ctx, &plan.Plan{ID: 3}); !errors.Is(err, recur.ErrAlreadyExists) {
		t.Errorf("duplicate CreatePlan() error = %v, want ErrAlreadyExists", err)
	}
	if _, err := s.GetPlan(ctx, 1); !errors.Is(err, recur.ErrPlanNotFound) {
		t.Errorf("GetPlan(deleted) error = %v, want ErrPlanNotFound", err)
	}
}

func TestNextSubscriptionIDMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		id, err := s.NextSubscriptionID(ctx)
		if err != nil {
			t.Fatalf("NextSubscriptionID() error = %v", err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestAccountPlanUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	account := types.Addr("0xAccount")

	first := &subscription.Subscription{ID: 1, Account: account, PlanID: 7}
	if err := s.CreateSubscription(ctx, first); err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}
	dup := &subscription.Subscription{ID: 2, Account: account, PlanID: 7}
	if err := s.CreateSubscription(ctx, dup); !errors.Is(err, recur.ErrAlreadyExists) {
		t.Fatalf("duplicate account/plan error = %v, want ErrAlreadyExists", err)
	}

	// The pair frees up once the first subscription is deleted.
	if err := s.DeleteSubscription(ctx, 1); err != nil {
		t.Fatalf("DeleteSubscription() error = %v", err)
	}
	if err := s.CreateSubscription(ctx, dup); err != nil {
		t.Fatalf("CreateSubscription() after delete error = %v", err)
	}

	got, err := s.GetSubscriptionByAccountPlan(ctx, account, 7)
	if err != nil {
		t.Fatalf("GetSubscriptionByAccountPlan() error = %v", err)
	}
	if got.ID != 2 {
		t.Errorf("id = %d, want 2", got.ID)
	}
}

func TestChargeDayTombstones(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	sub := &subscription.Subscription{ID: 1, Account: types.Addr("0xAccount"), PlanID: 1}
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}
	if err := s.AppendChargeDay(ctx, day, sub.ID); err != nil {
		t.Fatalf("AppendChargeDay() error = %v", err)
	}
	if err := s.DeleteSubscription(ctx, sub.ID); err != nil {
		t.Fatalf("DeleteSubscription() error = %v", err)
	}

	// The index entry survives as a tombstone.
	ids, err := s.ListChargeDay(ctx, day)
	if err != nil {
		t.Fatalf("ListChargeDay() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != sub.ID {
		t.Fatalf("charge day ids = %v, want [%d]", ids, sub.ID)
	}
	if _, err := s.GetSubscription(ctx, sub.ID); !errors.Is(err, recur.ErrSubscriptionNotFound) {
		t.Errorf("GetSubscription(tombstone) error = %v, want ErrSubscriptionNotFound", err)
	}

	// Other days stay empty.
	ids, err = s.ListChargeDay(ctx, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListChargeDay(next day) error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("next day ids = %v, want none", ids)
	}
}

func TestClaimableAccumulation(t *testing.T) {
	s := New()
	ctx := context.Background()
	usdc := types.Addr("0xUSDC")
	weth := types.Addr("0xWETH")

	if err := s.AddClaimable(ctx, usdc, types.Tokens(3)); err != nil {
		t.Fatalf("AddClaimable() error = %v", err)
	}
	if err := s.AddClaimable(ctx, weth, types.Tokens(1)); err != nil {
		t.Fatalf("AddClaimable() error = %v", err)
	}
	if err := s.AddClaimable(ctx, usdc, types.Tokens(4)); err != nil {
		t.Fatalf("AddClaimable() error = %v", err)
	}

	claimables, err := s.ListClaimables(ctx)
	if err != nil {
		t.Fatalf("ListClaimables() error = %v", err)
	}
	if len(claimables) != 2 {
		t.Fatalf("len(claimables) = %d, want 2", len(claimables))
	}
	// First-appearance order.
	if !claimables[0].Token.Equal(usdc) || !claimables[0].Amount.Equal(types.Tokens(7)) {
		t.Errorf("claimables[0] = %+v, want usdc 7", claimables[0])
	}
	if !claimables[1].Token.Equal(weth) || !claimables[1].Amount.Equal(types.Tokens(1)) {
		t.Errorf("claimables[1] = %+v, want weth 1", claimables[1])
	}

	reset, err := s.ResetClaimable(ctx, usdc)
	if err != nil {
		t.Fatalf("ResetClaimable() error = %v", err)
	}
	if !reset.Equal(types.Tokens(7)) {
		t.Errorf("reset amount = %s, want 7", reset)
	}
	claimables, err = s.ListClaimables(ctx)
	if err != nil {
		t.Fatalf("ListClaimables() after reset error = %v", err)
	}
	for _, c := range claimables {
		if c.Token.Equal(usdc) && !c.Amount.IsZero() {
			t.Errorf("usdc claimable = %s after reset, want 0", c.Amount)
		}
	}
}

func TestPriceFeedCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()
	usdc := types.Addr("0xUSDC")
	feedA := types.Addr("0xFeedA")
	feedB := types.Addr("0xFeedB")

	if err := s.CreatePriceFeed(ctx, &token.PriceFeed{Token: usdc, Feed: feedA}); err != nil {
		t.Fatalf("CreatePriceFeed() error = %v", err)
	}
	if err := s.CreatePriceFeed(ctx, &token.PriceFeed{Token: usdc, Feed: feedB}); !errors.Is(err, recur.ErrAlreadyExists) {
		t.Errorf("duplicate CreatePriceFeed() error = %v, want ErrAlreadyExists", err)
	}

	if err := s.UpdatePriceFeed(ctx, &token.PriceFeed{Token: usdc, Feed: feedB}); err != nil {
		t.Fatalf("UpdatePriceFeed() error = %v", err)
	}
	got, err := s.GetPriceFeed(ctx, usdc)
	if err != nil {
		t.Fatalf("GetPriceFeed() error = %v", err)
	}
	if !got.Feed.Equal(feedB) {
		t.Errorf("feed = %s, want %s", got.Feed, feedB)
	}

	if err := s.DeletePriceFeed(ctx, usdc); err != nil {
		t.Fatalf("DeletePriceFeed() error = %v", err)
	}
	if _, err := s.GetPriceFeed(ctx, usdc); !errors.Is(err, recur.ErrTokenNotRegistered) {
		t.Errorf("GetPriceFeed(deleted) error = %v, want ErrTokenNotRegistered", err)
	}
	if err := s.UpdatePriceFeed(ctx, &token.PriceFeed{Token: usdc, Feed: feedA}); !errors.Is(err, recur.ErrTokenNotRegistered) {
		t.Errorf("UpdatePriceFeed(deleted) error = %v, want ErrTokenNotRegistered", err)
	}
}
