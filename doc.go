// Package recur provides a composable recurring-billing engine for Go applications.
//
// Recur is designed as a library, not a service. Import it directly into your Go
// application and drive it from your own scheduler or transport. It provides:
//
//   - Plan registry with multiple billing plans per plan (day/month/year/lifetime)
//   - Token-denominated or fiat-denominated pricing with oracle conversion
//   - Subscription lifecycle with drift-free calendar scheduling
//   - A charge-day index for cheap "who is due today" scans
//   - Fee splitting and custody settlement with claimable balances
//   - Owner-gated administration with caller identity on the context
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/recur"
//	    "github.com/xraph/recur/store/postgres"
//	)
//
//	// Initialize store
//	store := postgres.New(groveDB)
//
//	// Create engine
//	eng := recur.New(store, transferor, prices,
//	    recur.WithOwner(owner),
//	)
//
//	// Start the engine (runs migrations)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Plans define what is billed, how often, and in which tokens:
//
//	p := &plan.Plan{
//	    ID:   1,
//	    Name: "Pro",
//	    BillingPlans: []plan.BillingPlan{{
//	        Period:         plan.PeriodMonth,
//	        PeriodValue:    1,
//	        PricingType:    plan.PricingToken,
//	        AcceptedTokens: []types.Address{usdc},
//	        TokenPrices:    []types.Amount{price},
//	    }},
//	}
//
// Subscriptions connect accounts to plans. The caller travels on the
// context:
//
//	ctx = recur.WithCaller(ctx, account)
//	sub, err := eng.Subscribe(ctx, 1, 0, usdc, time.Time{})
//
// Due subscriptions are found through the charge-day index and charged
// one at a time:
//
//	due, _ := eng.ProcessDueSubscriptions(ctx, time.Now())
//	for _, subID := range due {
//	    eng.HandleSubscriptionCharge(ctx, subID)
//	}
//
// # Precision
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Amount type is an 18-decimal fixed-point value on
// math/big integers; fee math rounds up so the protocol never undercharges
// by a fractional unit.
//
// # TypeID
//
// Charge and claim records use TypeID for globally unique, type-safe
// identifiers:
//
//	chg_01h2xcejqtf2nbrexx3vqjhp41  // Charge ID
//	clm_01h455vb4pex5vsknk084sn02q  // Claim ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of records.
package recur
