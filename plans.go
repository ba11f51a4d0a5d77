package recur

import (
	"context"
	"fmt"

	"github.com/xraph/recur/plan"
	"github.com/xraph/recur/types"
)

// ──────────────────────────────────────────────────
// Plan Management (owner only)
// ──────────────────────────────────────────────────

// CreatePlan registers a new plan under its caller-assigned id. The id
// must be non-zero and unused; every billing plan must validate.
func (e *Engine) CreatePlan(ctx context.Context, p *plan.Plan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createPlanLocked(ctx, p)
}

func (e *Engine) createPlanLocked(ctx context.Context, p *plan.Plan) error {
	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if p == nil || p.ID == 0 {
		return ValidationError{Field: "plan_id", Message: "must be non-zero"}
	}
	for i := range p.BillingPlans {
		if err := validateBillingPlan(&p.BillingPlans[i]); err != nil {
			return fmt.Errorf("billing plan %d: %w", i, err)
		}
	}
	if _, err := e.store.GetPlan(ctx, p.ID); err == nil {
		return fmt.Errorf("%w: %d", ErrPlanAlreadyRegistered, p.ID)
	}

	p.Entity = types.NewEntity()
	if err := e.store.CreatePlan(ctx, p); err != nil {
		return err
	}

	e.logger.Info("plan created", "plan_id", p.ID, "name", p.Name, "billing_plans", len(p.BillingPlans))
	e.plugins.EmitPlanCreated(ctx, p)
	return nil
}

// UpdatePlan replaces the name and billing plans of an existing plan.
// Subscriptions already taken keep the billing-plan copy frozen at
// subscribe time, so updates never reprice existing subscribers.
func (e *Engine) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updatePlanLocked(ctx, p)
}

func (e *Engine) updatePlanLocked(ctx context.Context, p *plan.Plan) error {
	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if p == nil || p.ID == 0 {
		return ValidationError{Field: "plan_id", Message: "must be non-zero"}
	}
	for i := range p.BillingPlans {
		if err := validateBillingPlan(&p.BillingPlans[i]); err != nil {
			return fmt.Errorf("billing plan %d: %w", i, err)
		}
	}

	old, err := e.store.GetPlan(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, p.ID)
	}

	// An empty billing-plan list means "rename only".
	if len(p.BillingPlans) == 0 {
		p.BillingPlans = old.BillingPlans
	}
	p.Entity = old.Entity
	p.Touch()
	if err := e.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	e.logger.Info("plan updated", "plan_id", p.ID, "name", p.Name)
	e.plugins.EmitPlanUpdated(ctx, old, p)
	return nil
}

// DeletePlan removes a plan from the registry. Existing subscriptions
// to the plan keep billing from their frozen billing-plan copy.
func (e *Engine) DeletePlan(ctx context.Context, planID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deletePlanLocked(ctx, planID)
}

func (e *Engine) deletePlanLocked(ctx context.Context, planID uint64) error {
	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if err := e.store.DeletePlan(ctx, planID); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
		}
		return err
	}

	e.logger.Info("plan deleted", "plan_id", planID)
	e.plugins.EmitPlanDeleted(ctx, planID)
	return nil
}

// AddBillingPlan appends a billing plan to an existing plan. Its index
// is the current end of the list.
func (e *Engine) AddBillingPlan(ctx context.Context, planID uint64, bp plan.BillingPlan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if err := validateBillingPlan(&bp); err != nil {
		return err
	}

	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}

	p.BillingPlans = append(p.BillingPlans, bp)
	p.Touch()
	if err := e.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	e.logger.Info("billing plan added", "plan_id", planID, "index", len(p.BillingPlans)-1)
	e.plugins.EmitPlanUpdated(ctx, nil, p)
	return nil
}

// UpdateBillingPlan replaces the billing plan at index.
func (e *Engine) UpdateBillingPlan(ctx context.Context, planID uint64, index int, bp plan.BillingPlan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if err := validateBillingPlan(&bp); err != nil {
		return err
	}

	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}
	if p.BillingPlanAt(index) == nil {
		return fmt.Errorf("%w: plan %d index %d", ErrBillingPlanNotFound, planID, index)
	}

	p.BillingPlans[index] = bp
	p.Touch()
	if err := e.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	e.logger.Info("billing plan updated", "plan_id", planID, "index", index)
	e.plugins.EmitPlanUpdated(ctx, nil, p)
	return nil
}

// RemoveBillingPlan deletes the billing plan at index. Later entries
// shift down one position, so external references by index must be
// refreshed after a removal.
func (e *Engine) RemoveBillingPlan(ctx context.Context, planID uint64, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}

	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}
	if p.BillingPlanAt(index) == nil {
		return fmt.Errorf("%w: plan %d index %d", ErrBillingPlanNotFound, planID, index)
	}

	p.BillingPlans = append(p.BillingPlans[:index], p.BillingPlans[index+1:]...)
	p.Touch()
	if err := e.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	e.logger.Info("billing plan removed", "plan_id", planID, "index", index)
	e.plugins.EmitPlanUpdated(ctx, nil, p)
	return nil
}

// SyncPlans reconciles the registry against target: plans absent from
// target are deleted, present ones are updated in place, new ones are
// created. Every target plan is validated before anything is written.
func (e *Engine) SyncPlans(ctx context.Context, target []*plan.Plan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}

	want := make(map[uint64]*plan.Plan, len(target))
	for _, p := range target {
		if p == nil || p.ID == 0 {
			return ValidationError{Field: "plan_id", Message: "must be non-zero"}
		}
		if _, dup := want[p.ID]; dup {
			return fmt.Errorf("%w: duplicate plan %d in sync set", ErrInvalidInput, p.ID)
		}
		for i := range p.BillingPlans {
			if err := validateBillingPlan(&p.BillingPlans[i]); err != nil {
				return fmt.Errorf("plan %d billing plan %d: %w", p.ID, i, err)
			}
		}
		want[p.ID] = p
	}

	current, err := e.store.ListPlans(ctx)
	if err != nil {
		return err
	}
	for _, p := range current {
		if _, keep := want[p.ID]; keep {
			continue
		}
		if err := e.store.DeletePlan(ctx, p.ID); err != nil {
			return err
		}
		e.plugins.EmitPlanDeleted(ctx, p.ID)
	}

	have := make(map[uint64]*plan.Plan, len(current))
	for _, p := range current {
		have[p.ID] = p
	}
	for _, p := range target {
		old, exists := have[p.ID]
		if exists {
			p.Entity = old.Entity
			p.Touch()
			if err := e.store.UpdatePlan(ctx, p); err != nil {
				return err
			}
			e.plugins.EmitPlanUpdated(ctx, old, p)
			continue
		}
		p.Entity = types.NewEntity()
		if err := e.store.CreatePlan(ctx, p); err != nil {
			return err
		}
		e.plugins.EmitPlanCreated(ctx, p)
	}

	e.logger.Info("plans synced", "target", len(target), "previous", len(current))
	return nil
}

// ──────────────────────────────────────────────────
// Plan Queries (public)
// ──────────────────────────────────────────────────

// GetPlan retrieves a plan by id.
func (e *Engine) GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error) {
	p, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}
	return p, nil
}

// GetPlans lists all plans in registration order.
func (e *Engine) GetPlans(ctx context.Context) ([]*plan.Plan, error) {
	return e.store.ListPlans(ctx)
}

// validateBillingPlan rejects billing plans the engine could never
// charge: unknown or out-of-range periods, zero token addresses, and
// token pricing whose price list does not line up with the accepted
// tokens.
func validateBillingPlan(bp *plan.BillingPlan) error {
	if !bp.Period.Valid() {
		return fmt.Errorf("%w: unknown period %q", ErrInvalidBillingPeriod, bp.Period)
	}
	if bp.PeriodValue < 1 || bp.PeriodValue > bp.Period.MaxValue() {
		return fmt.Errorf("%w: %s value %d out of range [1, %d]",
			ErrInvalidBillingPeriod, bp.Period, bp.PeriodValue, bp.Period.MaxValue())
	}
	if len(bp.AcceptedTokens) == 0 {
		return ErrMissingTokenAddresses
	}
	for _, tok := range bp.AcceptedTokens {
		if tok.IsZero() {
			return ErrInvalidTokenAddress
		}
	}
	switch bp.PricingType {
	case plan.PricingToken:
		if len(bp.TokenPrices) == 0 {
			return ErrMissingTokenPrices
		}
		if len(bp.TokenPrices) != len(bp.AcceptedTokens) {
			return fmt.Errorf("%w: %d prices for %d tokens",
				ErrTokenPriceMismatch, len(bp.TokenPrices), len(bp.AcceptedTokens))
		}
	case plan.PricingFiat:
		// Fiat price may be zero; zero-priced cycles advance without
		// moving funds.
	default:
		return ValidationError{Field: "pricing_type", Message: fmt.Sprintf("unknown pricing type %q", bp.PricingType)}
	}
	return nil
}
