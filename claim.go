package recur

import (
	"context"
	"fmt"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/token"
)

// ──────────────────────────────────────────────────
// Settlement (owner only)
// ──────────────────────────────────────────────────

// ClaimableTokens lists the custody balances accumulated from charges,
// one entry per token, net of provider fees.
func (e *Engine) ClaimableTokens(ctx context.Context) ([]*token.Claimable, error) {
	e.mu.Lock()
	err := e.requireOwnerLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.store.ListClaimables(ctx)
}

// ClaimTokens withdraws every non-zero custody balance to the owner
// and resets the balances. Returns one claim record per token paid
// out; fails with ErrNothingToClaim when no balance is positive.
func (e *Engine) ClaimTokens(ctx context.Context) ([]*token.Claim, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return nil, err
	}

	claimables, err := e.store.ListClaimables(ctx)
	if err != nil {
		return nil, err
	}

	pending := claimables[:0]
	for _, c := range claimables {
		if c.Amount.Sign() > 0 {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil, ErrNothingToClaim
	}

	now := e.clock()
	claims := make([]*token.Claim, 0, len(pending))
	for _, c := range pending {
		if err := e.tokens.Transfer(ctx, c.Token, e.owner, c.Amount); err != nil {
			return claims, fmt.Errorf("claim %s: %w", c.Token, err)
		}
		amount, err := e.store.ResetClaimable(ctx, c.Token)
		if err != nil {
			e.logger.Error("claimable reset failed after payout",
				"token", c.Token, "amount", c.Amount, "error", err)
			return claims, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}

		claim := &token.Claim{
			ID:        id.NewClaimID(),
			Token:     c.Token,
			Amount:    amount,
			To:        e.owner,
			ClaimedAt: now,
		}
		if err := e.store.CreateClaim(ctx, claim); err != nil {
			return claims, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
		claims = append(claims, claim)

		e.logger.Info("tokens claimed", "token", c.Token, "amount", amount, "to", e.owner)
		e.plugins.EmitTokensClaimed(ctx, claim)
	}
	return claims, nil
}

// ClaimHistory lists all past claim payouts. Owner only.
func (e *Engine) ClaimHistory(ctx context.Context) ([]*token.Claim, error) {
	e.mu.Lock()
	err := e.requireOwnerLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.store.ListClaims(ctx)
}
