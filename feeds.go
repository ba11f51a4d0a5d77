package recur

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/recur/oracle"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// ──────────────────────────────────────────────────
// Token Price Feed Management (owner only)
// ──────────────────────────────────────────────────

// AddTokenPriceFeed binds a payment token to its price feed. Fiat-priced
// billing plans can only charge in tokens that carry a feed binding.
func (e *Engine) AddTokenPriceFeed(ctx context.Context, tok, feed types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addTokenPriceFeedLocked(ctx, tok, feed)
}

func (e *Engine) addTokenPriceFeedLocked(ctx context.Context, tok, feed types.Address) error {
	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if tok.IsZero() {
		return ValidationError{Field: "token", Message: "zero address"}
	}
	if _, err := e.store.GetPriceFeed(ctx, tok); err == nil {
		return fmt.Errorf("%w: %s", ErrTokenAlreadyRegistered, tok)
	}

	f := &token.PriceFeed{Entity: types.NewEntity(), Token: tok, Feed: feed}
	if err := e.store.CreatePriceFeed(ctx, f); err != nil {
		return err
	}

	e.logger.Info("price feed added", "token", tok, "feed", feed)
	e.plugins.EmitPriceFeedAdded(ctx, f)
	return nil
}

// UpdateTokenPriceFeed rebinds a registered token to a new feed.
func (e *Engine) UpdateTokenPriceFeed(ctx context.Context, tok, feed types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateTokenPriceFeedLocked(ctx, tok, feed)
}

func (e *Engine) updateTokenPriceFeedLocked(ctx context.Context, tok, feed types.Address) error {
	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}

	f, err := e.store.GetPriceFeed(ctx, tok)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTokenNotRegistered, tok)
	}

	old := *f
	f.Feed = feed
	f.Touch()
	if err := e.store.UpdatePriceFeed(ctx, f); err != nil {
		return err
	}

	e.logger.Info("price feed updated", "token", tok, "feed", feed)
	e.plugins.EmitPriceFeedUpdated(ctx, &old, f)
	return nil
}

// DeleteTokenPriceFeed unregisters a token's feed binding.
func (e *Engine) DeleteTokenPriceFeed(ctx context.Context, tok types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteTokenPriceFeedLocked(ctx, tok)
}

func (e *Engine) deleteTokenPriceFeedLocked(ctx context.Context, tok types.Address) error {
	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if err := e.store.DeletePriceFeed(ctx, tok); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrTokenNotRegistered, tok)
		}
		return err
	}

	e.logger.Info("price feed deleted", "token", tok)
	e.plugins.EmitPriceFeedDeleted(ctx, tok.String())
	return nil
}

// SyncTokenPriceFeeds reconciles the feed registry against target:
// bindings absent from target are deleted, present ones are rebound,
// new ones are created.
func (e *Engine) SyncTokenPriceFeeds(ctx context.Context, target []*token.PriceFeed) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}

	want := make(map[types.Address]*token.PriceFeed, len(target))
	for _, f := range target {
		if f == nil || f.Token.IsZero() {
			return ValidationError{Field: "token", Message: "zero address"}
		}
		if _, dup := want[f.Token]; dup {
			return fmt.Errorf("%w: duplicate token %s in sync set", ErrInvalidInput, f.Token)
		}
		want[f.Token] = f
	}

	current, err := e.store.ListPriceFeeds(ctx)
	if err != nil {
		return err
	}
	have := make(map[types.Address]*token.PriceFeed, len(current))
	for _, f := range current {
		have[f.Token] = f
		if _, keep := want[f.Token]; keep {
			continue
		}
		if err := e.store.DeletePriceFeed(ctx, f.Token); err != nil {
			return err
		}
		e.plugins.EmitPriceFeedDeleted(ctx, f.Token.String())
	}

	for _, f := range target {
		old, exists := have[f.Token]
		if exists {
			if old.Feed.Equal(f.Feed) {
				continue
			}
			updated := *old
			updated.Feed = f.Feed
			updated.Touch()
			if err := e.store.UpdatePriceFeed(ctx, &updated); err != nil {
				return err
			}
			e.plugins.EmitPriceFeedUpdated(ctx, old, &updated)
			continue
		}
		created := &token.PriceFeed{Entity: types.NewEntity(), Token: f.Token, Feed: f.Feed}
		if err := e.store.CreatePriceFeed(ctx, created); err != nil {
			return err
		}
		e.plugins.EmitPriceFeedAdded(ctx, created)
	}

	e.logger.Info("price feeds synced", "target", len(target), "previous", len(current))
	return nil
}

// ──────────────────────────────────────────────────
// Price Queries (public)
// ──────────────────────────────────────────────────

// TokenPriceFeeds lists all registered feed bindings.
func (e *Engine) TokenPriceFeeds(ctx context.Context) ([]*token.PriceFeed, error) {
	return e.store.ListPriceFeeds(ctx)
}

// LatestPrice returns the token's current price normalized to 18
// decimals. The token must carry a feed binding.
func (e *Engine) LatestPrice(ctx context.Context, tok types.Address) (types.Amount, error) {
	f, err := e.store.GetPriceFeed(ctx, tok)
	if err != nil {
		return types.Amount{}, fmt.Errorf("%w: %s", ErrTokenNotRegistered, tok)
	}

	price, decimals, err := e.prices.LatestPrice(ctx, f.Feed)
	if err != nil {
		return types.Amount{}, fmt.Errorf("price feed %s: %w", f.Feed, err)
	}
	return oracle.Normalize(price, decimals), nil
}

// ConvertFiatToTokenAmount converts a fiat price into the token amount
// owed at the token's current price. A zero price yields a zero amount;
// the charge path treats that as a calculation failure for non-zero
// fiat prices.
func (e *Engine) ConvertFiatToTokenAmount(ctx context.Context, tok types.Address, fiat decimal.Decimal) (types.Amount, error) {
	price, err := e.LatestPrice(ctx, tok)
	if err != nil {
		return types.Amount{}, err
	}
	return oracle.ConvertFiat(types.AmountFromDecimal(fiat), price), nil
}
