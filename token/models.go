// Package token defines the payment-token side of Recur: price-feed
// bindings for accepted tokens, custody balances accumulated from
// charges, and the fungible-token transfer interface the engine settles
// through.
package token

import (
	"time"

	"github.com/xraph/recur/id"
	"github.com/xraph/recur/types"
)

// PriceFeed binds an accepted payment token to the price feed the
// oracle is queried with. Existence is tracked by the store itself, so
// a zero feed address is never confused with "not registered."
type PriceFeed struct {
	types.Entity
	Token types.Address `json:"token"`
	Feed  types.Address `json:"feed"`
}

// Claimable is a custody balance accumulated from charges in a single
// token, withdrawable by the owner.
type Claimable struct {
	Token  types.Address `json:"token"`
	Amount types.Amount  `json:"amount"`
}

// Claim records one owner withdrawal of a custody balance.
type Claim struct {
	ID        id.ClaimID    `json:"id"`
	Token     types.Address `json:"token"`
	Amount    types.Amount  `json:"amount"`
	To        types.Address `json:"to"`
	ClaimedAt time.Time     `json:"claimed_at"`
}
