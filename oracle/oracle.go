// Package oracle defines the price source the engine converts fiat
// amounts with, and the normalization from a source's native decimal
// precision to Recur's fixed 18-decimal representation.
package oracle

import (
	"context"
	"math/big"

	"github.com/xraph/recur/types"
)

// PriceSource answers "what is one token worth in fiat right now" for a
// given price feed. Implementations report prices in their own native
// precision; decimals says how many fractional digits the price carries.
//
// A stale or unavailable feed must surface as an error, never a panic —
// the engine turns it into a calculation failure for the charge attempt.
type PriceSource interface {
	LatestPrice(ctx context.Context, feed types.Address) (price *big.Int, decimals uint8, err error)
}

// Normalize rescales a native-precision price to 18 decimals.
func Normalize(price *big.Int, decimals uint8) types.Amount {
	if price == nil {
		return types.Amount{}
	}
	if decimals == types.Decimals {
		return types.AmountFromBig(price)
	}
	if decimals < types.Decimals {
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(types.Decimals-decimals)), nil)
		return types.AmountFromBig(new(big.Int).Mul(price, factor))
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-types.Decimals)), nil)
	return types.AmountFromBig(new(big.Int).Quo(price, factor))
}

// ConvertFiat computes the token amount equivalent to an 18-decimal
// fiat amount at the given 18-decimal price: fiat · 10^18 / price.
// A zero price yields a zero amount — "price unavailable" is a policy
// decision for the caller, not an error here.
func ConvertFiat(fiat, price types.Amount) types.Amount {
	if price.IsZero() {
		return types.Amount{}
	}
	return fiat.MulDiv(types.Scale(), price.Big())
}
