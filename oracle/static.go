package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/xraph/recur/types"
)

// ErrFeedNotFound is returned by Static for feeds without a price.
var ErrFeedNotFound = errors.New("oracle: feed not found")

// Static is a PriceSource backed by a fixed in-memory price table.
// Prices can be updated at runtime, which makes it useful for tests and
// single-process deployments where prices arrive out of band.
type Static struct {
	mu       sync.RWMutex
	decimals uint8
	prices   map[types.Address]*big.Int
}

// NewStatic creates a Static source reporting prices with the given
// native decimal precision.
func NewStatic(decimals uint8) *Static {
	return &Static{
		decimals: decimals,
		prices:   make(map[types.Address]*big.Int),
	}
}

// SetPrice sets the price for a feed in the source's native precision.
func (s *Static) SetPrice(feed types.Address, price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[feed] = new(big.Int).Set(price)
}

// LatestPrice implements PriceSource.
func (s *Static) LatestPrice(_ context.Context, feed types.Address) (*big.Int, uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[feed]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrFeedNotFound, feed)
	}
	return new(big.Int).Set(price), s.decimals, nil
}
