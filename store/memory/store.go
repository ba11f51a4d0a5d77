package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/recur"
	"github.com/xraph/recur/plan"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

var _ recurstore.Store = (*Store)(nil)

// Store is the in-memory backend, used in tests and embedded setups.
// Plans keep registration order; price feeds carry no order guarantee
// and delete by swap-with-last; the charge-day index is append-only.
type Store struct {
	mu sync.RWMutex

	// Plan storage
	plans   map[uint64]*plan.Plan
	planIDs []uint64

	// Price feed storage
	feeds []*token.PriceFeed

	// Subscription storage
	subscriptions map[uint64]*subscription.Subscription
	accountSubs   map[types.Address][]uint64
	accountPlan   map[string]uint64
	nextSubID     uint64

	// Charge-day index, keyed by UTC day
	chargeDays map[int64][]uint64

	// Charge records, keyed by subscription id
	charges map[uint64][]*subscription.Charge

	// Claimable balances, listed in first-appearance order
	claimables     map[types.Address]types.Amount
	claimableOrder []types.Address

	// Claim history
	claims []*token.Claim
}

func New() *Store {
	return &Store{
		plans:         make(map[uint64]*plan.Plan),
		subscriptions: make(map[uint64]*subscription.Subscription),
		accountSubs:   make(map[types.Address][]uint64),
		accountPlan:   make(map[string]uint64),
		nextSubID:     1,
		chargeDays:    make(map[int64][]uint64),
		charges:       make(map[uint64][]*subscription.Charge),
		claimables:    make(map[types.Address]types.Amount),
	}
}

func accountPlanKey(account types.Address, planID uint64) string {
	return fmt.Sprintf("%s:%d", account, planID)
}

// Plan Store implementation
func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID]; exists {
		return recur.ErrAlreadyExists
	}
	s.plans[p.ID] = p
	s.planIDs = append(s.planIDs, p.ID)
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID uint64) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[planID]; ok {
		return p, nil
	}
	return nil, recur.ErrPlanNotFound
}

func (s *Store) ListPlans(_ context.Context) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*plan.Plan, 0, len(s.planIDs))
	for _, pid := range s.planIDs {
		result = append(result, s.plans[pid])
	}
	return result, nil
}

func (s *Store) UpdatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID]; !exists {
		return recur.ErrPlanNotFound
	}
	s.plans[p.ID] = p
	return nil
}

func (s *Store) DeletePlan(_ context.Context, planID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[planID]; !exists {
		return recur.ErrPlanNotFound
	}
	delete(s.plans, planID)
	for i, pid := range s.planIDs {
		if pid == planID {
			s.planIDs = append(s.planIDs[:i], s.planIDs[i+1:]...)
			break
		}
	}
	return nil
}

// Price Feed Store implementation
func (s *Store) CreatePriceFeed(_ context.Context, f *token.PriceFeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.feeds {
		if existing.Token.Equal(f.Token) {
			return recur.ErrAlreadyExists
		}
	}
	s.feeds = append(s.feeds, f)
	return nil
}

func (s *Store) GetPriceFeed(_ context.Context, tok types.Address) (*token.PriceFeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.feeds {
		if f.Token.Equal(tok) {
			return f, nil
		}
	}
	return nil, recur.ErrTokenNotRegistered
}

func (s *Store) ListPriceFeeds(_ context.Context) ([]*token.PriceFeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*token.PriceFeed, len(s.feeds))
	copy(result, s.feeds)
	return result, nil
}

func (s *Store) UpdatePriceFeed(_ context.Context, f *token.PriceFeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.feeds {
		if existing.Token.Equal(f.Token) {
			s.feeds[i] = f
			return nil
		}
	}
	return recur.ErrTokenNotRegistered
}

func (s *Store) DeletePriceFeed(_ context.Context, tok types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.feeds {
		if f.Token.Equal(tok) {
			last := len(s.feeds) - 1
			s.feeds[i] = s.feeds[last]
			s.feeds = s.feeds[:last]
			return nil
		}
	}
	return recur.ErrTokenNotRegistered
}

// Subscription Store implementation
func (s *Store) NextSubscriptionID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	return id, nil
}

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; exists {
		return recur.ErrAlreadyExists
	}
	key := accountPlanKey(sub.Account, sub.PlanID)
	if _, exists := s.accountPlan[key]; exists {
		return recur.ErrAlreadyExists
	}

	s.subscriptions[sub.ID] = sub
	s.accountSubs[sub.Account] = append(s.accountSubs[sub.Account], sub.ID)
	s.accountPlan[key] = sub.ID
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID uint64) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID]; ok {
		return sub, nil
	}
	return nil, recur.ErrSubscriptionNotFound
}

func (s *Store) GetSubscriptionByAccountPlan(_ context.Context, account types.Address, planID uint64) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if subID, ok := s.accountPlan[accountPlanKey(account, planID)]; ok {
		return s.subscriptions[subID], nil
	}
	return nil, recur.ErrSubscriptionNotFound
}

func (s *Store) ListSubscriptionsByAccount(_ context.Context, account types.Address) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.accountSubs[account]
	result := make([]*subscription.Subscription, 0, len(ids))
	for _, subID := range ids {
		result = append(result, s.subscriptions[subID])
	}
	return result, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; !exists {
		return recur.ErrSubscriptionNotFound
	}
	s.subscriptions[sub.ID] = sub
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, subID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subID]
	if !exists {
		return recur.ErrSubscriptionNotFound
	}
	delete(s.subscriptions, subID)
	delete(s.accountPlan, accountPlanKey(sub.Account, sub.PlanID))

	ids := s.accountSubs[sub.Account]
	for i, id := range ids {
		if id == subID {
			s.accountSubs[sub.Account] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	// Charge-day entries stay behind as tombstones; the scheduler
	// skips ids it cannot resolve.
	return nil
}

// Charge-day index implementation
func (s *Store) AppendChargeDay(_ context.Context, day time.Time, subID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := day.UTC().Unix()
	s.chargeDays[key] = append(s.chargeDays[key], subID)
	return nil
}

func (s *Store) ListChargeDay(_ context.Context, day time.Time) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.chargeDays[day.UTC().Unix()]
	result := make([]uint64, len(ids))
	copy(result, ids)
	return result, nil
}

// Charge record implementation
func (s *Store) CreateCharge(_ context.Context, c *subscription.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.charges[c.SubscriptionID] = append(s.charges[c.SubscriptionID], c)
	return nil
}

func (s *Store) ListCharges(_ context.Context, subID uint64) ([]*subscription.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.charges[subID]
	result := make([]*subscription.Charge, len(records))
	copy(result, records)
	return result, nil
}

// Claimable balance implementation
func (s *Store) AddClaimable(_ context.Context, tok types.Address, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.claimables[tok]; !seen {
		s.claimableOrder = append(s.claimableOrder, tok)
	}
	s.claimables[tok] = s.claimables[tok].Add(amount)
	return nil
}

func (s *Store) ListClaimables(_ context.Context) ([]*token.Claimable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*token.Claimable, 0, len(s.claimableOrder))
	for _, tok := range s.claimableOrder {
		result = append(result, &token.Claimable{Token: tok, Amount: s.claimables[tok]})
	}
	return result, nil
}

func (s *Store) ResetClaimable(_ context.Context, tok types.Address) (types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.claimables[tok]
	s.claimables[tok] = types.Amount{}
	return amount, nil
}

// Claim record implementation
func (s *Store) CreateClaim(_ context.Context, c *token.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claims = append(s.claims, c)
	return nil
}

func (s *Store) ListClaims(_ context.Context) ([]*token.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*token.Claim, len(s.claims))
	copy(result, s.claims)
	return result, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
