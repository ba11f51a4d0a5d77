package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/plan"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// Collection name constants.
const (
	colPlans         = "recur_plans"
	colPriceFeeds    = "recur_price_feeds"
	colSubscriptions = "recur_subscriptions"
	colChargeDays    = "recur_charge_days"
	colCharges       = "recur_charges"
	colClaimables    = "recur_claimables"
	colClaims        = "recur_claims"
	colCounters      = "recur_counters"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all billing collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("recur/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(planID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrPlanNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get plan: %w", err)
	}
	return fromPlanModel(&m), nil
}

func (s *Store) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	var models []planModel
	err := s.mdb.NewFind(&models).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list plans: %w", err)
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		result[i] = fromPlanModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update plan: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, planID uint64) error {
	res, err := s.mdb.NewDelete((*planModel)(nil)).
		Filter(bson.M{"_id": int64(planID)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: delete plan: %w", err)
	}
	if res.DeletedCount() == 0 {
		return recur.ErrPlanNotFound
	}
	return nil
}

// ==================== Price Feed Store ====================

func (s *Store) CreatePriceFeed(ctx context.Context, f *token.PriceFeed) error {
	m := toPriceFeedModel(f)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create price feed: %w", err)
	}
	return nil
}

func (s *Store) GetPriceFeed(ctx context.Context, tok types.Address) (*token.PriceFeed, error) {
	var m priceFeedModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tok.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrTokenNotRegistered
		}
		return nil, fmt.Errorf("recur/mongo: get price feed: %w", err)
	}
	return fromPriceFeedModel(&m), nil
}

func (s *Store) ListPriceFeeds(ctx context.Context) ([]*token.PriceFeed, error) {
	var models []priceFeedModel
	err := s.mdb.NewFind(&models).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list price feeds: %w", err)
	}

	result := make([]*token.PriceFeed, len(models))
	for i := range models {
		result[i] = fromPriceFeedModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdatePriceFeed(ctx context.Context, f *token.PriceFeed) error {
	m := toPriceFeedModel(f)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Token}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update price feed: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrTokenNotRegistered
	}
	return nil
}

func (s *Store) DeletePriceFeed(ctx context.Context, tok types.Address) error {
	res, err := s.mdb.NewDelete((*priceFeedModel)(nil)).
		Filter(bson.M{"_id": tok.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: delete price feed: %w", err)
	}
	if res.DeletedCount() == 0 {
		return recur.ErrTokenNotRegistered
	}
	return nil
}

// ==================== Subscription Store ====================

// NextSubscriptionID increments the subscription counter and reads it
// back. The two steps are not atomic with each other; the engine
// serializes writers, so no id is handed out twice.
func (s *Store) NextSubscriptionID(ctx context.Context) (uint64, error) {
	_, err := s.mdb.NewUpdate((*counterModel)(nil)).
		Filter(bson.M{"_id": "subscription"}).
		SetUpdate(bson.M{"$inc": bson.M{"value": int64(1)}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("recur/mongo: next subscription id: %w", err)
	}

	var m counterModel
	err = s.mdb.NewFind(&m).
		Filter(bson.M{"_id": "subscription"}).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("recur/mongo: next subscription id: %w", err)
	}
	return uint64(m.Value), nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(subID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m), nil
}

func (s *Store) GetSubscriptionByAccountPlan(ctx context.Context, account types.Address, planID uint64) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"account": account.String(), "plan_id": int64(planID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("recur/mongo: get subscription by account plan: %w", err)
	}
	return fromSubscriptionModel(&m), nil
}

func (s *Store) ListSubscriptionsByAccount(ctx context.Context, account types.Address) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"account": account.String()}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		result[i] = fromSubscriptionModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID uint64) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": int64(subID)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: delete subscription: %w", err)
	}
	if res.DeletedCount() == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Charge-Day Index ====================

func (s *Store) AppendChargeDay(ctx context.Context, day time.Time, subID uint64) error {
	d := day.UTC()
	m := &chargeDayModel{
		ID:             fmt.Sprintf("%d:%d", d.Unix(), subID),
		Day:            d,
		SubscriptionID: int64(subID),
	}
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":             m.ID,
			"day":             m.Day,
			"subscription_id": m.SubscriptionID,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: append charge day: %w", err)
	}
	return nil
}

func (s *Store) ListChargeDay(ctx context.Context, day time.Time) ([]uint64, error) {
	var models []chargeDayModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"day": day.UTC()}).
		Sort(bson.D{{Key: "subscription_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list charge day: %w", err)
	}

	result := make([]uint64, len(models))
	for i := range models {
		result[i] = uint64(models[i].SubscriptionID)
	}
	return result, nil
}

// ==================== Charge Records ====================

func (s *Store) CreateCharge(ctx context.Context, c *subscription.Charge) error {
	m := toChargeModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create charge: %w", err)
	}
	return nil
}

func (s *Store) ListCharges(ctx context.Context, subID uint64) ([]*subscription.Charge, error) {
	var models []chargeModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"subscription_id": int64(subID)}).
		Sort(bson.D{{Key: "charged_at", Value: 1}, {Key: "cycle", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list charges: %w", err)
	}

	result := make([]*subscription.Charge, len(models))
	for i := range models {
		c, err := fromChargeModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("recur/mongo: list charges: %w", err)
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Claimable Balances ====================

// AddClaimable reads, adds in Go, and writes back. Amounts are decimal
// strings, so there is no server-side increment; the engine serializes
// writers.
func (s *Store) AddClaimable(ctx context.Context, tok types.Address, amount types.Amount) error {
	var m claimableModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tok.String()}).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return fmt.Errorf("recur/mongo: add claimable: %w", err)
	}

	current := types.Amount{}
	if err == nil {
		current, err = types.ParseAmount(m.Amount)
		if err != nil {
			return fmt.Errorf("recur/mongo: add claimable: %w", err)
		}
	}

	next := claimableModel{
		Token:     tok.String(),
		Amount:    current.Add(amount).String(),
		UpdatedAt: now(),
	}
	_, err = s.mdb.NewUpdate(&next).
		Filter(bson.M{"_id": next.Token}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        next.Token,
			"amount":     next.Amount,
			"updated_at": next.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: add claimable: %w", err)
	}
	return nil
}

func (s *Store) ListClaimables(ctx context.Context) ([]*token.Claimable, error) {
	var models []claimableModel
	err := s.mdb.NewFind(&models).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list claimables: %w", err)
	}

	result := make([]*token.Claimable, len(models))
	for i := range models {
		amount, err := types.ParseAmount(models[i].Amount)
		if err != nil {
			return nil, fmt.Errorf("recur/mongo: list claimables: %w", err)
		}
		result[i] = &token.Claimable{
			Token:  types.Addr(models[i].Token),
			Amount: amount,
		}
	}
	return result, nil
}

func (s *Store) ResetClaimable(ctx context.Context, tok types.Address) (types.Amount, error) {
	var m claimableModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tok.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.Amount{}, nil
		}
		return types.Amount{}, fmt.Errorf("recur/mongo: reset claimable: %w", err)
	}

	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return types.Amount{}, fmt.Errorf("recur/mongo: reset claimable: %w", err)
	}

	_, err = s.mdb.NewUpdate(&m).
		Filter(bson.M{"_id": m.Token}).
		SetUpdate(bson.M{"$set": bson.M{
			"amount":     types.Amount{}.String(),
			"updated_at": now(),
		}}).
		Exec(ctx)
	if err != nil {
		return types.Amount{}, fmt.Errorf("recur/mongo: reset claimable: %w", err)
	}
	return amount, nil
}

// ==================== Claim Records ====================

func (s *Store) CreateClaim(ctx context.Context, c *token.Claim) error {
	m := toClaimModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("recur/mongo: create claim: %w", err)
	}
	return nil
}

func (s *Store) ListClaims(ctx context.Context) ([]*token.Claim, error) {
	var models []claimModel
	err := s.mdb.NewFind(&models).
		Sort(bson.D{{Key: "claimed_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recur/mongo: list claims: %w", err)
	}

	result := make([]*token.Claim, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("recur/mongo: list claims: %w", err)
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all billing collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPlans: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colPriceFeeds:    {},
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "account", Value: 1}, {Key: "plan_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "account", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colChargeDays: {
			{Keys: bson.D{{Key: "day", Value: 1}, {Key: "subscription_id", Value: 1}}},
		},
		colCharges: {
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "charged_at", Value: 1}}},
		},
		colClaimables: {},
		colClaims: {
			{Keys: bson.D{{Key: "claimed_at", Value: 1}}},
		},
		colCounters: {},
	}
}
