package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/plan"
	recurstore "github.com/xraph/recur/store"
	"github.com/xraph/recur/subscription"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// compile-time interface check
var _ recurstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("recur/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("recur/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPlan(ctx context.Context, planID uint64) (*plan.Plan, error) {
	m := new(planModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", planID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrPlanNotFound
		}
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	var models []planModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, planID uint64) error {
	res, err := s.sdb.NewDelete((*planModel)(nil)).
		Where("id = ?", planID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrPlanNotFound
	}
	return nil
}

// ==================== Price Feed Store ====================

func (s *Store) CreatePriceFeed(ctx context.Context, f *token.PriceFeed) error {
	m := toPriceFeedModel(f)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPriceFeed(ctx context.Context, tok types.Address) (*token.PriceFeed, error) {
	m := new(priceFeedModel)
	err := s.sdb.NewSelect(m).
		Where("token = ?", tok.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrTokenNotRegistered
		}
		return nil, err
	}
	return fromPriceFeedModel(m), nil
}

func (s *Store) ListPriceFeeds(ctx context.Context) ([]*token.PriceFeed, error) {
	var models []priceFeedModel
	if err := s.sdb.NewSelect(&models).Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*token.PriceFeed, len(models))
	for i := range models {
		result[i] = fromPriceFeedModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdatePriceFeed(ctx context.Context, f *token.PriceFeed) error {
	m := toPriceFeedModel(f)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrTokenNotRegistered
	}
	return nil
}

func (s *Store) DeletePriceFeed(ctx context.Context, tok types.Address) error {
	res, err := s.sdb.NewDelete((*priceFeedModel)(nil)).
		Where("token = ?", tok.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrTokenNotRegistered
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) NextSubscriptionID(ctx context.Context) (uint64, error) {
	var value uint64
	err := s.sdb.NewRaw(`
		INSERT INTO recur_counters (name, value) VALUES ('subscription', 1)
		ON CONFLICT (name) DO UPDATE SET value = value + 1
		RETURNING value
	`).Scan(ctx, &value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID uint64) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", subID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) GetSubscriptionByAccountPlan(ctx context.Context, account types.Address, planID uint64) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.sdb.NewSelect(m).
		Where("account = ?", account.String()).
		Where("plan_id = ?", planID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, recur.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptionsByAccount(ctx context.Context, account types.Address) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	err := s.sdb.NewSelect(&models).
		Where("account = ?", account.String()).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID uint64) error {
	res, err := s.sdb.NewDelete((*subscriptionModel)(nil)).
		Where("id = ?", subID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return recur.ErrSubscriptionNotFound
	}
	// Charge-day rows stay behind as tombstones; the scheduler skips
	// ids it cannot resolve.
	return nil
}

// ==================== Charge-Day Index ====================

func (s *Store) AppendChargeDay(ctx context.Context, day time.Time, subID uint64) error {
	m := &chargeDayModel{Day: day.UTC(), SubscriptionID: subID}
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListChargeDay(ctx context.Context, day time.Time) ([]uint64, error) {
	var models []chargeDayModel
	err := s.sdb.NewSelect(&models).
		Where("day = ?", day.UTC()).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]uint64, len(models))
	for i := range models {
		result[i] = models[i].SubscriptionID
	}
	return result, nil
}

// ==================== Charge Records ====================

func (s *Store) CreateCharge(ctx context.Context, c *subscription.Charge) error {
	m := toChargeModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListCharges(ctx context.Context, subID uint64) ([]*subscription.Charge, error) {
	var models []chargeModel
	err := s.sdb.NewSelect(&models).
		Where("subscription_id = ?", subID).
		OrderExpr("charged_at ASC, cycle ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*subscription.Charge, len(models))
	for i := range models {
		c, err := fromChargeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Claimable Balances ====================

// AddClaimable does read-modify-write: amounts live as decimal strings
// and SQLite arithmetic would lose precision past 2^53. The engine
// serializes writers, so the two statements never interleave.
func (s *Store) AddClaimable(ctx context.Context, tok types.Address, amount types.Amount) error {
	m := new(claimableModel)
	err := s.sdb.NewSelect(m).
		Where("token = ?", tok.String()).
		Scan(ctx)
	if err != nil {
		if !isNoRows(err) {
			return err
		}
		m = &claimableModel{Token: tok.String(), Amount: amount, UpdatedAt: now()}
		_, err = s.sdb.NewInsert(m).Exec(ctx)
		return err
	}

	_, err = s.sdb.NewUpdate((*claimableModel)(nil)).
		Set("amount = ?", m.Amount.Add(amount)).
		Set("updated_at = ?", now()).
		Where("token = ?", tok.String()).
		Exec(ctx)
	return err
}

func (s *Store) ListClaimables(ctx context.Context) ([]*token.Claimable, error) {
	var models []claimableModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("token ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*token.Claimable, len(models))
	for i := range models {
		result[i] = &token.Claimable{
			Token:  types.Addr(models[i].Token),
			Amount: models[i].Amount,
		}
	}
	return result, nil
}

func (s *Store) ResetClaimable(ctx context.Context, tok types.Address) (types.Amount, error) {
	m := new(claimableModel)
	err := s.sdb.NewSelect(m).
		Where("token = ?", tok.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.Amount{}, nil
		}
		return types.Amount{}, err
	}

	_, err = s.sdb.NewUpdate((*claimableModel)(nil)).
		Set("amount = ?", types.Amount{}).
		Set("updated_at = ?", now()).
		Where("token = ?", tok.String()).
		Exec(ctx)
	if err != nil {
		return types.Amount{}, err
	}
	return m.Amount, nil
}

// ==================== Claim Records ====================

func (s *Store) CreateClaim(ctx context.Context, c *token.Claim) error {
	m := toClaimModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListClaims(ctx context.Context) ([]*token.Claim, error) {
	var models []claimModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("claimed_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*token.Claim, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
