package recur

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/xraph/recur/oracle"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// FeeScale is the fixed-point denominator for fee rates: a rate of
// FeeScale is 100%, FeeScale/100 is 1%.
var FeeScale = types.Scale()

// Engine is the recurring billing engine. All state-changing operations
// are serialized through a single mutex so that a charge is never split
// across concurrent writers: the charge record, the claimable balance
// and the advanced schedule always land together.
type Engine struct {
	store   store.Store
	tokens  token.Transferor
	prices  oracle.PriceSource
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   func() time.Time

	// mu serializes every state-changing operation, including the
	// owner handoff. Read-only operations go straight to the store.
	mu sync.Mutex

	owner           types.Address
	serviceProvider types.Address
	custody         types.Address
	feeRate         *big.Int
}

// New creates an Engine. The store holds plans, feeds and
// subscriptions; tokens moves funds; prices answers feed lookups for
// fiat-priced billing plans.
func New(s store.Store, tokens token.Transferor, prices oracle.PriceSource, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		tokens:  tokens,
		prices:  prices,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.custody.IsZero() {
		e.custody = e.owner
	}
	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithOwner sets the initial owner account. Owner-gated operations
// reject every caller until an owner is set.
func WithOwner(addr types.Address) Option {
	return func(e *Engine) {
		e.owner = addr
	}
}

// WithServiceProvider sets the account fees are paid to. Without a
// provider the fee rate is ignored.
func WithServiceProvider(addr types.Address) Option {
	return func(e *Engine) {
		e.serviceProvider = addr
	}
}

// WithCustodyAccount sets the account charges are pulled into.
// Defaults to the owner.
func WithCustodyAccount(addr types.Address) Option {
	return func(e *Engine) {
		e.custody = addr
	}
}

// WithFeeRate sets the provider fee rate as an 18-decimal fixed-point
// fraction of each charge (see FeeScale). A nil or non-positive rate
// disables fees.
func WithFeeRate(rate *big.Int) Option {
	return func(e *Engine) {
		if rate != nil && rate.Sign() > 0 {
			e.feeRate = new(big.Int).Set(rate)
		}
	}
}

// WithClock overrides the time source. Tests use this to drive billing
// cycles deterministically.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("recur started",
		"owner", e.owner,
		"service_provider", e.serviceProvider,
		"fee_rate", e.feeRateString(),
	)
	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)
	return e.store.Close()
}

// Owner returns the current owner account.
func (e *Engine) Owner() types.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// ServiceProvider returns the account fees are paid to.
func (e *Engine) ServiceProvider() types.Address {
	return e.serviceProvider
}

// FeeRate returns a copy of the configured fee rate, or nil when fees
// are disabled.
func (e *Engine) FeeRate() *big.Int {
	if e.feeRate == nil {
		return nil
	}
	return new(big.Int).Set(e.feeRate)
}

func (e *Engine) feeRateString() string {
	if e.feeRate == nil {
		return "0"
	}
	return e.feeRate.String()
}

// TransferOwnership hands the owner role to newOwner. Owner only.
func (e *Engine) TransferOwnership(ctx context.Context, newOwner types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwnerLocked(ctx); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return ValidationError{Field: "new_owner", Message: "zero address"}
	}

	old := e.owner
	e.owner = newOwner

	e.logger.Info("ownership transferred", "from", old, "to", newOwner)
	e.plugins.EmitOwnershipTransferred(ctx, old.String(), newOwner.String())
	return nil
}
