package extension

import (
	recur "github.com/xraph/recur"
	"github.com/xraph/recur/oracle"
	"github.com/xraph/recur/plugin"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/token"
)

// Option configures the Recur Forge extension.
type Option func(*Extension)

// WithStore sets the store for the billing engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTransferor sets the token transferor the engine settles through.
// Required.
func WithTransferor(t token.Transferor) Option {
	return func(e *Extension) {
		e.transferor = t
	}
}

// WithPriceSource sets the oracle backing fiat-priced plans.
func WithPriceSource(p oracle.PriceSource) Option {
	return func(e *Extension) {
		e.prices = p
	}
}

// WithEngineOption passes a recur.Option through to the underlying engine.
func WithEngineOption(opt recur.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, recur.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithOwner sets the administrative account.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithServiceProvider sets the fee recipient account.
func WithServiceProvider(addr string) Option {
	return func(e *Extension) { e.config.ServiceProvider = addr }
}

// WithCustodyAccount sets the account that receives charged funds.
func WithCustodyAccount(addr string) Option {
	return func(e *Extension) { e.config.CustodyAccount = addr }
}

// WithFeeRateBps sets the protocol fee in basis points.
func WithFeeRateBps(bps int) Option {
	return func(e *Extension) { e.config.FeeRateBps = bps }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
