// Package extension provides the Forge extension adapter for Recur.
//
// It implements the forge.Extension interface to integrate Recur
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.recur" or "recur" keys.
package extension

import (
	"context"
	"errors"
	"math/big"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/oracle"
	"github.com/xraph/recur/store"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/token"
	"github.com/xraph/recur/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "recur"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Composable recurring-billing engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Recur as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *recur.Engine
	store      store.Store
	transferor token.Transferor
	prices     oracle.PriceSource
	engineOpts []recur.Option
	useGrove   bool
}

// New creates a new Recur Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Recur engine.
// This is nil until Register is called.
func (e *Extension) Engine() *recur.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the billing engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.transferor == nil {
		return errors.New("recur: a token transferor is required; use WithTransferor")
	}
	if e.prices == nil {
		// Fiat-priced plans need a real source; token pricing works
		// without one.
		e.prices = oracle.NewStatic(0)
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		if e.useGrove {
			e.Logger().Warn("recur: grove database resolution requires an injected store; falling back to memory",
				forge.F("grove_database", e.config.GroveDatabase),
			)
		}
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := recur.New(e.store, e.transferor, e.prices, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*recur.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("recur: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("recur: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs recur.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []recur.Option {
	opts := make([]recur.Option, 0, len(e.engineOpts)+4)

	// Apply config-derived options.
	if e.config.Owner != "" {
		opts = append(opts, recur.WithOwner(types.Addr(e.config.Owner)))
	}
	if e.config.ServiceProvider != "" {
		opts = append(opts, recur.WithServiceProvider(types.Addr(e.config.ServiceProvider)))
	}
	if e.config.CustodyAccount != "" {
		opts = append(opts, recur.WithCustodyAccount(types.Addr(e.config.CustodyAccount)))
	}
	if e.config.FeeRateBps > 0 {
		rate := new(big.Int).Mul(big.NewInt(int64(e.config.FeeRateBps)), types.Scale())
		rate.Div(rate, big.NewInt(10000))
		opts = append(opts, recur.WithFeeRate(rate))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("recur: configuration is required but not found in config files; " +
				"ensure 'extensions.recur' or 'recur' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("recur: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("owner", e.config.Owner),
		forge.F("service_provider", e.config.ServiceProvider),
		forge.F("custody_account", e.config.CustodyAccount),
		forge.F("fee_rate_bps", e.config.FeeRateBps),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.recur" first (namespaced pattern).
	if cm.IsSet("extensions.recur") {
		if err := cm.Bind("extensions.recur", &cfg); err == nil {
			e.Logger().Debug("recur: loaded config from file",
				forge.F("key", "extensions.recur"),
			)
			return cfg, true
		}
		e.Logger().Warn("recur: failed to bind extensions.recur config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "recur" key.
	if cm.IsSet("recur") {
		if err := cm.Bind("recur", &cfg); err == nil {
			e.Logger().Debug("recur: loaded config from file",
				forge.F("key", "recur"),
			)
			return cfg, true
		}
		e.Logger().Warn("recur: failed to bind recur config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.FeeRateBps == 0 {
		cfg.FeeRateBps = defaults.FeeRateBps
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.Owner == "" && programmaticConfig.Owner != "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.ServiceProvider == "" && programmaticConfig.ServiceProvider != "" {
		yamlConfig.ServiceProvider = programmaticConfig.ServiceProvider
	}
	if yamlConfig.CustodyAccount == "" && programmaticConfig.CustodyAccount != "" {
		yamlConfig.CustodyAccount = programmaticConfig.CustodyAccount
	}
	if yamlConfig.GroveDatabase == "" && programmaticConfig.GroveDatabase != "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.FeeRateBps == 0 && programmaticConfig.FeeRateBps != 0 {
		yamlConfig.FeeRateBps = programmaticConfig.FeeRateBps
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
