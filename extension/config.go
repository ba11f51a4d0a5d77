package extension

// Config holds the Recur extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.recur" or "recur" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Owner is the administrative account for the engine.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// ServiceProvider receives the protocol fee cut on every charge.
	// Fees are disabled when empty.
	ServiceProvider string `json:"service_provider" mapstructure:"service_provider" yaml:"service_provider"`

	// CustodyAccount receives charged funds. Defaults to the owner.
	CustodyAccount string `json:"custody_account" mapstructure:"custody_account" yaml:"custody_account"`

	// FeeRateBps is the protocol fee in basis points (default: 0, no fee).
	FeeRateBps int `json:"fee_rate_bps" mapstructure:"fee_rate_bps" yaml:"fee_rate_bps"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FeeRateBps: 0,
	}
}
