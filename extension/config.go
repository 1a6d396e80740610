package extension

import "time"

// Config holds the Vesting extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.vesting" or "vesting" keys).
type Config struct {
	// DisableRoutes prevents the HTTP API from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for vesting routes (default: "/vesting").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Namespace scopes address derivation (default: "vesting"). Changing
	// it changes every derived address.
	Namespace string `json:"namespace" mapstructure:"namespace" yaml:"namespace"`

	// RecoveryConcurrency bounds how many pending claims are resolved in
	// parallel on start (default: 4).
	RecoveryConcurrency int `json:"recovery_concurrency" mapstructure:"recovery_concurrency" yaml:"recovery_concurrency"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:            "/vesting",
		Namespace:           "vesting",
		RecoveryConcurrency: 4,
		HookTimeout:         5 * time.Second,
	}
}
