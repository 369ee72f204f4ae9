// Package config loads and validates the revoice TOML configuration.
//
// Load resolves the config file (explicit path, ~/.config/revoice/config.toml,
// or ./revoice.toml), applies defaults for missing values, expands paths,
// pulls secrets from the environment, and validates the result.
package config
