// Package config loads, normalizes, and validates the TOML configuration
// consumed by the photobooth daemon and CLI.
package config
