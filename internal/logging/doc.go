// Package logging configures slog-based structured logging for the photobooth
// daemon and CLI. It provides console and JSON handlers, attribute helpers,
// and standardized field names shared by all components.
package logging
