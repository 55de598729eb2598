// Package services provides shared error classification and context helpers
// used across the photobooth core services.
package services
