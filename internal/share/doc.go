// Package share runs configured share and print channels. Each action is a
// user-provided shell command with placeholder substitution; execution is
// timeout-bounded and rate-limited through the usage stats table.
package share
