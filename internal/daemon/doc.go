// Package daemon assembles and runs the photobooth core: collection,
// acquisition, information, and processing services plus the hotplug
// monitor, started in declaration order and stopped in reverse. A file lock
// enforces single-instance execution.
package daemon
