// Package main hosts the photobooth CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the capture core in the foreground,
// triggers one-off jobs, browses and maintains the media collection, warms
// and prunes the derivation cache, reports usage statistics, and scaffolds
// configuration. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
