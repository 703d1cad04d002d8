// Package main hosts the waveline CLI entrypoint and command graph.
//
// The Cobra-based command tree starts the daemon, inspects and maintains the
// job queue, scaffolds configuration, and sends test notifications. It
// centralizes configuration resolution and store access so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
