// Package daemon coordinates the long-running waveline process.
//
// It wires configuration, the job store, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon owns the upload endpoint, job queries, and health
// reporting; job execution itself lives in the workflow and process packages.
//
// Keep orchestration logic here: the daemon focuses on startup, shutdown, and
// the HTTP surface while the packages it wires stay independently testable.
package daemon
