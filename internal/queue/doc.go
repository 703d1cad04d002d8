// Package queue persists uploaded audio files and their processing jobs in
// SQLite and provides the durable task-queue semantics the worker consumes:
// claim-by-conditional-update delivery, bounded retries with exponential
// backoff, and maintenance operations for the CLI and cleanup sweep.
package queue
