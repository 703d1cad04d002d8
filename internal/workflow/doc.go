// Package workflow coordinates background job processing.
//
// The manager runs a single worker loop that claims pending jobs from the
// store, dispatches them to the handler registered for their type, and
// persists the resulting completed or failed state. A second loop performs
// the periodic cleanup sweep over aged completed jobs. Both loops stop when
// the manager is stopped or its context is cancelled.
package workflow
