// Package api defines the transport DTOs and the service layer between the
// HTTP server and the queue store. Handlers in the daemon package stay thin;
// the services here own the lookup, aggregation, and deletion semantics.
package api
