// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event toggles let operators mute completion chatter while
// keeping failure alerts.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
