// Package logging constructs slog loggers for waveline and defines the
// standardized attribute keys shared across components.
//
// Two output formats are supported: a human-oriented console format used on
// interactive terminals and JSON for log files and machine consumption.
package logging
