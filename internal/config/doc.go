// Package config loads, validates, and normalizes waveline configuration.
//
// Configuration is stored as TOML. Lookup order: an explicit --config path,
// ~/.config/waveline/config.toml, then waveline.toml in the working
// directory. Missing files fall back to defaults so the daemon can start
// with zero configuration.
package config
