// Package config loads, normalizes, and validates rommate configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ROMMATE_CHDMAN. The Config type centralizes every knob the scanner, the
// verification engine, and the CLI need, so database roots, thresholds and
// tool locations are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
