// Package config loads, normalizes, and validates archiver configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// ARCHIVER_SOURCE_DIR. The ordered [[types]] list defines the type registry:
// the first type whose extension set contains a file's extension wins.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log levels, and clear validation errors.
package config
