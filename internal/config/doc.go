// Package config loads, normalizes, and validates polyglot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// XAI_API_KEY. The Config type centralizes every knob the daemon and CLI need,
// from the data directory and API bind address to the translation prompt and
// queue pacing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
