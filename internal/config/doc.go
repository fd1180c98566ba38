// Package config loads, normalizes, and validates picsift configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the PICSIFT_STATE_DIR environment
// fallback. The Config type carries the scan defaults (extension filter,
// detection mode, worker count), the archive layout used by the copier, and
// log settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
