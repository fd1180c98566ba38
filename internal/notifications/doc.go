// Package notifications publishes scan and copy outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally and treat delivery errors as warnings.
package notifications
