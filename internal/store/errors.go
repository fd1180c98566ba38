package store

import "errors"

var (
	// ErrNotFound is returned when no stored scan matches a reference.
	ErrNotFound = errors.New("scan not found")
	// ErrAmbiguous is returned when an ID prefix matches several scans.
	ErrAmbiguous = errors.New("scan reference is ambiguous")
	// ErrLocked is returned when another process holds the state lock.
	ErrLocked = errors.New("state directory is locked by another picsift process")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrUnsupportedVersion is returned for JSON documents of an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported document version")
)
