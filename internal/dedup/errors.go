package dedup

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a request that cannot start: no roots, an empty
	// extension filter, or an unknown detection mode.
	ErrInvalidRequest = errors.New("invalid scan request")
	// ErrBaselineMode marks a baseline produced with a different detection
	// mode than the requested scan.
	ErrBaselineMode = errors.New("baseline detection mode mismatch")
)

// RootError reports a root whose scan failed. Its contribution is omitted
// from the result.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("Folder %s generated an exception: %v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }
