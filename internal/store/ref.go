package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"picsift/internal/scanresult"
)

// IsFileRef reports whether ref names a JSON document rather than a stored scan.
func IsFileRef(ref string) bool {
	if strings.HasSuffix(strings.ToLower(ref), ".json") {
		return true
	}
	info, err := os.Stat(ref)
	return err == nil && info.Mode().IsRegular()
}

// LoadRef loads ref from a JSON document when it names one and from history
// otherwise.
func LoadRef(ctx context.Context, history scanresult.Loader, ref string) (*scanresult.Result, error) {
	if IsFileRef(ref) {
		return JSONFile{Path: ref}.Load(ctx, "")
	}
	if history == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return history.Load(ctx, ref)
}
