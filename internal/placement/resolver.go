package placement

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"picsift/internal/identity"
)

// DefaultPattern lays files out by capture day.
const DefaultPattern = "/{year}/{month}/{day}"

// ExifLayout is the EXIF DateTime format.
const ExifLayout = "2006:01:02 15:04:05"

const exifDateOnlyLayout = "2006:01:02"

// ErrInvalidPattern marks a pattern that cannot produce a target path.
var ErrInvalidPattern = errors.New("invalid placement pattern")

var tokens = map[string]func(time.Time) string{
	"year":   func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) },
	"month":  func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) },
	"day":    func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) },
	"hour":   func(t time.Time) string { return fmt.Sprintf("%02d", t.Hour()) },
	"minute": func(t time.Time) string { return fmt.Sprintf("%02d", t.Minute()) },
}

// Resolver substitutes date tokens of Pattern with the date of an identity.
type Resolver struct {
	Pattern string
}

// New returns a resolver for pattern, or DefaultPattern when pattern is empty.
func New(pattern string) (Resolver, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	if err := ValidatePattern(pattern); err != nil {
		return Resolver{}, err
	}
	return Resolver{Pattern: pattern}, nil
}

// Resolve returns the slash-separated target directory for id. It reports
// false when id has neither a parseable EXIF date nor a modification time;
// such files cannot be placed.
func (r Resolver) Resolve(id identity.Identity) (string, bool) {
	when, ok := Date(id)
	if !ok {
		return "", false
	}
	pattern := r.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	out, err := Format(pattern, when)
	if err != nil {
		return "", false
	}
	return out, true
}

// Date picks the EXIF capture date when it parses and otherwise the
// modification time in local time.
func Date(id identity.Identity) (time.Time, bool) {
	if t, ok := ParseExifDate(id.ExifDate()); ok {
		return t, true
	}
	mtime := id.ModTime()
	if mtime.IsZero() || mtime.Unix() == 0 {
		return time.Time{}, false
	}
	return mtime.Local(), true
}

// ParseExifDate parses "2006:01:02 15:04:05" or the date-only prefix some
// cameras write.
func ParseExifDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(ExifLayout, value, time.Local); err == nil {
		return t, true
	}
	if len(value) >= len(exifDateOnlyLayout) {
		if t, err := time.ParseInLocation(exifDateOnlyLayout, value[:len(exifDateOnlyLayout)], time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FromEpoch converts fractional Unix seconds to a time.
func FromEpoch(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*1e9))
}

// ValidatePattern rejects patterns with unknown or unbalanced tokens, without
// any token, or with ".." segments.
func ValidatePattern(pattern string) error {
	_, err := Format(pattern, time.Unix(0, 0))
	return err
}

// Format substitutes every {token} in pattern with the matching field of t.
func Format(pattern string, t time.Time) (string, error) {
	var (
		b     strings.Builder
		found bool
		rest  = pattern
	)
	for {
		open := strings.IndexByte(rest, '{')
		closeIdx := strings.IndexByte(rest, '}')
		if open < 0 {
			if closeIdx >= 0 {
				return "", fmt.Errorf("%w: unbalanced '}' in %q", ErrInvalidPattern, pattern)
			}
			b.WriteString(rest)
			break
		}
		if closeIdx < open {
			return "", fmt.Errorf("%w: unbalanced braces in %q", ErrInvalidPattern, pattern)
		}
		name := rest[open+1 : closeIdx]
		render, ok := tokens[name]
		if !ok {
			return "", fmt.Errorf("%w: unknown token {%s} in %q", ErrInvalidPattern, name, pattern)
		}
		b.WriteString(rest[:open])
		b.WriteString(render(t))
		found = true
		rest = rest[closeIdx+1:]
	}
	if !found {
		return "", fmt.Errorf("%w: %q has no date token", ErrInvalidPattern, pattern)
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q must not leave the target root", ErrInvalidPattern, pattern)
		}
	}
	return b.String(), nil
}
