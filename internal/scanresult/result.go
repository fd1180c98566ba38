package scanresult

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"picsift/internal/identity"
)

// DetectionMode is the identity variant a result was produced with.
type DetectionMode = identity.Mode

// ModeUnknown marks legacy results that did not record their mode.
const ModeUnknown DetectionMode = "unknown"

// ErrInvalid is returned by Validate when a result breaks the partition rules.
var ErrInvalid = errors.New("invalid scan result")

// Group is a set of two or more distinct paths sharing one identity.
type Group struct {
	Identity identity.Identity
	Paths    []string
}

// Representative returns the path copied for the group: the lexically first.
func (g Group) Representative() string {
	if len(g.Paths) == 0 {
		return ""
	}
	return slices.Min(g.Paths)
}

// Result is the partition produced by a scan.
type Result struct {
	ID         string
	Uniques    []identity.Identity
	Duplicates []Group
	Roots      []string
	Extensions []string
	Mode       DetectionMode
	CreatedAt  time.Time
}

// New builds a result with a fresh ID and creation time. Group paths are
// sorted and groups are ordered by representative path so output is stable.
func New(uniques []identity.Identity, duplicates []Group, roots, extensions []string, mode DetectionMode) *Result {
	r := &Result{
		ID:         uuid.NewString(),
		Uniques:    uniques,
		Duplicates: duplicates,
		Roots:      append([]string(nil), roots...),
		Extensions: append([]string(nil), extensions...),
		Mode:       mode,
		CreatedAt:  time.Now().UTC(),
	}
	r.Sort()
	return r
}

// Sort orders uniques by path, group paths lexically, and groups by their
// representative.
func (r *Result) Sort() {
	slices.SortFunc(r.Uniques, func(a, b identity.Identity) int {
		return strings.Compare(a.Path(), b.Path())
	})
	for i := range r.Duplicates {
		slices.Sort(r.Duplicates[i].Paths)
	}
	slices.SortFunc(r.Duplicates, func(a, b Group) int {
		return strings.Compare(a.Representative(), b.Representative())
	})
}

// Extension returns the extension filter joined the way it is displayed.
func (r *Result) Extension() string {
	return strings.Join(r.Extensions, ", ")
}

// ModeLabel returns the detection mode for display, e.g. "Checksum".
func (r *Result) ModeLabel() string {
	return ModeLabel(r.Mode)
}

// ModeLabel title-cases a detection mode for display.
func ModeLabel(mode DetectionMode) string {
	if mode == "" {
		mode = ModeUnknown
	}
	return cases.Title(language.English).String(string(mode))
}

// TotalFiles counts every scanned path.
func (r *Result) TotalFiles() int {
	total := len(r.Uniques)
	for _, g := range r.Duplicates {
		total += len(g.Paths)
	}
	return total
}

func (r *Result) DuplicateGroupCount() int { return len(r.Duplicates) }

// DuplicateFileCount counts the redundant copies, i.e. paths beyond the first
// in every group.
func (r *Result) DuplicateFileCount() int {
	n := 0
	for _, g := range r.Duplicates {
		n += len(g.Paths) - 1
	}
	return n
}

// DistinctCount is the number of distinct items an archive copy would write.
func (r *Result) DistinctCount() int {
	return len(r.Uniques) + len(r.Duplicates)
}

// DistinctSize sums the size of one file per distinct item.
func (r *Result) DistinctSize() int64 {
	var total int64
	for _, u := range r.Uniques {
		total += u.Size()
	}
	for _, g := range r.Duplicates {
		total += g.Identity.Size()
	}
	return total
}

// Keys returns the set of identity keys present in the result.
func (r *Result) Keys() map[identity.Key]struct{} {
	keys := make(map[identity.Key]struct{}, r.DistinctCount())
	for _, u := range r.Uniques {
		keys[u.Key()] = struct{}{}
	}
	for _, g := range r.Duplicates {
		keys[g.Identity.Key()] = struct{}{}
	}
	return keys
}

// Lookup reports whether key belongs to a unique or a duplicate group.
func (r *Result) Lookup(key identity.Key) bool {
	for _, u := range r.Uniques {
		if u.Key() == key {
			return true
		}
	}
	for _, g := range r.Duplicates {
		if g.Identity.Key() == key {
			return true
		}
	}
	return false
}

// Validate checks that every unique and every group has a distinct key, that
// groups hold at least two distinct paths, and that no path is listed twice.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil result", ErrInvalid)
	}
	keys := make(map[identity.Key]string)
	paths := make(map[string]struct{})
	addPath := func(p string) error {
		if _, dup := paths[p]; dup {
			return fmt.Errorf("%w: path %s listed more than once", ErrInvalid, p)
		}
		paths[p] = struct{}{}
		return nil
	}

	for _, u := range r.Uniques {
		if u == nil {
			return fmt.Errorf("%w: nil unique", ErrInvalid)
		}
		k := u.Key()
		if prev, ok := keys[k]; ok {
			return fmt.Errorf("%w: %s shares a key with %s", ErrInvalid, u.Path(), prev)
		}
		keys[k] = u.Path()
		if err := addPath(u.Path()); err != nil {
			return err
		}
	}
	for _, g := range r.Duplicates {
		if g.Identity == nil {
			return fmt.Errorf("%w: group without identity", ErrInvalid)
		}
		if len(g.Paths) < 2 {
			return fmt.Errorf("%w: group %s has %d path(s)", ErrInvalid, g.Identity.Key(), len(g.Paths))
		}
		k := g.Identity.Key()
		if prev, ok := keys[k]; ok {
			return fmt.Errorf("%w: group %s overlaps %s", ErrInvalid, k, prev)
		}
		keys[k] = g.Representative()
		for _, p := range g.Paths {
			if err := addPath(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Saver persists results.
type Saver interface {
	Save(ctx context.Context, r *Result) error
}

// Loader resolves a reference (an ID, "latest", or a file) to a result.
type Loader interface {
	Load(ctx context.Context, ref string) (*Result, error)
}
