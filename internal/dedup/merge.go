package dedup

import (
	"picsift/internal/identity"
	"picsift/internal/scanner"
	"picsift/internal/scanresult"
)

// Merge combines per-root partitions. Duplicate groups seed the key map,
// every root's uniques are folded in, and the final split is derived from the
// number of distinct paths per key. Each key's path set is the union of what
// the roots contributed.
func Merge(results []scanner.FolderResult) ([]identity.Identity, []scanresult.Group) {
	g := scanner.NewGrouper()
	for _, r := range results {
		for _, grp := range r.Duplicates {
			g.AddPaths(grp.Identity, grp.Paths...)
		}
	}
	for _, r := range results {
		for _, u := range r.Uniques {
			g.Add(u)
		}
	}

	uniques, groups := g.Partition()
	out := make([]scanresult.Group, 0, len(groups))
	for _, grp := range groups {
		out = append(out, *grp)
	}
	return uniques, out
}

// FilterAgainst returns a copy of result without any unique or group whose
// key is known to baseline.
//
// A file whose checksum could not be computed never equals another file
// during grouping, but here its unresolved key (its path) does match a
// baseline entry for the same path. That exception keeps filtering a result
// against itself empty; an unreadable file seen again at the same path is
// treated as already known rather than as new content.
func FilterAgainst(result, baseline *scanresult.Result) *scanresult.Result {
	out := *result
	if baseline == nil {
		return &out
	}
	known := baseline.Keys()
	isKnown := func(k identity.Key) bool {
		_, ok := known[k]
		return ok
	}

	out.Uniques = make([]identity.Identity, 0, len(result.Uniques))
	for _, u := range result.Uniques {
		if !isKnown(u.Key()) {
			out.Uniques = append(out.Uniques, u)
		}
	}
	out.Duplicates = make([]scanresult.Group, 0, len(result.Duplicates))
	for _, g := range result.Duplicates {
		if !isKnown(g.Identity.Key()) {
			out.Duplicates = append(out.Duplicates, g)
		}
	}
	return &out
}
