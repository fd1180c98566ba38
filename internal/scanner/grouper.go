package scanner

import (
	"slices"
	"sync"

	"picsift/internal/identity"
	"picsift/internal/scanresult"
)

// Grouper folds identities into path sets keyed by identity.Key. It is safe
// for concurrent use.
type Grouper struct {
	mu      sync.Mutex
	entries map[identity.Key]*groupEntry
	order   []identity.Key
}

type groupEntry struct {
	id    identity.Identity
	paths map[string]struct{}
}

func NewGrouper() *Grouper {
	return &Grouper{entries: make(map[identity.Key]*groupEntry)}
}

// Add records id under its own path.
func (g *Grouper) Add(id identity.Identity) {
	g.AddPaths(id, id.Path())
}

// AddPaths records paths under the key of id. The first identity seen for a
// key represents the group.
func (g *Grouper) AddPaths(id identity.Identity, paths ...string) {
	// Key may hash the file in checksum mode; keep that outside the lock.
	key := id.Key()

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.entries[key]
	if !ok {
		entry = &groupEntry{id: id, paths: make(map[string]struct{}, len(paths))}
		g.entries[key] = entry
		g.order = append(g.order, key)
	}
	for _, p := range paths {
		entry.paths[p] = struct{}{}
	}
}

// Len reports the number of distinct keys.
func (g *Grouper) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// Partition splits the recorded keys into uniques (one path) and duplicate
// groups (two or more paths). Group paths are sorted.
func (g *Grouper) Partition() ([]identity.Identity, map[identity.Key]*scanresult.Group) {
	g.mu.Lock()
	defer g.mu.Unlock()

	uniques := make([]identity.Identity, 0, len(g.order))
	groups := make(map[identity.Key]*scanresult.Group)
	for _, key := range g.order {
		entry := g.entries[key]
		if len(entry.paths) < 2 {
			uniques = append(uniques, entry.id)
			continue
		}
		paths := make([]string, 0, len(entry.paths))
		for p := range entry.paths {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		groups[key] = &scanresult.Group{Identity: entry.id, Paths: paths}
	}
	return uniques, groups
}
