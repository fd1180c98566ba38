package scanner

import "sync"

// VisitedSet records canonical paths already claimed during one scan.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Claim marks path as visited and reports whether the caller is the first to
// claim it.
func (v *VisitedSet) Claim(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[path]; ok {
		return false
	}
	v.seen[path] = struct{}{}
	return true
}

func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
