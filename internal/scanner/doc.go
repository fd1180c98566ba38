// Package scanner discovers and probes the image files under one root.
//
// Enumerate walks the root, keeps files whose names end with one of the
// requested extensions, and claims each canonical path in a VisitedSet shared
// across roots so no file is probed twice in a multi-root scan. Scan then
// probes the claimed paths on a bounded worker pool and folds the identities
// into unique items and duplicate groups through a Grouper.
package scanner
