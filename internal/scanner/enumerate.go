package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"picsift/internal/logging"
	"picsift/internal/runctl"
)

// ErrNoExtensions is returned when the extension filter is empty.
var ErrNoExtensions = errors.New("extension filter is empty")

// Suffixes turns an extension filter into literal name suffixes. "jpg",
// ".jpg" and "*.jpg" all become ".jpg". Case is preserved.
func Suffixes(extensions []string) []string {
	seen := make(map[string]struct{}, len(extensions))
	out := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		ext = strings.TrimPrefix(ext, "*")
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		suffix := "." + ext
		if _, ok := seen[suffix]; ok {
			continue
		}
		seen[suffix] = struct{}{}
		out = append(out, suffix)
	}
	return out
}

func matchesSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Enumerate walks root and returns the canonical paths of regular files whose
// names end with one of the extensions and that were not yet claimed in
// visited. An unreadable root is an error; unreadable entries below it are
// logged and skipped.
func Enumerate(ctx context.Context, root string, extensions []string, visited *VisitedSet, ctl *runctl.Controller, logger *slog.Logger) ([]string, error) {
	suffixes := Suffixes(extensions)
	if len(suffixes) == 0 {
		return nil, ErrNoExtensions
	}
	if visited == nil {
		visited = NewVisitedSet()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	base, err := canonicalRoot(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctl.Checkpoint(ctx); err != nil {
			return err
		}
		if walkErr != nil {
			if path == base {
				return walkErr
			}
			logging.WarnWithContext(logger, "skipping unreadable entry", "walk_failed",
				logging.String(logging.FieldPath, path),
				logging.Error(walkErr),
				logging.String(logging.FieldImpact, "entry excluded from the scan"),
			)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !matchesSuffix(d.Name(), suffixes) {
			return nil
		}

		resolved, ok := resolveRegular(path, d)
		if !ok {
			logger.Debug("skipping non-regular file", logging.String(logging.FieldPath, path))
			return nil
		}
		if !visited.Claim(resolved) {
			logger.Debug("skipping already visited file", logging.String(logging.FieldPath, resolved))
			return nil
		}
		paths = append(paths, resolved)
		return nil
	})
	if err != nil {
		if runctl.IsCancellation(err) {
			return nil, runctl.ErrCancelled
		}
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", root)
	}
	return filepath.Clean(resolved), nil
}

// resolveRegular follows symlinks and reports the canonical path when the
// target is a regular file.
func resolveRegular(path string, d fs.DirEntry) (string, bool) {
	if d.Type().IsRegular() {
		return filepath.Clean(path), true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return "", false
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", false
	}
	return filepath.Clean(abs), true
}
