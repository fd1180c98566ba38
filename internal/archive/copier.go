package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"picsift/internal/fileutil"
	"picsift/internal/identity"
	"picsift/internal/logging"
	"picsift/internal/placement"
	"picsift/internal/preflight"
	"picsift/internal/runctl"
	"picsift/internal/scanresult"
)

// ErrInvalidTarget is returned when the archive root cannot receive copies.
var ErrInvalidTarget = errors.New("invalid archive target")

// ErrUnplaced marks an item without any usable date.
var ErrUnplaced = errors.New("no capture date or modification time")

// Observer receives per-item progress.
type Observer interface {
	ItemCopied(name string, done, total int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(name string, done, total int)

func (f ObserverFunc) ItemCopied(name string, done, total int) { f(name, done, total) }

// Summary counts the outcome of a copy run.
type Summary struct {
	Total    int
	Copied   int
	Errors   int
	Unplaced int
	Bytes    int64
}

// Options configures a Copier.
type Options struct {
	// Verify re-reads every copy from disk and compares digests.
	Verify bool
	Logger *slog.Logger
	// Log receives human-readable status lines.
	Log func(string)
}

// Copier copies distinct items of a scan result.
type Copier struct {
	opts     Options
	logger   *slog.Logger
	preserve func(path string, info os.FileInfo) error
}

func New(opts Options) *Copier {
	return &Copier{
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "archive"),
		preserve: fileutil.PreserveAttributes,
	}
}

type item struct {
	id   identity.Identity
	path string
}

// Items lists what CopyDistinct copies, in copy order: one representative per
// duplicate group, then every unique.
func Items(result *scanresult.Result) []string {
	items := plan(result)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.path
	}
	return out
}

func plan(result *scanresult.Result) []item {
	if result == nil {
		return nil
	}
	items := make([]item, 0, result.DistinctCount())
	for _, g := range result.Duplicates {
		rep := g.Representative()
		if rep == "" {
			continue
		}
		items = append(items, item{id: representative(g, rep), path: rep})
	}
	for _, u := range result.Uniques {
		items = append(items, item{id: u, path: u.Path()})
	}
	return items
}

// representative returns the identity placement should use for rep. Group
// members share a key, not necessarily a modification time, so a member other
// than the stored identity is re-stated.
func representative(g scanresult.Group, rep string) identity.Identity {
	if g.Identity == nil {
		return identity.NewMetadata(rep, time.Time{}, 0, "")
	}
	if g.Identity.Path() == rep {
		return g.Identity
	}
	var mtime time.Time
	size := g.Identity.Size()
	if info, err := os.Stat(rep); err == nil {
		mtime = info.ModTime()
		size = info.Size()
	}
	return identity.NewMetadata(rep, mtime, size, g.Identity.ExifDate())
}

// CopyDistinct copies every distinct item of result below targetRoot using
// pattern for the directory layout. Invalid targets or patterns fail before
// any file is touched. Cancellation returns runctl.ErrCancelled together with
// the partial summary.
func (c *Copier) CopyDistinct(ctx context.Context, result *scanresult.Result, targetRoot, pattern string, ctl *runctl.Controller, observer Observer) (Summary, error) {
	if result == nil {
		return Summary{}, fmt.Errorf("%w: no scan result", ErrInvalidTarget)
	}
	check := preflight.CheckDirectoryAccess("Archive root", targetRoot)
	if !check.Passed {
		return Summary{}, fmt.Errorf("%w: %s", ErrInvalidTarget, check.Detail)
	}
	resolver, err := placement.New(pattern)
	if err != nil {
		return Summary{}, err
	}

	if result.ID != "" {
		ctx = logging.WithScanID(ctx, result.ID)
	}
	logger := logging.WithContext(ctx, c.logger)
	say := func(msg string) {
		if c.opts.Log != nil {
			c.opts.Log(msg)
		}
	}

	items := plan(result)
	summary := Summary{Total: len(items)}
	started := time.Now()

	say("Starting copy operation to: " + targetRoot)
	say("Using pattern: " + resolver.Pattern)
	say(fmt.Sprintf("Total distinct items: %d", summary.Total))
	logger.Info("copy started",
		logging.String("target", targetRoot),
		logging.String("pattern", resolver.Pattern),
		logging.Int("items", summary.Total),
	)

	for i, it := range items {
		if err := ctl.Checkpoint(ctx); err != nil {
			say("Copy operation cancelled.")
			logger.Info("copy cancelled",
				logging.Int("copied", summary.Copied),
				logging.Int("errors", summary.Errors),
			)
			return summary, runctl.ErrCancelled
		}

		name := filepath.Base(it.path)
		dateDir, ok := resolver.Resolve(it.id)
		if !ok {
			summary.Unplaced++
			summary.Errors++
			say(fmt.Sprintf("Error copying %s: %v", name, ErrUnplaced))
			logging.WarnWithContext(logger, "item has no usable date", "copy_unplaced",
				logging.String(logging.FieldPath, it.path),
				logging.String(logging.FieldImpact, "item is not copied"),
			)
		} else if n, err := c.copyOne(it.path, filepath.Join(targetRoot, filepath.FromSlash(strings.TrimPrefix(dateDir, "/")))); err != nil {
			summary.Errors++
			say(fmt.Sprintf("Error copying %s: %v", name, err))
			logging.WarnWithContext(logger, "copy failed", "copy_failed",
				logging.String(logging.FieldPath, it.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item is missing from the archive"),
			)
		} else {
			summary.Copied++
			summary.Bytes += n
			say(fmt.Sprintf("Copied: %s -> %s", name, dateDir))
		}

		if observer != nil {
			observer.ItemCopied(name, i+1, summary.Total)
		}
	}

	say(fmt.Sprintf("Copy complete! Copied: %d, Errors: %d", summary.Copied, summary.Errors))
	logger.Info("copy finished",
		logging.Int("copied", summary.Copied),
		logging.Int("errors", summary.Errors),
		logging.Int("unplaced", summary.Unplaced),
		logging.Int64("bytes", summary.Bytes),
		logging.Bool("verified", c.opts.Verify),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

func (c *Copier) copyOne(src, dir string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	dst, path, err := fileutil.CreateUnique(dir, filepath.Base(src), 0o600)
	if err != nil {
		return 0, fmt.Errorf("create target: %w", err)
	}
	n, err := fileutil.CopyVerified(src, dst, c.opts.Verify)
	if err != nil {
		return 0, err
	}
	// The content is verified at this point; losing mode or mtime does not
	// make the copy unusable, and removing it would drop the item.
	if err := c.preserve(path, info); err != nil {
		logging.WarnWithContext(c.logger, "copied file keeps default attributes", "copy_attributes",
			logging.String("target", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "archived file has the copy time as its modification time"),
		)
	}
	c.logger.Debug("item copied",
		logging.String("source", src),
		logging.String("target", path),
		logging.Int64("bytes", n),
	)
	return n, nil
}
