package scanner

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"picsift/internal/identity"
	"picsift/internal/logging"
	"picsift/internal/runctl"
	"picsift/internal/scanresult"
)

// ProgressFunc receives (completed, total) probe counts. Calls are serialized
// and completed increases by one per call.
type ProgressFunc func(done, total int)

// Prober builds an identity for one file, returning (nil, nil) to skip it.
type Prober interface {
	Probe(ctx context.Context, path string) (identity.Identity, error)
}

// Options configures a Scanner.
type Options struct {
	// Workers bounds concurrent probes per root. Zero means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// FolderResult is the partition of one root's files.
type FolderResult struct {
	Root       string
	Uniques    []identity.Identity
	Duplicates map[identity.Key]*scanresult.Group
	// Candidates counts enumerated paths; Files counts those that probed as
	// images.
	Candidates int
	Files      int
}

// Scanner probes the files under a root.
type Scanner struct {
	prober  Prober
	workers int
	logger  *slog.Logger
}

func New(prober Prober, opts Options) *Scanner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		prober:  prober,
		workers: workers,
		logger:  logging.NewComponentLogger(opts.Logger, "scanner"),
	}
}

func (s *Scanner) Workers() int { return s.workers }

// Scan enumerates root, probes every claimed path on the worker pool, and
// groups the identities. Cancellation returns runctl.ErrCancelled and no
// result; per-file failures are skipped.
func (s *Scanner) Scan(ctx context.Context, root string, extensions []string, visited *VisitedSet, ctl *runctl.Controller, progress ProgressFunc) (FolderResult, error) {
	started := time.Now()
	logger := logging.WithContext(logging.WithRoot(ctx, root), s.logger)

	paths, err := Enumerate(ctx, root, extensions, visited, ctl, logger)
	if err != nil {
		return FolderResult{}, err
	}
	total := len(paths)
	logger.Debug("enumerated candidates", logging.Int("candidates", total), logging.Int("workers", s.workers))

	grouper := NewGrouper()
	sampler := logging.NewProgressSampler(25)
	var (
		mu    sync.Mutex
		done  int
		files int
	)
	report := func(found bool) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if found {
			files++
		}
		if progress != nil {
			progress(done, total)
		}
		if sampler.ShouldLog(done, total, "probe") {
			logger.Debug("probe progress", logging.Int("done", done), logging.Int("total", total))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	var scheduleErr error
	for _, path := range paths {
		if scheduleErr = ctl.Checkpoint(gctx); scheduleErr != nil {
			break
		}
		g.Go(func() error {
			if err := ctl.Checkpoint(gctx); err != nil {
				return err
			}
			id, err := s.prober.Probe(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return runctl.ErrCancelled
				}
				return err
			}
			if id != nil {
				grouper.Add(id)
			}
			report(id != nil)
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = scheduleErr
	}
	if err != nil {
		if runctl.IsCancellation(err) {
			return FolderResult{}, runctl.ErrCancelled
		}
		return FolderResult{}, err
	}

	uniques, groups := grouper.Partition()
	logger.Info("root scanned",
		logging.Int("candidates", total),
		logging.Int("images", files),
		logging.Int("uniques", len(uniques)),
		logging.Int("duplicate_groups", len(groups)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return FolderResult{
		Root:       root,
		Uniques:    uniques,
		Duplicates: groups,
		Candidates: total,
		Files:      files,
	}, nil
}
