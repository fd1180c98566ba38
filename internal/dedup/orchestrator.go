package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"picsift/internal/identity"
	"picsift/internal/logging"
	"picsift/internal/probe"
	"picsift/internal/runctl"
	"picsift/internal/scanner"
	"picsift/internal/scanresult"
)

// Request describes one multi-root scan.
type Request struct {
	Roots      []string
	Extensions []string
	Mode       identity.Mode
	// Baseline, when set, removes every item it already knows from the result.
	Baseline *scanresult.Result
	// Progress receives (completed roots, total roots).
	Progress func(done, total int)
	// Log receives human-readable status lines.
	Log        func(string)
	Controller *runctl.Controller
}

// Options configures an Orchestrator.
type Options struct {
	// Workers bounds concurrent probes per root. Zero means GOMAXPROCS.
	Workers       int
	EagerChecksum bool
	Observer      Observer
	Logger        *slog.Logger
}

// Orchestrator runs scans across several roots.
type Orchestrator struct {
	opts     Options
	observer Observer
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

func New(opts Options) *Orchestrator {
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		opts:     opts,
		observer: observer,
		logger:   logging.NewComponentLogger(opts.Logger, "dedup"),
		state:    StateIdle,
	}
}

// State returns the stage of the current or last scan.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.observer.StateChanged(s)
}

type rootOutcome struct {
	result scanner.FolderResult
	err    error
}

// Scan runs req to completion. Only a completed scan yields a result;
// cancellation returns runctl.ErrCancelled and a request that cannot start
// returns ErrInvalidRequest or ErrBaselineMode before any file is touched.
func (o *Orchestrator) Scan(ctx context.Context, req Request) (*scanresult.Result, error) {
	roots, err := validate(req)
	if err != nil {
		return nil, err
	}

	scanID := uuid.NewString()
	ctx = logging.WithScanID(ctx, scanID)
	logger := logging.WithContext(ctx, o.logger)
	say := func(msg string) {
		logger.Info(msg)
		if req.Log != nil {
			req.Log(msg)
		}
	}
	ctl := req.Controller
	started := time.Now()

	say("Starting processing...")
	say("Mode: " + scanresult.ModeLabel(req.Mode))
	say(fmt.Sprintf("Parallelizing with %d folder worker threads.", len(roots)))
	o.setState(StateScanning)

	cache := identity.NewChecksumCache(o.opts.Logger)
	prober := probe.New(probe.Options{
		Mode:          req.Mode,
		Cache:         cache,
		EagerChecksum: o.opts.EagerChecksum,
		Logger:        o.opts.Logger,
	})
	sc := scanner.New(prober, scanner.Options{Workers: o.opts.Workers, Logger: o.opts.Logger})
	visited := scanner.NewVisitedSet()

	outcomes := make([]rootOutcome, len(roots))
	var (
		wg       sync.WaitGroup
		progMu   sync.Mutex
		finished int
	)
	for i, root := range roots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := sc.Scan(ctx, root, req.Extensions, visited, ctl, func(done, total int) {
				o.observer.RootProgress(root, done, total)
			})
			outcomes[i] = rootOutcome{result: res, err: err}

			progMu.Lock()
			defer progMu.Unlock()
			finished++
			if req.Progress != nil {
				req.Progress(finished, len(roots))
			}
		}()
	}
	wg.Wait()

	var (
		results  []scanner.FolderResult
		failures []error
	)
	cancelled := ctl.Checkpoint(ctx) != nil
	for i, out := range outcomes {
		switch {
		case out.err == nil:
			results = append(results, out.result)
		case runctl.IsCancellation(out.err):
			cancelled = true
		default:
			rootErr := &RootError{Root: roots[i], Err: out.err}
			failures = append(failures, rootErr)
			logging.WarnWithContext(logger, "root scan failed; contribution omitted", "root_failed",
				logging.String(logging.FieldRoot, roots[i]),
				logging.Error(out.err),
				logging.String(logging.FieldErrorHint, "check that the folder exists and is readable"),
				logging.String(logging.FieldImpact, "files under this root are missing from the result"),
			)
			if req.Log != nil {
				req.Log(rootErr.Error())
			}
		}
	}
	if cancelled {
		say("Processing cancelled.")
		o.setState(StateCancelled)
		return nil, runctl.ErrCancelled
	}
	if len(results) == 0 {
		err := fmt.Errorf("every root failed: %w", errors.Join(failures...))
		logging.ErrorWithContext(logger, "scan produced no result", "scan_failed",
			logging.Int("roots", len(roots)),
			logging.Error(err),
			logging.Alert("no_result"),
			logging.String(logging.FieldErrorHint, "check that at least one root exists and is readable"),
		)
		o.setState(StateFailed)
		return nil, err
	}

	o.setState(StateMerging)
	say(fmt.Sprintf("Merging results from %d folders...", len(roots)))
	uniques, groups := Merge(results)
	result := scanresult.New(uniques, groups, roots, req.Extensions, req.Mode)
	result.ID = scanID

	if req.Baseline != nil {
		o.setState(StateFiltering)
		say(fmt.Sprintf("Filtering results against base result (%d unique, %d duplicate groups)...",
			len(req.Baseline.Uniques), len(req.Baseline.Duplicates)))
		result = FilterAgainst(result, req.Baseline)
		say(fmt.Sprintf("After filtering: %d unique files and %d distinct duplicate groups.",
			len(result.Uniques), len(result.Duplicates)))
	}

	if err := result.Validate(); err != nil {
		o.setState(StateFailed)
		return nil, err
	}

	say(fmt.Sprintf("Processing complete. Found %d unique files and %d distinct duplicate groups.",
		len(result.Uniques), len(result.Duplicates)))
	logger.Info("scan finished",
		logging.Int("roots", len(roots)),
		logging.Int("failed_roots", len(failures)),
		logging.Int("files", result.TotalFiles()),
		logging.Duration("elapsed", time.Since(started)),
	)
	o.setState(StateDone)
	return result, nil
}

func validate(req Request) ([]string, error) {
	roots := make([]string, 0, len(req.Roots))
	for _, r := range req.Roots {
		if r = strings.TrimSpace(r); r != "" {
			roots = append(roots, r)
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: no roots to scan", ErrInvalidRequest)
	}
	if len(scanner.Suffixes(req.Extensions)) == 0 {
		return nil, fmt.Errorf("%w: extension filter is empty", ErrInvalidRequest)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown detection mode %q", ErrInvalidRequest, req.Mode)
	}
	// Legacy results do not record their mode. Their identities still carry
	// one, so entries of the other variant simply never match.
	if req.Baseline != nil && req.Baseline.Mode != scanresult.ModeUnknown && req.Baseline.Mode != req.Mode {
		return nil, fmt.Errorf("%w: baseline uses %s, scan uses %s", ErrBaselineMode, req.Baseline.Mode, req.Mode)
	}
	return roots, nil
}
