package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"picsift/internal/config"
	"picsift/internal/dedup"
	"picsift/internal/identity"
	"picsift/internal/notifications"
	"picsift/internal/runctl"
	"picsift/internal/scanresult"
	"picsift/internal/store"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		extensions []string
		mode       string
		checksum   bool
		baseline   string
		noSave     bool
		exportPath string
		workers    int
		eager      bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "scan ROOT...",
		Short: "Scan folders for duplicate images",
		Long: `Scan one or more folders recursively and group images that share an identity.

Metadata mode compares EXIF capture date and size (or name, modification time
and size when there is no EXIF date). Checksum mode compares file contents.
With --baseline, everything already present in an earlier scan is dropped
from the result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("ext") {
				extensions = cfg.Scan.Extensions
			}
			modeValue := cfg.Scan.DetectionMode
			if cmd.Flags().Changed("mode") {
				modeValue = mode
			}
			if checksum {
				modeValue = string(identity.ModeChecksum)
			}
			detection, err := identity.ParseMode(modeValue)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Scan.Workers
			}
			roots, err := absolutePaths(args)
			if err != nil {
				return err
			}

			return ctx.withStore(func(s *store.Store) error {
				var base *scanresult.Result
				if baseline != "" {
					base, err = store.LoadRef(cmd.Context(), s, baseline)
					if err != nil {
						return fmt.Errorf("load baseline: %w", err)
					}
				}

				out := newStatus(ctx.statusWriter(cmd))
				ctl := runctl.New()
				runCtx, stop := bindSignals(cmd.Context(), ctl, out.Line)
				defer stop()

				orch := dedup.New(dedup.Options{
					Workers:       workers,
					EagerChecksum: eager || cfg.Scan.EagerChecksum,
					Observer:      newScanTracker(out),
					Logger:        logger,
				})
				started := time.Now()
				result, err := orch.Scan(runCtx, dedup.Request{
					Roots:      roots,
					Extensions: extensions,
					Mode:       detection,
					Baseline:   base,
					Log:        out.Line,
					Controller: ctl,
				})
				out.Finish()
				if err != nil {
					if runctl.IsCancellation(err) {
						fmt.Fprintln(cmd.ErrOrStderr(), "scan cancelled")
						return context.Canceled
					}
					ctx.notify(cmd.Context(), notifications.EventFailed, notifications.Payload{"operation": "scan", "error": err})
					return err
				}
				ctx.notify(cmd.Context(), notifications.EventScanCompleted, notifications.Payload{
					"scanID":   result.ID,
					"files":    result.TotalFiles(),
					"groups":   result.DuplicateGroupCount(),
					"distinct": result.DistinctCount(),
					"duration": time.Since(started),
				})

				if !noSave {
					if err := s.Save(cmd.Context(), result); err != nil {
						return fmt.Errorf("save scan: %w", err)
					}
				}
				if exportPath != "" {
					target, err := config.ExpandPath(exportPath)
					if err != nil {
						return err
					}
					if err := (store.JSONFile{Path: target}).Save(cmd.Context(), result); err != nil {
						return err
					}
					out.Line("Exported results to " + target)
				}

				if asJSON {
					return writeResultJSON(cmd, result)
				}
				printReport(cmd.OutOrStdout(), result, reportOptions{Limit: defaultGroupLimit})
				if !noSave {
					fmt.Fprintf(cmd.OutOrStdout(), "\nSaved as %s\n", result.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&extensions, "ext", "e", nil, "Extension to match (repeatable, case-sensitive)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Detection mode: metadata or checksum")
	cmd.Flags().BoolVar(&checksum, "checksum", false, "Shorthand for --mode checksum")
	cmd.Flags().StringVarP(&baseline, "baseline", "b", "", "Drop items already in this scan (ID, 'latest', or JSON file)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record the scan in history")
	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "Also write the result to this JSON file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent probes per folder (0 = number of CPUs)")
	cmd.Flags().BoolVar(&eager, "eager-checksum", false, "Hash every file while probing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// scanTracker folds per-root progress into one bar.
type scanTracker struct {
	out   *status
	mu    sync.Mutex
	roots map[string][2]int
}

func newScanTracker(out *status) *scanTracker {
	return &scanTracker{out: out, roots: make(map[string][2]int)}
}

func (t *scanTracker) RootProgress(root string, done, total int) {
	t.mu.Lock()
	t.roots[root] = [2]int{done, total}
	var sumDone, sumTotal int
	for _, p := range t.roots {
		sumDone += p[0]
		sumTotal += p[1]
	}
	t.mu.Unlock()
	t.out.Progress("scanning", sumDone, sumTotal)
}

// StateChanged drops the bar once the scan settles so the final status lines
// print cleanly.
func (t *scanTracker) StateChanged(s dedup.State) {
	if s.Terminal() {
		t.out.Finish()
	}
}

func absolutePaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		expanded, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
