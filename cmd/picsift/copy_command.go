package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picsift/internal/archive"
	"picsift/internal/notifications"
	"picsift/internal/preflight"
	"picsift/internal/runctl"
	"picsift/internal/store"
)

func newCopyCommand(ctx *commandContext) *cobra.Command {
	var (
		pattern        string
		skipSpaceCheck bool
		noVerify       bool
	)

	cmd := &cobra.Command{
		Use:   "copy SCAN TARGET",
		Short: "Copy one file per distinct image into a date-organized archive",
		Long: `Copy the representative of every duplicate group and every unique file of
SCAN (an ID, 'latest', or a JSON file) below TARGET.

The directory of each file comes from --pattern, filled in with the EXIF
capture date or, failing that, the modification time. Supported tokens are
{year}, {month}, {day}, {hour} and {minute}. Existing files are never
overwritten: a second photo.jpg lands as photo_1.jpg.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pattern") {
				pattern = cfg.Copy.Pattern
			}
			skipSpaceCheck = skipSpaceCheck || cfg.Copy.SkipSpaceCheck
			targets, err := absolutePaths(args[1:])
			if err != nil {
				return err
			}
			target := targets[0]

			return ctx.withStore(func(s *store.Store) error {
				result, err := store.LoadRef(cmd.Context(), s, args[0])
				if err != nil {
					return err
				}

				if check := preflight.CheckDirectoryAccess("Archive root", target); !check.Passed {
					return fmt.Errorf("%w: %s", archive.ErrInvalidTarget, check.Detail)
				}
				if !skipSpaceCheck {
					required := result.DistinctSize() + cfg.SpaceMarginBytes()
					if check := preflight.CheckSpace(target, required); !check.Passed {
						return fmt.Errorf("insufficient disk space: %s (use --skip-space-check to copy anyway)", check.Detail)
					}
				}

				out := newStatus(ctx.statusWriter(cmd))
				ctl := runctl.New()
				runCtx, stop := bindSignals(cmd.Context(), ctl, out.Line)
				defer stop()

				copier := archive.New(archive.Options{
					Verify: cfg.Copy.Verify && !noVerify,
					Logger: logger,
					Log:    out.Line,
				})
				observer := archive.ObserverFunc(func(_ string, done, total int) {
					out.Progress("copying", done, total)
				})
				summary, err := copier.CopyDistinct(runCtx, result, target, pattern, ctl, observer)
				out.Finish()
				printCopySummary(cmd, summary, target)
				if err != nil {
					if runctl.IsCancellation(err) {
						fmt.Fprintln(cmd.ErrOrStderr(), "copy cancelled")
						return context.Canceled
					}
					ctx.notify(cmd.Context(), notifications.EventFailed, notifications.Payload{"operation": "copy", "error": err})
					return err
				}
				ctx.notify(cmd.Context(), notifications.EventCopyCompleted, notifications.Payload{
					"target": target,
					"copied": summary.Copied,
					"total":  summary.Total,
					"errors": summary.Errors,
					"bytes":  summary.Bytes,
				})
				if summary.Errors > 0 {
					return fmt.Errorf("%d of %d item(s) were not copied; see the log for details", summary.Errors, summary.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Directory pattern below TARGET (default from config)")
	cmd.Flags().BoolVar(&skipSpaceCheck, "skip-space-check", false, "Copy even when TARGET looks too small")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip re-reading copies to verify them")
	return cmd
}

func printCopySummary(cmd *cobra.Command, summary archive.Summary, target string) {
	w := cmd.OutOrStdout()
	p := newPalette(w)
	fmt.Fprintf(w, "Copied %s of %d item(s) (%s) into %s\n",
		p.ok.Sprint(summary.Copied), summary.Total, humanize.IBytes(uint64(max(summary.Bytes, 0))), target)
	fmt.Fprintf(w, "Errors: %s", p.count(summary.Errors))
	if summary.Unplaced > 0 {
		fmt.Fprintf(w, " (%s without any date)", p.warn.Sprint(summary.Unplaced))
	}
	fmt.Fprintln(w)
}
