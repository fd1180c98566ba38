package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"picsift/internal/logging"
	"picsift/internal/logs"
)

const followWait = 5 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		scanID string
		day    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the structured log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := logPath(cfg.Paths.LogDir, day)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := logs.TailOptions{Offset: -1, Limit: lines, Match: strings.TrimSpace(scanID)}
			out := cmd.OutOrStdout()
			for {
				result, err := logs.Tail(runCtx, path, opts)
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				if !follow {
					return nil
				}
				if runCtx.Err() != nil {
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = followWait
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&scanID, "scan", "", "Only show lines mentioning this scan ID")
	cmd.Flags().StringVar(&day, "day", "", "Read the log for this date (YYYY-MM-DD) instead of the newest")
	return cmd
}

func logPath(dir, day string) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return logs.LatestFile(dir)
	}
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return "", fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", day)
	}
	return filepath.Join(dir, logging.LogFileName(t)), nil
}
