package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picsift/internal/scanresult"
	"picsift/internal/store"
)

const defaultGroupLimit = 20

type reportOptions struct {
	// Limit caps the duplicate groups listed; zero lists all.
	Limit int
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "report [SCAN]",
		Short: "Summarize a scan (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := store.LatestRef
			if len(args) == 1 {
				ref = args[0]
			}
			return ctx.withStore(func(s *store.Store) error {
				result, err := store.LoadRef(cmd.Context(), s, ref)
				if err != nil {
					return err
				}
				if asJSON {
					return writeResultJSON(cmd, result)
				}
				printReport(cmd.OutOrStdout(), result, reportOptions{Limit: limit})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultGroupLimit, "Duplicate groups to list (0 = all)")
	return cmd
}

func printReport(w io.Writer, result *scanresult.Result, opts reportOptions) {
	p := newPalette(w)

	fmt.Fprintln(w, p.heading.Sprint("=== Dataset Report ==="))
	fmt.Fprintf(w, "Scan ID: %s\n", result.ID)
	fmt.Fprintf(w, "Total Files Scanned: %d\n", result.TotalFiles())
	fmt.Fprintf(w, "Unique Files: %d\n", len(result.Uniques))
	fmt.Fprintf(w, "Duplicate Groups: %d\n", result.DuplicateGroupCount())
	fmt.Fprintf(w, "Redundant Copies: %d\n", result.DuplicateFileCount())
	fmt.Fprintf(w, "Distinct Items: %d (%s)\n", result.DistinctCount(), humanize.IBytes(uint64(max(result.DistinctSize(), 0))))
	fmt.Fprintf(w, "Detection Mode: %s\n", result.ModeLabel())
	if ext := result.Extension(); ext != "" {
		fmt.Fprintf(w, "Extensions: %s\n", ext)
	}
	if len(result.Roots) > 0 {
		fmt.Fprintf(w, "Roots: %s\n", strings.Join(result.Roots, ", "))
	}
	fmt.Fprintf(w, "Scan Time: %s (%s)\n", result.CreatedAt.Local().Format(time.DateTime), humanize.Time(result.CreatedAt))

	if len(result.Duplicates) == 0 {
		return
	}

	groups := result.Duplicates
	if opts.Limit > 0 && len(groups) > opts.Limit {
		groups = groups[:opts.Limit]
	}
	rows := make([][]string, 0, len(groups))
	for i, g := range groups {
		rep := g.Representative()
		var others []string
		for _, path := range g.Paths {
			if path != rep {
				others = append(others, path)
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(len(g.Paths)),
			humanize.IBytes(uint64(max(g.Identity.Size(), 0))),
			rep,
			strings.Join(others, "\n"),
		})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Files", "Size", "Kept", "Duplicates"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	if hidden := len(result.Duplicates) - len(groups); hidden > 0 {
		fmt.Fprintln(w, p.warn.Sprintf("%d more group(s) not shown; use --limit 0 to list all", hidden))
	}
}
