package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picsift/internal/scanresult"
	"picsift/internal/store"
)

const shortIDLength = 8

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store) error {
				scans, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if scans == nil {
						scans = []store.Summary{}
					}
					return writeJSON(cmd, scans)
				}
				if len(scans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded yet")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Created", "Mode", "Files", "Groups", "Distinct", "Roots"},
					historyRows(scans),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the history as JSON")

	cmd.AddCommand(newHistoryDeleteCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func historyRows(scans []store.Summary) [][]string {
	rows := make([][]string, 0, len(scans))
	for _, sum := range scans {
		id := sum.ID
		if len(id) > shortIDLength {
			id = id[:shortIDLength]
		}
		rows = append(rows, []string{
			id,
			sum.CreatedAt.Local().Format(time.DateTime),
			scanresult.ModeLabel(sum.Mode),
			strconv.Itoa(sum.Files),
			strconv.Itoa(sum.Groups),
			humanize.IBytes(uint64(max(sum.DistinctBytes, 0))),
			strings.Join(sum.Roots, "\n"),
		})
	}
	return rows
}

func newHistoryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SCAN",
		Short: "Remove one scan from history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store) error {
				id, err := s.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %s\n", id)
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every scan from history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store) error {
				removed, err := s.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d scan(s) from history\n", removed)
				return nil
			})
		},
	}
}
