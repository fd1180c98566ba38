package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"picsift/internal/config"
	"picsift/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export SCAN FILE",
		Short: "Write a stored scan to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(s *store.Store) error {
				result, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := (store.JSONFile{Path: target}).Save(cmd.Context(), result); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported scan %s to %s\n", result.ID, target)
				return nil
			})
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Add a scan from a JSON file to history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			result, err := (store.JSONFile{Path: source}).Load(cmd.Context(), "")
			if err != nil {
				return err
			}
			return ctx.withStore(func(s *store.Store) error {
				if err := s.Save(cmd.Context(), result); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported scan %s (%s, %d files, %d duplicate groups)\n",
					result.ID, result.ModeLabel(), result.TotalFiles(), result.DuplicateGroupCount())
				return nil
			})
		},
	}
}
