package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"picsift/internal/scanresult"
	"picsift/internal/store"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResultJSON prints result in the export document format.
func writeResultJSON(cmd *cobra.Command, result *scanresult.Result) error {
	return store.Encode(cmd.OutOrStdout(), result)
}
