package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata/pkg/entity"
)

var showCmd = &cobra.Command{
	Use:   "show <kind> <id>",
	Short: "Print a record migrated to the current version",
	Long:  `Show reads one record, migrates it in memory and prints it as JSON. Nothing is written.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := entity.ParseKind(args[0])
		if err != nil {
			fatal("Error parsing kind", err)
		}

		rt := openRuntime(cmd.Context(), true)
		rec, err := rt.Get(cmd.Context(), kind, args[1])
		if err != nil {
			fatal("Error reading record", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rec); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
