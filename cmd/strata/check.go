package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check [kind...]",
	Short: "Load every record and report outdated or unreadable ones",
	Long: `Check loads every record of the given kinds (all kinds by default)
through its migration chain without writing anything. It exits non-zero
when any record cannot be migrated.`,
	Run: func(cmd *cobra.Command, args []string) {
		kinds, err := parseKinds(args)
		if err != nil {
			fatal("Error parsing kinds", err)
		}

		rt := openRuntime(cmd.Context(), true)
		reports, err := rt.Upgrade(cmd.Context(), kinds, true)
		if err != nil {
			fatal("Error checking records", err)
		}

		failed, err := writeReports(os.Stdout, reports, checkJSON, "outdated")
		if err != nil {
			fatal("Error writing report", err)
		}
		if failed > 0 {
			fatal("Check failed", fmt.Errorf("%d unreadable record(s)", failed))
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
}
