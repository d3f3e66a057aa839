package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	upgradeDryRun bool
	upgradeJSON   bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [kind...]",
	Short: "Rewrite outdated records in the current version",
	Long: `Upgrade migrates every outdated record of the given kinds (all kinds by
default) and saves it back tagged with the current version. Personas are
always upgraded before sessions. Unreadable records are left untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		kinds, err := parseKinds(args)
		if err != nil {
			fatal("Error parsing kinds", err)
		}

		rt := openRuntime(cmd.Context(), upgradeDryRun)
		reports, err := rt.Upgrade(cmd.Context(), kinds, upgradeDryRun)
		if err != nil {
			fatal("Error upgrading records", err)
		}

		label := "upgraded"
		if upgradeDryRun {
			label = "to upgrade"
		}
		failed, err := writeReports(os.Stdout, reports, upgradeJSON, label)
		if err != nil {
			fatal("Error writing report", err)
		}
		if failed > 0 {
			fatal("Upgrade incomplete", fmt.Errorf("%d record(s) could not be migrated", failed))
		}
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().BoolVar(&upgradeDryRun, "dry-run", false, "Report what would change without writing")
	upgradeCmd.Flags().BoolVar(&upgradeJSON, "json", false, "Output in JSON format")
}
