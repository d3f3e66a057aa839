package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata/pkg/migrate"
)

var kindsJSON bool

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List entity kinds and their migration chains",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rt := openRuntime(cmd.Context(), true)
		state, _ := rt.Registry.State().(migrate.RegistryState)

		if kindsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(state); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, c := range state.Chains {
			fmt.Printf("%s (%s .. %s)\n", c.Kind, c.Oldest, c.Current)
			for _, s := range c.Steps {
				fmt.Printf("  %s\n", s)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	kindsCmd.Flags().BoolVar(&kindsJSON, "json", false, "Output in JSON format")
}
