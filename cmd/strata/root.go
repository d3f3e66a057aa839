package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata"
	"github.com/aretw0/strata/pkg/entity"
)

var (
	verbose bool
	dataDir string
	format  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Inspect and upgrade versioned persona and session records",
	Long: `Strata stores every record with a version tag and migrates older
records to the current shape when they are read. The commands here report
which records are outdated or unreadable and rewrite them in place.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Data root (default: nearest enclosing root, else the working directory)")
	rootCmd.PersistentFlags().StringVar(&format, "format", ".toml", "Format used when rewriting records (.toml, .yaml, .json)")
}

// resolveDir picks the data root from --dir or the working directory.
func resolveDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := strata.FindRoot(wd)
	if err == nil {
		return root, nil
	}
	return wd, nil
}

// openRuntime opens the data root. Commands that never write pass readOnly.
func openRuntime(ctx context.Context, readOnly bool) *strata.Runtime {
	dir, err := resolveDir()
	if err != nil {
		fatal("Error resolving data root", err)
	}

	rt, err := strata.New(ctx, dir,
		strata.WithMustExist(true),
		strata.WithReadOnly(readOnly),
		strata.WithFormat(format),
		strata.WithDevSafety(false),
		strata.WithLogger(slog.Default()),
	)
	if err != nil {
		fatal("Error opening data root", err)
	}
	return rt
}

// parseKinds maps kind arguments to kinds; no arguments means every kind.
func parseKinds(args []string) ([]entity.Kind, error) {
	if len(args) == 0 {
		return entity.All(), nil
	}
	kinds := make([]entity.Kind, 0, len(args))
	for _, a := range args {
		k, err := entity.ParseKind(a)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
