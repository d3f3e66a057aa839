package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/strata"
)

func main() {
	count := flag.Int("count", 1000, "Number of legacy sessions to generate")
	personas := flag.Int("personas", 20, "Number of legacy personas to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark data root after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "strata_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d sessions and %d personas in %s...\n", *count, *personas, benchDir)
	startGen := time.Now()
	if err := generate(benchDir, *count, *personas); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	rt, err := strata.New(ctx, benchDir, strata.WithLogger(logger))
	if err != nil {
		panic(err)
	}

	// Run 1: every session migrates in memory.
	fmt.Println("Running LoadAll (Run 1 - Legacy)...")
	start := time.Now()
	entries, failed, err := rt.Sessions.LoadAll(ctx)
	if err != nil {
		panic(err)
	}
	legacy := time.Since(start)
	fmt.Printf("Run 1 Result: %v (Items: %d, Failed: %d)\n", legacy, len(entries), len(failed))

	fmt.Println("Running Upgrade...")
	start = time.Now()
	if _, err := rt.Upgrade(ctx, nil, false); err != nil {
		panic(err)
	}
	upgrade := time.Since(start)

	// Run 2: records are current, no step runs.
	fmt.Println("Running LoadAll (Run 2 - Current)...")
	start = time.Now()
	entries, _, err = rt.Sessions.LoadAll(ctx)
	if err != nil {
		panic(err)
	}
	current := time.Since(start)
	fmt.Printf("Run 2 Result: %v (Items: %d)\n", current, len(entries))

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d sessions):\n", *count)
	fmt.Printf("  Legacy load: %v\n", legacy)
	fmt.Printf("  Upgrade:     %v\n", upgrade)
	fmt.Printf("  Current load: %v\n", current)
	fmt.Printf("--------------------------------------------------\n")
}

// generate writes 0.1.0 records straight to disk to simulate an old data root.
func generate(dir string, sessions, personas int) error {
	for _, sub := range []string{"personas", "sessions"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}

	for i := 0; i < personas; i++ {
		content := fmt.Sprintf("version = \"0.1.0\"\nid = \"p%d\"\nname = \"Persona %d\"\n", i, i)
		if err := os.WriteFile(filepath.Join(dir, "personas", fmt.Sprintf("p%d.toml", i)), []byte(content), 0644); err != nil {
			return err
		}
	}

	updated := time.Now().UTC().Format(time.RFC3339)
	for i := 0; i < sessions; i++ {
		p := i % max(personas, 1)
		content := fmt.Sprintf(`version = "0.1.0"
id = "s%d"
name = "Session %d"
updated_at = %q
active_persona = "persona %d"

[[history."Persona %d"]]
role = "assistant"
content = "hello"

[[history.user]]
role = "user"
content = "hi"
`, i, i, updated, p, p)
		if err := os.WriteFile(filepath.Join(dir, "sessions", fmt.Sprintf("s%d.toml", i)), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}
