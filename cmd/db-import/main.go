package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ytbench/internal/config"
	"ytbench/internal/storage"
)

func main() {
	cfg := config.Load()

	var (
		dir      = flag.String("dir", cfg.OutputDir, "Directory with result JSON files")
		dbDriver = flag.String("db-driver", cfg.DatabaseDriver, "Database driver: sqlite, postgres")
		dbURL    = flag.String("db-url", cfg.DatabaseURL, "Database path or DSN")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	ctx := context.Background()

	db, err := storage.Open(*dbDriver, *dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report, err := storage.ImportDir(ctx, storage.NewResultStore(db), *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported:   %d\n", len(report.Imported))
	fmt.Printf("Duplicates: %d\n", len(report.Duplicates))
	fmt.Printf("Invalid:    %d\n", len(report.Invalid))
	for _, name := range report.Invalid {
		fmt.Printf("  - %s\n", name)
	}
}
