package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ytbench/internal/config"
	"ytbench/internal/evaluation"
	"ytbench/internal/generator"
	"ytbench/internal/objectstore"
	"ytbench/internal/storage"
	"ytbench/internal/tester"
	_ "ytbench/internal/tester/gcloud"
	_ "ytbench/internal/tester/openai"
	_ "ytbench/internal/tester/sherpa"
	"ytbench/internal/testplan"
	"ytbench/internal/youtube"

	"google.golang.org/api/option"
)

func main() {
	cfg := config.Load()

	var settings tester.SettingsFlag
	var (
		planFile        = flag.String("plan", "", "Test plan JSON file")
		model           = flag.String("model", "dummy", "Registered model name ("+strings.Join(tester.Names(), ", ")+")")
		modelDir        = flag.String("model-dir", "", "Model directory for local models")
		language        = flag.String("lang", "en", "Evaluation language")
		name            = flag.String("name", evaluation.DefaultName, "Run name, prefix of result files")
		iterations      = flag.Int("iterations", 1, "Number of test plans to evaluate, following continuation tokens")
		workers         = flag.Int("workers", 1, "Videos evaluated concurrently")
		audioDir        = flag.String("audio-dir", cfg.AudioDir, "Audio cache directory")
		outputDir       = flag.String("output", cfg.OutputDir, "Result directory")
		reportFile      = flag.String("report", "", "Markdown report file (default: stdout)")
		reference       = flag.String("reference", youtube.SourceManual, "Reference transcript source: manual, generated, any")
		saveTranscripts = flag.Bool("save-transcripts", false, "Store model and reference transcripts in the result file")
		keepAudio       = flag.Bool("keep-audio", false, "Keep downloaded audio files")
		saveDB          = flag.Bool("db", false, "Save results to the database")
		dbDriver        = flag.String("db-driver", cfg.DatabaseDriver, "Database driver: sqlite, postgres")
		dbURL           = flag.String("db-url", cfg.DatabaseURL, "Database path or DSN")
		publish         = flag.Bool("publish", false, "Upload result files to MinIO (MINIO_* variables)")
		downloadTimeout = flag.Duration("download-timeout", 10*time.Minute, "Audio download timeout per video")
		refTimeout      = flag.Duration("reference-timeout", time.Minute, "Reference transcript timeout per video")
		modelTimeout    = flag.Duration("transcribe-timeout", 30*time.Minute, "Transcription timeout per video")
		verbose         = flag.Bool("v", false, "Verbose output")
	)
	flag.Var(&settings, "set", "Model setting key=value (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -plan testplans/News_en_CAUQAQ.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -plan plan.json -model sherpa-whisper -model-dir models/whisper-base.en -iterations 3 -db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -plan plan.json -model openai-whisper -set model=whisper-1 -workers 4\n", os.Args[0])
	}

	flag.Parse()

	if *planFile == "" {
		fmt.Fprintf(os.Stderr, "Error: Test plan is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	switch *reference {
	case youtube.SourceManual, youtube.SourceGenerated, youtube.SourceAny:
	default:
		fmt.Fprintf(os.Stderr, "Error: Invalid reference source '%s'. Must be: manual, generated, or any\n", *reference)
		os.Exit(1)
	}

	logFile, err := openLog(*outputDir, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	if *verbose {
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	} else {
		log.SetOutput(logFile)
	}

	plan, err := testplan.Load(*planFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	parsed, err := tester.ParseSettings(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	m, err := tester.New(*model, tester.Options{Language: *language, ModelDir: *modelDir, Settings: parsed})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()
	log.Printf("Model: %+v", m.Describe())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := youtube.NewClient()
	resolver := youtube.NewResolver(client)
	resolver.Source = *reference

	var opts []evaluation.Option
	if *iterations > 1 {
		if cfg.GoogleAPIKey == "" {
			fmt.Fprintf(os.Stderr, "Error: GOOGLE_API_KEY is required to generate more than one test plan\n")
			os.Exit(1)
		}
		gen, err := generator.New(ctx, client, option.WithAPIKey(cfg.GoogleAPIKey))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, evaluation.WithGenerator(gen))
	}

	if *saveDB {
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
		opts = append(opts, evaluation.WithStore(storage.NewResultStore(db)))
	}

	if *publish {
		mcfg, ok, err := objectstore.ConfigFromEnv()
		if err != nil || !ok {
			fmt.Fprintf(os.Stderr, "Error: MinIO is not configured (MINIO_ENDPOINT, MINIO_BUCKET_NAME): %v\n", err)
			os.Exit(1)
		}
		publisher, err := objectstore.New(ctx, mcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, evaluation.WithPublisher(publisher))
	}

	runner := evaluation.NewRunner(evaluation.Config{
		Name:              *name,
		AudioDir:          *audioDir,
		OutputDir:         *outputDir,
		Iterations:        *iterations,
		Workers:           *workers,
		SaveTranscripts:   *saveTranscripts,
		KeepAudio:         *keepAudio,
		DownloadTimeout:   *downloadTimeout,
		ReferenceTimeout:  *refTimeout,
		TranscribeTimeout: *modelTimeout,
	}, m, resolver, resolver, opts...)

	summary, err := runner.Run(ctx, plan)
	if summary != nil {
		if werr := writeReport(*reportFile, summary); werr != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write report: %v\n", werr)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openLog creates <output>/logs/<name>_<time>.log.
func openLog(outputDir, name string) (*os.File, error) {
	dir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func writeReport(path string, summary *evaluation.Summary) error {
	if path == "" {
		return summary.WriteMarkdown(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := summary.WriteMarkdown(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
