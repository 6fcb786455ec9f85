package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ytbench/internal/asr"
	"ytbench/internal/tester"
	_ "ytbench/internal/tester/gcloud"
	_ "ytbench/internal/tester/openai"
	_ "ytbench/internal/tester/sherpa"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var settings tester.SettingsFlag
	var (
		inputFile  = flag.String("i", "", "Input audio file")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		format     = flag.String("format", "text", "Output format: text, json, srt (json and srt need a sherpa model)")
		model      = flag.String("model", "dummy", "Registered model name ("+strings.Join(tester.Names(), ", ")+")")
		modelDir   = flag.String("model-dir", "", "Model directory for local models")
		language   = flag.String("lang", "en", "Transcription language")
		timeout    = flag.Duration("timeout", 30*time.Minute, "Transcription timeout")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Var(&settings, "set", "Model setting key=value (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i audio.m4a -model openai-whisper\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.m4a -model sherpa-whisper -model-dir models/whisper-tiny.en -set threads=4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.m4a -model sherpa-transducer -model-dir models/zipformer -format srt -o subtitles.srt\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: Input file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", *inputFile)
		os.Exit(1)
	}
	if !asr.IsSupportedFormat(*inputFile) {
		fmt.Fprintf(os.Stderr, "Error: Unsupported audio format: %s\n", *inputFile)
		os.Exit(1)
	}
	if *format != "text" && *format != "json" && *format != "srt" {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: text, json, or srt\n", *format)
		os.Exit(1)
	}

	parsed, err := tester.ParseSettings(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var output string
	if *format == "text" {
		output, err = transcribeText(ctx, *model, tester.Options{Language: *language, ModelDir: *modelDir, Settings: parsed}, *inputFile, *verbose)
	} else {
		output, err = transcribeTimed(ctx, *model, *modelDir, *language, *format, *inputFile, *verbose)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Output written to: %s\n", *outputFile)
		}
	} else {
		fmt.Println(output)
	}
}

// transcribeText runs any registered model.
func transcribeText(ctx context.Context, name string, opts tester.Options, input string, verbose bool) (string, error) {
	if verbose {
		fmt.Fprintf(os.Stderr, "Loading model: %s\n", name)
	}
	m, err := tester.New(name, opts)
	if err != nil {
		return "", err
	}
	defer m.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Transcribing: %s\n", input)
	}
	start := time.Now()
	text, err := m.Transcribe(ctx, input)
	if err != nil {
		return "", err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Transcription completed in %.2f seconds\n", time.Since(start).Seconds())
	}
	return text, nil
}

// transcribeTimed uses the local recognizer directly because only it
// reports token timestamps.
func transcribeTimed(ctx context.Context, name, modelDir, language, format, input string, verbose bool) (string, error) {
	family, ok := strings.CutPrefix(name, "sherpa-")
	if !ok {
		return "", fmt.Errorf("format %s is only available for sherpa models", format)
	}
	config, err := asr.NewConfig(asr.Family(family), modelDir)
	if err != nil {
		return "", fmt.Errorf("failed to load model config: %w", err)
	}
	if config.Family != asr.FamilyTransducer {
		config.Language = language
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Creating recognizer from %s...\n", modelDir)
	}
	recognizer, err := asr.NewRecognizer(config)
	if err != nil {
		return "", fmt.Errorf("failed to create recognizer: %w", err)
	}
	defer recognizer.Close()

	var progress asr.ProgressCallback
	if verbose {
		progress = func(percent int, step string) {
			fmt.Fprintf(os.Stderr, "\r%3d%% %s", percent, step)
		}
	}
	result, err := recognizer.TranscribeFile(ctx, input, progress)
	if verbose {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Transcription completed in %.2f seconds (RTF %.3f)\n", result.Duration, result.RealTimeFactor())
	}

	if format == "json" {
		return result.FormatAsJSON()
	}
	return result.FormatAsSRT(), nil
}
