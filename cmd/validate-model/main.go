package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

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
		model     = flag.String("model", "", "Registered model name ("+strings.Join(tester.Names(), ", ")+")")
		modelDir  = flag.String("model-dir", "", "Model directory for local models")
		language  = flag.String("lang", "en", "Model language")
		audio     = flag.String("audio", "", "Sample audio file")
		reference = flag.String("reference", "", "Reference transcript (default: the model's own output)")
		timeout   = flag.Duration("timeout", 10*time.Minute, "Transcription timeout")
	)
	flag.Var(&settings, "set", "Model setting key=value (repeatable)")
	flag.Parse()

	if *model == "" || *audio == "" {
		fmt.Fprintf(os.Stderr, "Error: -model and -audio are required\n\n")
		flag.PrintDefaults()
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	text, err := m.Transcribe(ctx, *audio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ref := *reference
	selfCheck := ref == ""
	if selfCheck {
		ref = text
	}

	result, err := m.Compare(text, ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(map[string]interface{}{
		"transcript": text,
		"result":     result,
	}, "", "    ")
	fmt.Println(string(out))

	if selfCheck && result.WER != 0 {
		fmt.Fprintf(os.Stderr, "Error: self comparison gave WER %.4f, want 0\n", result.WER)
		os.Exit(1)
	}
}
