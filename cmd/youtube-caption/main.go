package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"ytbench/internal/youtube"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		url        = flag.String("url", "", "YouTube video URL or ID")
		lang       = flag.String("lang", "en", "Reference transcript language")
		source     = flag.String("source", youtube.SourceManual, "Transcript source: manual, generated, any")
		format     = flag.String("format", "text", "Output format: text, json, srt, vtt")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		showInfo   = flag.Bool("info", false, "Show video info only")
		listLangs  = flag.Bool("list", false, "List available transcripts")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -url https://www.youtube.com/watch?v=xxx\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -url xxx -lang es -source any\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -url xxx -format srt -o output.srt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -url xxx -list\n", os.Args[0])
	}

	flag.Parse()

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Error: YouTube URL is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	validFormats := map[string]bool{"text": true, "json": true, "srt": true, "vtt": true}
	if !validFormats[*format] {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: text, json, srt, or vtt\n", *format)
		os.Exit(1)
	}
	switch *source {
	case youtube.SourceManual, youtube.SourceGenerated, youtube.SourceAny:
	default:
		fmt.Fprintf(os.Stderr, "Error: Invalid source '%s'. Must be: manual, generated, or any\n", *source)
		os.Exit(1)
	}

	ctx := context.Background()
	client := youtube.NewClient()

	if *verbose {
		fmt.Fprintf(os.Stderr, "Fetching video: %s\n", *url)
	}

	video, err := client.GetVideo(ctx, *url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to get video: %v\n", err)
		os.Exit(1)
	}

	if *showInfo {
		printVideoInfo(video)
		return
	}

	if *listLangs {
		printVideoInfo(video)
		printTranscripts(video)
		return
	}

	resolver := youtube.NewResolver(client)
	resolver.Source = *source
	track, err := resolver.Track(video, *lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Fetching transcript %s (generated: %v)...\n", track.LanguageCode, track.Generated())
	}

	result, err := client.FetchTrack(ctx, track)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to fetch transcript: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Fetched %d caption entries\n", len(result.Entries))
	}

	var output string
	switch *format {
	case "json":
		output, err = result.FormatAsJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to format JSON: %v\n", err)
			os.Exit(1)
		}
	case "srt":
		output = result.FormatAsSRT()
	case "vtt":
		output = result.FormatAsVTT()
	default:
		output = result.Transcript()
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

func printVideoInfo(video *youtube.VideoInfo) {
	fmt.Println("=== Video Info ===")
	fmt.Printf("Title:    %s\n", video.Title)
	fmt.Printf("Author:   %s\n", video.Author)
	fmt.Printf("Duration: %s\n", video.Duration)
	fmt.Printf("ID:       %s\n", video.ID)
}

func printTranscripts(video *youtube.VideoInfo) {
	generated, manual := video.Transcripts()
	fmt.Println("\n=== Available Transcripts ===")
	if len(generated) == 0 && len(manual) == 0 {
		fmt.Println("No transcripts available")
		return
	}
	fmt.Printf("Manual:    %s\n", strings.Join(manual, ", "))
	fmt.Printf("Generated: %s\n", strings.Join(generated, ", "))
}
