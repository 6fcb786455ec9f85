package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ytbench/internal/config"
	"ytbench/internal/generator"
	"ytbench/internal/models"
	"ytbench/internal/testplan"
	"ytbench/internal/youtube"

	"google.golang.org/api/option"
)

func main() {
	cfg := config.Load()

	var (
		maxResults = flag.Int("n", 5, "Number of videos (maxResults)")
		outputDir  = flag.String("o", "testplans", "Destination directory")
		language   = flag.String("l", "en", "Relevance language")
		categoryID = flag.String("c", "", "Video category ID")
		topicID    = flag.String("t", "", "Topic ID")
		region     = flag.String("r", "US", "Region code")
		duration   = flag.String("d", "medium", "Video duration: any, long, medium, short")
		license    = flag.String("license", "any", "Video license: any, creativeCommon, youtube")
		query      = flag.String("q", "", "Query term (default: category title)")
		pageToken  = flag.String("pt", "", "Page token")
		listCats   = flag.Bool("categories", false, "List assignable categories and exit")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -categories -l en -r US\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -n 10 -c 25 -o testplans\n", os.Args[0])
	}

	flag.Parse()

	if cfg.GoogleAPIKey == "" {
		fmt.Fprintf(os.Stderr, "Error: GOOGLE_API_KEY is not set\n")
		os.Exit(1)
	}

	ctx := context.Background()
	gen, err := generator.New(ctx, youtube.NewClient(), option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *listCats {
		if err := printCategories(ctx, gen, *language, *region); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *categoryID == "" {
		fmt.Fprintf(os.Stderr, "Error: Video category is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *maxResults <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -n must be positive\n")
		os.Exit(1)
	}
	switch *duration {
	case "any", "long", "medium", "short":
	default:
		fmt.Fprintf(os.Stderr, "Error: Invalid duration '%s'. Must be: any, long, medium, or short\n", *duration)
		os.Exit(1)
	}

	category, err := gen.CategoryTitle(ctx, *categoryID, *language, *region)
	if err != nil {
		if errors.Is(err, generator.ErrCategoryNotAssignable) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			_ = printCategories(ctx, gen, *language, *region)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	args := models.Args{
		MaxResults:        *maxResults,
		Q:                 *query,
		RegionCode:        *region,
		RelevanceLanguage: *language,
		VideoCategoryID:   *categoryID,
		VideoDuration:     *duration,
		VideoLicense:      *license,
	}
	if *pageToken != "" {
		args.PageToken = pageToken
	}
	if *topicID != "" {
		args.TopicID = topicID
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Searching: %+v\n", args)
	}

	plan, err := gen.Generate(ctx, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(*outputDir, generator.FileName(category, *language, args.PageToken, time.Now()))
	if err := testplan.Write(path, plan); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s (%d videos)\n", path, len(plan.Items))
}

func printCategories(ctx context.Context, gen *generator.Generator, hl, region string) error {
	categories, err := gen.Categories(ctx, hl, region)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(categories))
	for id := range categories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	fmt.Fprintln(os.Stderr, "Assignable categories:")
	for _, id := range ids {
		fmt.Fprintf(os.Stderr, "  %3s  %s\n", id, categories[id])
	}
	return nil
}
