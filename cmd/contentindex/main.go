package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/internal/pipeline"
	"github.com/jmorgan/contentindex/internal/storage"
	"github.com/jmorgan/contentindex/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `contentindex - content indexing and retrieval engine

Usage:
  contentindex [flags] <command> [command flags]

Commands:
  index    Index the content tree (or one document)
  search   Search the index
  stats    Show index and content statistics
  clear    Remove indexed rows
  health   Check database and embedding model health

Flags:
  -config path   Configuration file (default: conventional locations)
  -version       Print version information

Run "contentindex <command> -h" for command flags.
`

func main() {
	log.SetOutput(os.Stderr)

	configPath := flag.String("config", "", "configuration file path")
	showVersion := flag.Bool("version", false, "print version information")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *showVersion {
		fmt.Printf("contentindex\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args[0], args[1:]); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	switch command {
	case "index":
		return runIndex(ctx, cfg, args)
	case "search":
		return runSearch(ctx, cfg, args)
	case "stats":
		return runStats(ctx, cfg, args)
	case "clear":
		return runClear(ctx, cfg, args)
	case "health":
		return runHealth(ctx, cfg, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	if err := os.MkdirAll(cfg.Content.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating content root: %w", err)
	}
	return pipeline.NewFromConfig(cfg)
}

func runIndex(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	force := fs.Bool("force", false, "reindex documents even when unchanged")
	category := fs.String("category", "", "restrict indexing to one category")
	slug := fs.String("slug", "", "index a single document by slug (requires -category)")
	asJSON := fs.Bool("json", false, "emit the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	var result *types.IndexingResult
	if *slug != "" {
		if *category == "" {
			return fmt.Errorf("-slug requires -category")
		}
		result, err = p.IndexOne(ctx, types.Category(*category), *slug, *force)
	} else {
		log.Printf("Indexing content from %s...", cfg.Content.Root)
		result, err = p.IndexAll(ctx, *category, *force)
	}
	if result != nil {
		printIndexingResult(result, *asJSON)
	}
	return err
}

func printIndexingResult(r *types.IndexingResult, asJSON bool) {
	if asJSON {
		emitJSON(r)
		return
	}
	fmt.Printf("Operation %s: %s in %s\n", r.OperationID, r.Status, r.Duration().Round(1e6))
	fmt.Printf("  processed: %d  updated: %d  skipped: %d\n", r.DocsProcessed, r.DocsUpdated, r.DocsSkipped)
	fmt.Printf("  chunks: %d  embeddings: %d\n", r.ChunksCreated, r.EmbeddingsGenerated)
	for _, w := range r.Warnings {
		log.Printf("warning: %s", w)
	}
	for _, e := range r.Errors {
		log.Printf("error: %s", e)
	}
}

func runSearch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	mode := fs.String("mode", pipeline.ModeSemantic, "search mode: semantic, keyword or hybrid")
	limit := fs.Int("limit", 0, "maximum results (default from configuration)")
	category := fs.String("category", "", "restrict to one category")
	threshold := fs.Float64("threshold", -1, "similarity threshold override (default from configuration)")
	caseSensitive := fs.Bool("case-sensitive", false, "match keyword terms case sensitively")
	asJSON := fs.Bool("json", false, "emit results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("search requires a query")
	}
	query := fs.Arg(0)

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	opts := pipeline.NewSearchOptions()
	opts.Mode = *mode
	opts.Limit = *limit
	opts.Category = *category
	opts.Threshold = *threshold
	opts.CaseSensitive = *caseSensitive

	results, err := p.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	if *asJSON {
		emitJSON(results)
		return nil
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s (%s/%s)\n", i+1, r.Score, r.Title, r.Category, r.Slug)
		fmt.Printf("    %s\n", r.Excerpt)
		if r.URL != "" {
			fmt.Printf("    %s\n", r.URL)
		}
	}
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "emit statistics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	stats, err := p.Stats(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		emitJSON(stats)
		return nil
	}
	fmt.Printf("Index: %d chunks across %d documents (%.2f MB, model %s dim %d)\n",
		stats.Index.TotalChunks, stats.Index.TotalDocuments,
		stats.Index.DBSizeMB, stats.Index.ModelName, stats.Index.VectorDim)
	for name, cs := range stats.Index.Categories {
		fmt.Printf("  %-14s %d documents, %d chunks\n", name, cs.Documents, cs.Chunks)
	}
	fmt.Printf("Content tree: %d documents", stats.Content.TotalDocuments)
	if len(stats.Content.ErrorDirs) > 0 {
		fmt.Printf(" (%d unreadable)", len(stats.Content.ErrorDirs))
	}
	fmt.Println()
	if !stats.Index.LastIndexedAt.IsZero() {
		fmt.Printf("Last indexed: %s\n", stats.Index.LastIndexedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Printf("Database: %s\n", stats.DatabasePath)
	return nil
}

func runClear(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	category := fs.String("category", "", "clear only one category")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*yes {
		target := "the entire index"
		if *category != "" {
			target = fmt.Sprintf("category %q", *category)
		}
		fmt.Printf("This will remove %s. Continue? [y/N] ", target)
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	removed, err := p.Clear(ctx, *category)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d chunks.\n", removed)
	return nil
}

func runHealth(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "emit the health report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	h := p.Health(ctx)
	_ = p.Close()

	if *asJSON {
		emitJSON(h)
	} else {
		fmt.Printf("Healthy:         %v\n", h.Healthy)
		fmt.Printf("Database:        %v\n", h.Database)
		fmt.Printf("Embedding model: %v\n", h.EmbeddingModel)
		fmt.Printf("Sample search:   %v\n", h.SampleSearch)
		fmt.Printf("Indexed chunks:  %d\n", h.IndexedChunks)
		for _, note := range h.Notes {
			fmt.Printf("  note: %s\n", note)
		}
	}

	if !h.Healthy {
		os.Exit(1)
	}
	return nil
}

func emitJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("encoding output: %v", err)
	}
}
