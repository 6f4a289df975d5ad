package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmorgan/contentindex/internal/config"
	"github.com/jmorgan/contentindex/internal/pipeline"
)

// End-to-end smoke check for the indexing pipeline. It builds a small
// content tree in a temp directory, indexes it with the deterministic
// local provider, and verifies that semantic search finds the rows.
func main() {
	fmt.Println("Testing embedding integration...")

	tmpDir, err := os.MkdirTemp("", "contentindex-test-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	docDir := filepath.Join(tmpDir, "content", "blog", "hello-world")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		log.Fatalf("Failed to create content tree: %v", err)
	}

	metadata := `title: "Hello World"
slug: hello-world
category: blog
status: published
author: Smoke Test
publish_date: "2025-01-01"
last_modified: "2025-01-01"
description: End to end smoke check document.
excerpt: Verifies the pipeline round trip.
reading_time: 1
word_count: 60
tags:
  - example
`
	body := `# Hello World

This post exists to verify the indexing pipeline end to end. It covers
loading, chunking, embedding, and storing a document, then searching
for it again.

The text is intentionally long enough to produce at least one chunk
after markdown conversion and whitespace normalization.
`
	if err := os.WriteFile(filepath.Join(docDir, "metadata.yaml"), []byte(metadata), 0o644); err != nil {
		log.Fatalf("Failed to write metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "body.md"), []byte(body), 0o644); err != nil {
		log.Fatalf("Failed to write body: %v", err)
	}

	cfg := config.Default()
	cfg.Content.Root = filepath.Join(tmpDir, "content")
	cfg.Content.MinContentLength = 50
	cfg.Database.Path = filepath.Join(tmpDir, "index.db")
	cfg.Embedding.Provider = "local"
	cfg.Processing.EnableCache = false
	cfg.Search.SimilarityThreshold = 0

	p, err := pipeline.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	result, err := p.IndexAll(ctx, "", false)
	if err != nil {
		log.Fatalf("Failed to index: %v", err)
	}

	fmt.Printf("\nIndexing Statistics:\n")
	fmt.Printf("  Docs Processed: %d\n", result.DocsProcessed)
	fmt.Printf("  Docs Skipped: %d\n", result.DocsSkipped)
	fmt.Printf("  Chunks Created: %d\n", result.ChunksCreated)
	fmt.Printf("  Embeddings Generated: %d\n", result.EmbeddingsGenerated)
	fmt.Printf("  Duration: %v\n", result.Duration())

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, msg := range result.Errors {
			fmt.Printf("  - %s\n", msg)
		}
	}

	results, err := p.SemanticSearch(ctx, "verify the indexing pipeline", 5, "")
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nVerification:\n")
	fmt.Printf("  Search results: %d\n", len(results))
	for _, r := range results {
		fmt.Printf("  [%.3f] %s %s\n", r.Score, r.ChunkID, r.URL)
	}

	if result.EmbeddingsGenerated > 0 && len(results) > 0 {
		fmt.Println("\nSUCCESS: documents were indexed and found again")
	} else {
		fmt.Println("\nFAILURE: index round trip produced no results")
		os.Exit(1)
	}
}
