package types

import (
	"time"

	"github.com/google/uuid"
)

// OperationStatus tracks the lifecycle of an indexing run.
type OperationStatus string

const (
	StatusRunning   OperationStatus = "running"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
	StatusCancelled OperationStatus = "cancelled"
)

// IndexingResult records one indexing operation. It is created when the
// operation starts, mutated only by that operation, and finalized exactly
// once: status moves from running to a terminal state and never back.
type IndexingResult struct {
	OperationID string
	StartedAt   time.Time
	CompletedAt time.Time

	DocsProcessed       int
	DocsUpdated         int
	DocsSkipped         int
	ChunksCreated       int
	EmbeddingsGenerated int

	// Errors is the single channel for partial-failure reporting. Callers
	// must inspect it even when Status is completed: completed means the
	// loop finished, not that every document succeeded.
	Errors   []string
	Warnings []string

	Status OperationStatus
}

// NewIndexingResult starts tracking a new operation.
func NewIndexingResult() *IndexingResult {
	return &IndexingResult{
		OperationID: uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Status:      StatusRunning,
	}
}

// Finish finalizes the result. Finishing an already-terminal result is a
// no-op so the status transition stays one-way.
func (r *IndexingResult) Finish(status OperationStatus) {
	if r.Status != StatusRunning {
		return
	}
	r.CompletedAt = time.Now().UTC()
	r.Status = status
}

// Duration returns how long the operation has run, or zero if it never
// finished.
func (r *IndexingResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// SuccessRate returns processed / (processed + skipped).
func (r *IndexingResult) SuccessRate() float64 {
	total := r.DocsProcessed + r.DocsSkipped
	if total == 0 {
		return 0
	}
	return float64(r.DocsProcessed) / float64(total)
}

// SearchResult is a single ranked hit returned by the pipeline.
type SearchResult struct {
	Title    string
	Category Category
	Slug     string
	ChunkID  string

	Excerpt string
	Content string

	// Score is normalized to [0, 1] for both search modes.
	Score float64

	// Distance is the raw store distance; only set for semantic results.
	Distance float64

	// TermMatches counts distinct query terms matched; only set for
	// keyword results.
	TermMatches int

	URL         string
	Tags        []string
	PublishDate string
}
