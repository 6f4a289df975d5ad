package config

import "fmt"

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for values that would prevent the
// engine from starting. It returns all problems at once so callers can
// report them together.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	switch c.Embedding.Provider {
	case "ollama", "openai", "local":
	default:
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q (want ollama, openai or local)", c.Embedding.Provider),
		})
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}
	if c.Embedding.MaxSequenceLength < 1 {
		errs = append(errs, ValidationError{
			Field:   "embedding.max_sequence_length",
			Message: "max_sequence_length must be positive",
		})
	}

	if c.Chunking.ChunkSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "chunking.chunk_size",
			Message: "chunk_size must be positive",
		})
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		errs = append(errs, ValidationError{
			Field:   "chunking.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}
	if c.Chunking.MinChunkSize < 1 || c.Chunking.MinChunkSize > c.Chunking.ChunkSize {
		errs = append(errs, ValidationError{
			Field:   "chunking.min_chunk_size",
			Message: "min_chunk_size must be positive and no larger than chunk_size",
		})
	}
	switch c.Chunking.Strategy {
	case "simple", "recursive", "sections":
	default:
		errs = append(errs, ValidationError{
			Field:   "chunking.strategy",
			Message: fmt.Sprintf("unknown strategy %q (want simple, recursive or sections)", c.Chunking.Strategy),
		})
	}

	if c.Database.TableName == "" {
		errs = append(errs, ValidationError{
			Field:   "database.table_name",
			Message: "table_name is required",
		})
	}

	if len(c.Content.SupportedCategories) == 0 {
		errs = append(errs, ValidationError{
			Field:   "content.supported_categories",
			Message: "at least one category is required",
		})
	}
	switch c.Content.MarkdownConverter {
	case "goldmark", "plain":
	default:
		errs = append(errs, ValidationError{
			Field:   "content.markdown_converter",
			Message: fmt.Sprintf("unknown converter %q (want goldmark or plain)", c.Content.MarkdownConverter),
		})
	}

	if c.Processing.MaxWorkers < 1 {
		errs = append(errs, ValidationError{
			Field:   "processing.max_workers",
			Message: "max_workers must be positive",
		})
	}

	if c.Search.MaxDistance <= 0 {
		errs = append(errs, ValidationError{
			Field:   "search.max_distance",
			Message: "max_distance must be positive",
		})
	}
	if c.Search.SimilarityThreshold < 0 || c.Search.SimilarityThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "search.similarity_threshold",
			Message: "similarity_threshold must be between 0 and 1",
		})
	}

	return errs
}
