// Package embedder turns chunk text into embedding vectors.
//
// A Provider speaks to one backend: an Ollama server, the OpenAI API,
// or a deterministic offline generator used in tests and air-gapped
// setups. The Generator wraps whichever provider configuration selects
// and adds the behavior every backend needs the same way: LRU caching
// keyed by model and content hash (optionally persisted to disk),
// sentence-aware input truncation, fixed-size request batching, and
// skip-with-index-reporting for empty inputs so batch callers always
// know which texts produced vectors.
//
// Remote providers retry with exponential backoff and honor context
// cancellation between attempts.
package embedder
