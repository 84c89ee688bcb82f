package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ImageAnalysis is one entry of the content-addressable image-analysis cache:
// the photo's embedding plus the vision model's textual analysis. Populated by
// the ingestion pipeline; this service only reads it.
type ImageAnalysis struct {
	Embedding []float32
	Analysis  string
	Model     string
}
