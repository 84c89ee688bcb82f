// Package db defines the search engine contract consumed by the retrieval
// layer. Three query shapes exist: lexical multi-field text search, k-NN over
// a single dense vector field, and key-value hash reads (image-analysis
// cache). All queries support a hard-filter pre-filter expression.
package db

import (
	"context"
	"time"

	"github.com/homelens/homelens/internal/domain/filter"
)

// TextQuery is the input for BM25 lexical search over listing fields.
type TextQuery struct {
	IndexName string
	Query     string
	// FieldBoosts maps TEXT field name to its match weight, e.g.
	// {"description": 1.0, "feature_text": 2.0}.
	FieldBoosts  map[string]float64
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Store is the full search engine contract.
type Store interface {
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
