package rank

import (
	"context"

	"github.com/homelens/homelens/internal/domain"
	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/filter"
	"github.com/homelens/homelens/internal/domain/query"
	"github.com/homelens/homelens/internal/domain/ranking"
)

// Retriever is the consumer interface over the three retrieval adapters.
type Retriever interface {
	SearchLexical(ctx context.Context, queryText string, filters filter.Expression, topK int) (ranking.Ranking, map[string]ranking.ListingMeta, error)
	SearchTextKNN(ctx context.Context, vector []float32, filters filter.Expression, topK int) (ranking.Ranking, map[string]ranking.ListingMeta, error)
	SearchImages(ctx context.Context, vector []float32, filters filter.Expression, k int) (ranking.ImageMatches, error)
	FetchMeta(ctx context.Context, listingIDs []string) (map[string]ranking.ListingMeta, error)
}

// ConstraintExtractor derives structured constraints from query text. It never
// fails; the worst case is empty constraints.
type ConstraintExtractor interface {
	Extract(ctx context.Context, queryText string) query.Constraints
}

// Splitter decomposes a multi-feature query into embedded sub-queries.
type Splitter interface {
	Split(ctx context.Context, queryText string, tags []feature.Tag) ([]query.SubQuery, error)
}

// ImageAnalysisCache reads precomputed photo embeddings by URL.
type ImageAnalysisCache interface {
	Get(ctx context.Context, imageURL string) (domain.ImageAnalysis, error)
}
