package query

import "github.com/homelens/homelens/internal/domain/feature"

// Aggregation is how a sub-query's per-image similarities fold into a score.
type Aggregation string

// Aggregation strategies.
const (
	// AggMax scores a sub-query by its single best image match.
	AggMax Aggregation = "max"
	// AggSum scores a sub-query by the sum over its image matches.
	AggSum Aggregation = "sum"
)

// Sub-query weights. Exterior-style features anchor the whole query, so their
// evidence counts double.
const (
	WeightDefault  = 1.0
	WeightExterior = 2.0
)

// SubQuery is one decomposed feature of a multi-feature query, with its own
// disambiguated text and embedding. Within a sub-query list every Feature is
// unique.
type SubQuery struct {
	Text      string
	Feature   feature.Tag
	Weight    float64
	Strategy  Aggregation
	Embedding []float32
}
