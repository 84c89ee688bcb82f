// Package ranking holds the retrieval-time and fusion-time value types that
// flow through the ranking pipeline. Nothing here mutates listing data: every
// score is computed on copies, so the pipeline stays a pure function of the
// query, the candidate set, and the external rankings.
package ranking

import "github.com/homelens/homelens/internal/domain/feature"

// Strategy identifies one retrieval signal.
type Strategy string

// Retrieval strategies.
const (
	StrategyBM25  Strategy = "bm25"
	StrategyText  Strategy = "text_knn"
	StrategyImage Strategy = "image_knn"
)

// Hit is one entry of a retrieval ranking.
type Hit struct {
	ListingID string
	Score     float64
}

// Ranking is an ordered result list from one retrieval strategy.
// Position is 1-based rank; an empty ranking means the strategy found nothing
// or failed (fusion treats both the same).
type Ranking struct {
	Strategy Strategy
	Hits     []Hit
}

// Positions returns a listing-id → 1-based-rank map.
func (r Ranking) Positions() map[string]int {
	pos := make(map[string]int, len(r.Hits))
	for i, h := range r.Hits {
		pos[h.ListingID] = i + 1
	}
	return pos
}

// ImageHit is one photo match from the image index with its similarity to a
// query (or sub-query) embedding.
type ImageHit struct {
	URL        string
	Position   int // photo position within the listing; 0 is the primary shot
	Similarity float64
}

// ImageMatches groups per-photo hits by listing id for a single query vector.
type ImageMatches map[string][]ImageHit

// ListingMeta is the read-only slice of indexed listing fields the ranking
// pipeline needs for boosting: the structured tag field, the broader
// detected-feature list, and the primary photo URL. The two tag sources may
// diverge; boosting defends against that.
type ListingMeta struct {
	Tags             []feature.Tag
	DetectedFeatures []feature.Tag
	PrimaryImageURL  string
}

// SelectedEvidence records one diversified (sub-query, photo) assignment.
type SelectedEvidence struct {
	SubQuery   int // index into the sub-query list
	Feature    feature.Tag
	ImageIndex int // index into the listing's candidate photo list
	URL        string
	Similarity float64
}

// FusedResult is the per-listing output of fusion and boosting. Immutable
// once ranked; lives only for the duration of one query response.
type FusedResult struct {
	ListingID string
	RRFScore  float64

	// Per-strategy 1-based ranks; nil when the listing was absent from that
	// strategy's ranking.
	BM25Rank  *int
	TextRank  *int
	ImageRank *int

	MatchedTags     []feature.Tag
	TagMatchRatio   float64
	TagBoost        float64
	FirstImageBoost float64
	Evidence        []SelectedEvidence

	// FinalScore = RRFScore × TagBoost × FirstImageBoost.
	FinalScore float64
}
