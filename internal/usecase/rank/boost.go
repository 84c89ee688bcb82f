package rank

import (
	"math"

	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/ranking"
	"github.com/homelens/homelens/internal/metrics"
)

// Tag boost tiers over the required-tag match ratio. The high tier starts at
// 2/3 so that matching two of three required tags lands on 1.5 rather than
// falling through to the partial tier.
const (
	tagBoostFull    = 2.0  // every required tag matched
	tagBoostHigh    = 1.5  // ratio >= tagHighMin
	tagBoostPartial = 1.25 // ratio >= 0.5
	tagBoostNone    = 1.0

	tagHighMin = 2.0 / 3.0
)

// Primary-image boost tiers over primary-photo similarity.
const (
	primaryBoostStrong    = 1.2 // similarity >= 0.75
	primaryBoostMild      = 1.1 // similarity >= 0.72
	primaryBoostNeutral   = 1.0
	primaryPenalty        = 0.7 // similarity < 0.60, only when the penalty tier is enabled
	primaryStrongMin      = 0.75
	primaryMildMin        = 0.72
	primaryPenaltyCeiling = 0.60
)

// tagMatch is the tag boost outcome for one listing.
type tagMatch struct {
	Matched []feature.Tag
	Ratio   float64
	Boost   float64
}

// matchTags computes the tag boost. Matching consults the structured tag field
// first and falls back to the broader detected-feature list, because the two
// are written by different ingestion stages and drift apart. A fallback hit is
// counted as a match and reported as a data-quality signal.
func matchTags(mustHave []feature.Tag, meta ranking.ListingMeta) tagMatch {
	if len(mustHave) == 0 {
		return tagMatch{Ratio: 0, Boost: tagBoostNone}
	}

	structured := tagSet(meta.Tags)
	detected := tagSet(meta.DetectedFeatures)

	var matched []feature.Tag
	diverged := false
	for _, tag := range mustHave {
		if _, ok := structured[tag]; ok {
			matched = append(matched, tag)
			continue
		}
		if _, ok := detected[tag]; ok {
			matched = append(matched, tag)
			diverged = true
		}
	}
	if diverged {
		metrics.TagDivergenceTotal.Inc()
	}

	ratio := float64(len(matched)) / float64(len(mustHave))
	return tagMatch{Matched: matched, Ratio: ratio, Boost: tagBoostFor(ratio)}
}

func tagBoostFor(ratio float64) float64 {
	switch {
	case ratio >= 1.0:
		return tagBoostFull
	case ratio >= tagHighMin:
		return tagBoostHigh
	case ratio >= 0.5:
		return tagBoostPartial
	default:
		return tagBoostNone
	}
}

// primaryBoost maps the query-to-primary-photo similarity to a multiplicative
// boost. The penalty tier punishes listings whose main exterior shot does not
// resemble the query at all; it is configuration-gated because it changes
// ordering for borderline listings.
func primaryBoost(similarity float64, penaltyEnabled bool) float64 {
	switch {
	case similarity >= primaryStrongMin:
		return primaryBoostStrong
	case similarity >= primaryMildMin:
		return primaryBoostMild
	case penaltyEnabled && similarity < primaryPenaltyCeiling:
		return primaryPenalty
	default:
		return primaryBoostNeutral
	}
}

// cosineSimilarity computes cosine similarity between two vectors. Mismatched
// dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tagSet(tags []feature.Tag) map[feature.Tag]struct{} {
	set := make(map[feature.Tag]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}
