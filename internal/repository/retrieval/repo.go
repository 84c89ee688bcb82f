// Package retrieval implements the three thin adapters over the search
// engine: lexical BM25, text-vector k-NN, and per-photo image-vector k-NN.
// Each adapter issues exactly one engine query; aggregation policy stays in
// the ranking core.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/homelens/homelens/internal/db"
	"github.com/homelens/homelens/internal/domain"
	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/filter"
	"github.com/homelens/homelens/internal/domain/ranking"
)

// Listing index field names, as written by ingestion.
const (
	fieldDescription = "description"
	fieldFeatureText = "feature_text"
	fieldTags        = "feature_tags"
	fieldDetected    = "detected_features"
	fieldPrimaryURL  = "primary_image_url"
)

// Image index field names.
const (
	fieldListingID = "listing_id"
	fieldURL       = "url"
	fieldPosition  = "position"
)

// Aggregated visual-feature text matches harder than prose; the vision model
// writes it in the query's vocabulary.
var lexicalBoosts = map[string]float64{
	fieldDescription: 1.0,
	fieldFeatureText: 2.0,
}

// store is the consumer interface for retrieval operations (ISP).
type store interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// fetchMetaConcurrency bounds the per-listing hash read fan-out.
const fetchMetaConcurrency = 8

// Repo implements the retrieval adapters over a db.Store.
type Repo struct {
	store store
}

// New creates a retrieval repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchLexical runs the BM25 multi-field adapter over the listing index.
func (r *Repo) SearchLexical(
	ctx context.Context, query string, filters filter.Expression, topK int,
) (ranking.Ranking, map[string]ranking.ListingMeta, error) {
	q := &db.TextQuery{
		IndexName:    domain.ListingIndex,
		Query:        query,
		FieldBoosts:  lexicalBoosts,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: []string{fieldTags, fieldDetected, fieldPrimaryURL},
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return ranking.Ranking{Strategy: ranking.StrategyBM25}, nil,
			fmt.Errorf("search lexical: %w", err)
	}

	rk, meta := parseListingResult(sr, ranking.StrategyBM25)
	return rk, meta, nil
}

// SearchTextKNN runs the text-vector adapter over the listing index.
func (r *Repo) SearchTextKNN(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) (ranking.Ranking, map[string]ranking.ListingMeta, error) {
	q := &db.KNNQuery{
		IndexName:    domain.ListingIndex,
		VectorField:  "vector",
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldTags, fieldDetected, fieldPrimaryURL},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return ranking.Ranking{Strategy: ranking.StrategyText}, nil,
			fmt.Errorf("search text knn: %w", err)
	}

	rk, meta := parseListingResult(sr, ranking.StrategyText)
	return rk, meta, nil
}

// SearchImages runs the image-vector adapter over the per-photo index and
// groups hits by listing, preserving the individual per-photo similarities.
// k is the photo-level K; one listing commonly owns 10-30 of the returned
// photos, so callers pass a fanned-out K.
func (r *Repo) SearchImages(
	ctx context.Context, vector []float32, filters filter.Expression, k int,
) (ranking.ImageMatches, error) {
	q := &db.KNNQuery{
		IndexName:    domain.ImageIndex,
		VectorField:  "vector",
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldListingID, fieldURL, fieldPosition},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search image knn: %w", err)
	}

	matches := make(ranking.ImageMatches)
	if sr == nil {
		return matches, nil
	}
	for _, entry := range sr.Entries {
		listingID := entry.Fields[fieldListingID]
		if listingID == "" {
			continue
		}
		pos := 0
		if p, err := strconv.Atoi(entry.Fields[fieldPosition]); err == nil {
			pos = p
		}
		matches[listingID] = append(matches[listingID], ranking.ImageHit{
			URL:        entry.Fields[fieldURL],
			Position:   pos,
			Similarity: entry.Score,
		})
	}
	return matches, nil
}

// FetchMeta reads listing meta fields directly from the listing hashes.
// Candidates that only the image strategy surfaced never pass through a
// listing-index query, so their tags and primary photo URL must be read here.
// Unknown listing IDs are omitted from the result.
func (r *Repo) FetchMeta(
	ctx context.Context, listingIDs []string,
) (map[string]ranking.ListingMeta, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}

	metas := make([]ranking.ListingMeta, len(listingIDs))
	found := make([]bool, len(listingIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchMetaConcurrency)
	for i, id := range listingIDs {
		i, id := i, id
		g.Go(func() error {
			fields, err := r.store.HGetAll(gctx, domain.KeyPrefix+"listing:"+id)
			if err != nil {
				return fmt.Errorf("fetch listing meta %s: %w", id, err)
			}
			if len(fields) == 0 {
				return nil
			}
			metas[i] = ranking.ListingMeta{
				Tags:             splitTags(fields[fieldTags]),
				DetectedFeatures: splitTags(fields[fieldDetected]),
				PrimaryImageURL:  fields[fieldPrimaryURL],
			}
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]ranking.ListingMeta, len(listingIDs))
	for i, id := range listingIDs {
		if found[i] {
			out[id] = metas[i]
		}
	}
	return out, nil
}

// parseListingResult converts a listing-index db.SearchResult into a Ranking
// plus per-listing meta. Hit order follows engine order.
func parseListingResult(
	sr *db.SearchResult, strategy ranking.Strategy,
) (ranking.Ranking, map[string]ranking.ListingMeta) {
	rk := ranking.Ranking{Strategy: strategy}
	if sr == nil || sr.Total == 0 {
		return rk, nil
	}

	meta := make(map[string]ranking.ListingMeta, len(sr.Entries))
	rk.Hits = make([]ranking.Hit, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, domain.KeyPrefix+"listing:")
		rk.Hits = append(rk.Hits, ranking.Hit{ListingID: id, Score: entry.Score})
		meta[id] = ranking.ListingMeta{
			Tags:             splitTags(entry.Fields[fieldTags]),
			DetectedFeatures: splitTags(entry.Fields[fieldDetected]),
			PrimaryImageURL:  entry.Fields[fieldPrimaryURL],
		}
	}
	return rk, meta
}

// splitTags parses a comma-separated TAG field into normalized feature tags.
func splitTags(s string) []feature.Tag {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]feature.Tag, 0, len(parts))
	for _, p := range parts {
		if t := feature.Normalize(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
