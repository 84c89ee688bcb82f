package chi

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/filter"
	"github.com/homelens/homelens/internal/domain/query"
	"github.com/homelens/homelens/internal/domain/ranking"
	"github.com/homelens/homelens/internal/usecase/rank"
)

// Error codes returned in error responses.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeSearchUnavailable = "search_unavailable"
	codeRateLimited       = "rate_limited"
	codeUnauthorized      = "unauthorized"
	codeInternalError     = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the POST /v1/search request body.
type SearchRequest struct {
	Query string `json:"query"`
	Size  int    `json:"size,omitempty"`

	Filters *FilterExpression `json:"filters,omitempty"`

	// EnableSplitting defaults to true when omitted.
	EnableSplitting *bool `json:"enable_splitting,omitempty"`
	IncludeScoring  bool  `json:"include_scoring,omitempty"`
}

// FilterExpression is the wire form of hard filters.
type FilterExpression struct {
	Must    []FilterCondition `json:"must,omitempty"`
	MustNot []FilterCondition `json:"must_not,omitempty"`
}

// FilterCondition is one match or range condition.
type FilterCondition struct {
	Key   string       `json:"key"`
	Match *string      `json:"match,omitempty"`
	Range *RangeFilter `json:"range,omitempty"`
}

// RangeFilter is a numeric range with optional bounds.
type RangeFilter struct {
	Gt  *float64 `json:"gt,omitempty"`
	Gte *float64 `json:"gte,omitempty"`
	Lt  *float64 `json:"lt,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

// SearchResponse is the POST /v1/search response body.
type SearchResponse struct {
	QueryID string             `json:"query_id"`
	Items   []SearchResultItem `json:"items"`
	Total   int                `json:"total"`

	// Degraded lists retrieval strategies that failed for this query; results
	// were computed from the remaining ones.
	Degraded []string `json:"degraded,omitempty"`
}

// SearchResultItem is one ranked listing.
type SearchResultItem struct {
	ListingID string            `json:"listing_id"`
	Score     float64           `json:"score"`
	Scoring   *ScoringBreakdown `json:"scoring,omitempty"`
}

// ScoringBreakdown is the diagnostic view of one listing's score.
type ScoringBreakdown struct {
	RRFScore          float64        `json:"rrf_score"`
	BM25Rank          *int           `json:"bm25_rank"`
	TextRank          *int           `json:"text_knn_rank"`
	ImageRank         *int           `json:"image_knn_rank"`
	MatchedTags       []string       `json:"matched_tags,omitempty"`
	TagMatchRatio     float64        `json:"tag_match_ratio"`
	TagBoost          float64        `json:"tag_boost"`
	PrimaryImageBoost float64        `json:"primary_image_boost"`
	SelectedEvidence  []EvidenceItem `json:"selected_evidence,omitempty"`
}

// EvidenceItem is one diversified (sub-query, photo) assignment.
type EvidenceItem struct {
	SubQuery   int     `json:"sub_query"`
	Feature    string  `json:"feature"`
	ImageIndex int     `json:"image_index"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}

func requestFromDTO(req SearchRequest) (query.Request, error) {
	filters, err := filtersFromDTO(req.Filters)
	if err != nil {
		return query.Request{}, err
	}
	splitting := true
	if req.EnableSplitting != nil {
		splitting = *req.EnableSplitting
	}
	return query.New(req.Query, req.Size, filters, splitting, req.IncludeScoring)
}

func filtersFromDTO(f *FilterExpression) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}
	must, err := conditionsFromDTO(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromDTO(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, mustNot)
}

func conditionsFromDTO(cs []FilterCondition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromDTO(c FilterCondition) (filter.Condition, error) {
	if c.Match != nil && c.Range != nil {
		return filter.Condition{},
			fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
	}
	if c.Match != nil {
		cond, err := filter.NewMatch(c.Key, *c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	}
	if c.Range != nil {
		r, err := filter.NewRangeBounds(c.Range.Gt, c.Range.Gte, c.Range.Lt, c.Range.Lte)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, r)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	}
	return filter.Condition{}, errors.New("filter condition must have either match or range")
}

func responseToDTO(res rank.Result, includeScoring bool) SearchResponse {
	items := make([]SearchResultItem, len(res.Listings))
	for i := range res.Listings {
		items[i] = resultItemToDTO(&res.Listings[i], includeScoring)
	}
	return SearchResponse{
		QueryID:  uuid.NewString(),
		Items:    items,
		Total:    len(items),
		Degraded: res.Degraded,
	}
}

func resultItemToDTO(fr *ranking.FusedResult, includeScoring bool) SearchResultItem {
	item := SearchResultItem{
		ListingID: fr.ListingID,
		Score:     fr.FinalScore,
	}
	if !includeScoring {
		return item
	}
	item.Scoring = &ScoringBreakdown{
		RRFScore:          fr.RRFScore,
		BM25Rank:          fr.BM25Rank,
		TextRank:          fr.TextRank,
		ImageRank:         fr.ImageRank,
		MatchedTags:       tagsToStrings(fr.MatchedTags),
		TagMatchRatio:     fr.TagMatchRatio,
		TagBoost:          fr.TagBoost,
		PrimaryImageBoost: fr.FirstImageBoost,
		SelectedEvidence:  evidenceToDTO(fr.Evidence),
	}
	return item
}

func evidenceToDTO(evs []ranking.SelectedEvidence) []EvidenceItem {
	if len(evs) == 0 {
		return nil
	}
	out := make([]EvidenceItem, len(evs))
	for i, ev := range evs {
		out[i] = EvidenceItem{
			SubQuery:   ev.SubQuery,
			Feature:    string(ev.Feature),
			ImageIndex: ev.ImageIndex,
			URL:        ev.URL,
			Similarity: ev.Similarity,
		}
	}
	return out
}

func tagsToStrings(tags []feature.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
