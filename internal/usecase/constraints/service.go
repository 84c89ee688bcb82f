// Package constraints turns raw query text into structured query constraints
// via the extraction LLM. Extraction never fails a search: the worst case is
// empty constraints and a general query type.
package constraints

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/filter"
	"github.com/homelens/homelens/internal/domain/query"
	"github.com/homelens/homelens/internal/metrics"
)

const systemPrompt = `You extract real-estate search constraints from a buyer query.
Respond with a single JSON object:
{
  "required_tags": ["lower_snake_case feature tags the buyer explicitly asked for"],
  "query_type": "visual_style" | "feature_list" | "general",
  "filters": {
    "price_min": number or null,
    "price_max": number or null,
    "beds_min": number or null,
    "baths_min": number or null
  }
}
Only list features the buyer stated. Do not invent tags. Use null for absent filters.`

// maxRequiredTags caps how many tags one extraction may produce; anything
// beyond it is noise from a runaway completion.
const maxRequiredTags = 10

// llmResponse is the untrusted wire schema of the extraction completion.
type llmResponse struct {
	RequiredTags []string `json:"required_tags"`
	QueryType    string   `json:"query_type"`
	Filters      struct {
		PriceMin *float64 `json:"price_min"`
		PriceMax *float64 `json:"price_max"`
		BedsMin  *float64 `json:"beds_min"`
		BathsMin *float64 `json:"baths_min"`
	} `json:"filters"`
}

// Service extracts query constraints, with an LRU cache in front of the LLM.
// Constraints are a pure function of query text, so cache entries never
// expire.
type Service struct {
	llm        LLM
	classifier *feature.Classifier
	cache      *lru.Cache[string, query.Constraints]
	backoff    time.Duration
	logger     *zap.Logger
}

// New creates a constraint extraction service.
func New(
	llm LLM, classifier *feature.Classifier,
	cacheSize int, backoff time.Duration, log *zap.Logger,
) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, query.Constraints](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("constraint cache: %w", err)
	}
	return &Service{
		llm:        llm,
		classifier: classifier,
		cache:      cache,
		backoff:    backoff,
		logger:     log,
	}, nil
}

// Extract derives constraints from the query text. On any upstream failure it
// retries once with backoff, then falls back to empty constraints. It never
// returns an error.
func (s *Service) Extract(ctx context.Context, queryText string) query.Constraints {
	if cached, ok := s.cache.Get(queryText); ok {
		metrics.ConstraintCacheTotal.WithLabelValues("hit").Inc()
		return cached
	}
	metrics.ConstraintCacheTotal.WithLabelValues("miss").Inc()

	cons, err := s.extractOnce(ctx, queryText)
	if err != nil {
		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			s.emitFailure(ctx, queryText, "cancelled", err)
			return query.EmptyConstraints()
		}
		cons, err = s.extractOnce(ctx, queryText)
	}
	if err != nil {
		s.emitFailure(ctx, queryText, "llm_failure", err)
		return query.EmptyConstraints()
	}

	s.cache.Add(queryText, cons)
	return cons
}

func (s *Service) extractOnce(ctx context.Context, queryText string) (query.Constraints, error) {
	raw, err := s.llm.Complete(ctx, "extract", systemPrompt, queryText)
	if err != nil {
		return query.Constraints{}, err
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return query.Constraints{}, fmt.Errorf("malformed extraction response: %w", err)
	}
	if len(resp.RequiredTags) > maxRequiredTags {
		resp.RequiredTags = resp.RequiredTags[:maxRequiredTags]
	}

	mustHave := make([]feature.Tag, 0, len(resp.RequiredTags))
	var unknown []feature.Tag
	seen := make(map[feature.Tag]struct{}, len(resp.RequiredTags))
	for _, raw := range resp.RequiredTags {
		tag := feature.Normalize(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		mustHave = append(mustHave, tag)
		// Unknown tags are kept and flagged, never dropped: downstream tag
		// matching still needs to see them.
		if !s.classifier.Known(tag) {
			unknown = append(unknown, tag)
		}
	}

	flt, err := buildFilters(resp)
	if err != nil {
		return query.Constraints{}, fmt.Errorf("extracted filters: %w", err)
	}

	return query.NewConstraints(mustHave, unknown, query.Type(resp.QueryType), flt), nil
}

func buildFilters(resp llmResponse) (filter.Expression, error) {
	var must []filter.Condition

	add := func(key string, gte, lte *float64) error {
		if gte == nil && lte == nil {
			return nil
		}
		r, err := filter.NewRangeBounds(nil, gte, nil, lte)
		if err != nil {
			return err
		}
		c, err := filter.NewRange(key, r)
		if err != nil {
			return err
		}
		must = append(must, c)
		return nil
	}

	f := resp.Filters
	if err := add("price", f.PriceMin, f.PriceMax); err != nil {
		return filter.Expression{}, err
	}
	if err := add("beds", f.BedsMin, nil); err != nil {
		return filter.Expression{}, err
	}
	if err := add("baths", f.BathsMin, nil); err != nil {
		return filter.Expression{}, err
	}

	return filter.NewExpression(must, nil)
}

// emitFailure logs a structured extraction-failure event. Search continues on
// the fallback path; the event exists for observability only.
func (s *Service) emitFailure(_ context.Context, queryText, reason string, err error) {
	metrics.ExtractionFailuresTotal.WithLabelValues(reason).Inc()
	s.logger.Warn("constraint_extraction_failed",
		zap.String("event_id", uuid.NewString()),
		zap.String("reason", reason),
		zap.Int("query_len", len(queryText)),
		zap.Error(err),
	)
}
