// Package split decomposes a multi-feature query into weighted sub-queries,
// each with its own context-disambiguated text and embedding.
package split

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/homelens/homelens/internal/domain"
	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/query"
)

const systemPrompt = `You decompose a real-estate search query into one natural-language
sub-query per requested feature. Respond with a single JSON object:
{
  "sub_queries": [
    {"tag": "the feature tag, unchanged", "text": "a short phrase describing only that feature"}
  ]
}
Disambiguate each phrase with its context: exterior features mention the house
facade, countertop and appliance features mention the kitchen, flooring
features mention interior rooms. Produce exactly one entry per tag given.`

// Service builds sub-queries via the decomposition LLM and embeds them
// concurrently. Any upstream failure is returned to the caller, which falls
// back to ranking on the whole-query embedding alone.
type Service struct {
	llm        LLM
	embedder   domain.Embedder
	classifier *feature.Classifier
	maxSubs    int
	logger     *zap.Logger
}

// New creates a query splitting service. maxSubs caps the sub-query list.
func New(llm LLM, embedder domain.Embedder, classifier *feature.Classifier, maxSubs int, log *zap.Logger) *Service {
	if maxSubs <= 0 {
		maxSubs = 5
	}
	return &Service{
		llm:        llm,
		embedder:   embedder,
		classifier: classifier,
		maxSubs:    maxSubs,
		logger:     log,
	}
}

// llmResponse is the untrusted wire schema of the decomposition completion.
type llmResponse struct {
	SubQueries []struct {
		Tag  string `json:"tag"`
		Text string `json:"text"`
	} `json:"sub_queries"`
}

// Split decomposes queryText into one sub-query per tag and embeds each one.
// The caller must pass at least two tags. On error the caller keeps the
// unsplit query path.
func (s *Service) Split(ctx context.Context, queryText string, tags []feature.Tag) ([]query.SubQuery, error) {
	if len(tags) < 2 {
		return nil, fmt.Errorf("split needs at least 2 tags, got %d", len(tags))
	}
	if len(tags) > s.maxSubs {
		tags = tags[:s.maxSubs]
	}

	start := time.Now()
	subs, err := s.propose(ctx, queryText, tags)
	if err != nil {
		return nil, err
	}
	if err := s.embedAll(ctx, subs); err != nil {
		return nil, err
	}

	s.logger.Debug("query_split",
		zap.Int("sub_queries", len(subs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return subs, nil
}

func (s *Service) propose(ctx context.Context, queryText string, tags []feature.Tag) ([]query.SubQuery, error) {
	user := fmt.Sprintf("Query: %s\nTags: %s", queryText, joinTags(tags))
	raw, err := s.llm.Complete(ctx, "split", systemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("decomposition: %w", err)
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("malformed decomposition response: %w", err)
	}

	// Texts are keyed back to the requested tags; anything the model added or
	// renamed is dropped.
	texts := make(map[feature.Tag]string, len(resp.SubQueries))
	for _, sq := range resp.SubQueries {
		tag := feature.Normalize(sq.Tag)
		if sq.Text == "" {
			continue
		}
		if _, dup := texts[tag]; dup {
			continue
		}
		texts[tag] = sq.Text
	}

	subs := make([]query.SubQuery, 0, len(tags))
	for _, tag := range tags {
		text, ok := texts[tag]
		if !ok {
			return nil, fmt.Errorf("decomposition missing sub-query for tag %q", tag)
		}
		weight := query.WeightDefault
		if s.classifier.IsExteriorStyle(tag) {
			weight = query.WeightExterior
		}
		subs = append(subs, query.SubQuery{
			Text:     text,
			Feature:  tag,
			Weight:   weight,
			Strategy: query.AggMax,
		})
	}
	return subs, nil
}

// embedAll issues one embedding call per sub-query in parallel, bounded at the
// sub-query count, so splitting adds about one embedding round-trip.
func (s *Service) embedAll(ctx context.Context, subs []query.SubQuery) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(subs))
	for i := range subs {
		i := i
		g.Go(func() error {
			res, err := s.embedder.Embed(gctx, subs[i].Text)
			if err != nil {
				return fmt.Errorf("embed sub-query %q: %w", subs[i].Feature, err)
			}
			subs[i].Embedding = res.Embedding
			return nil
		})
	}
	return g.Wait()
}

func joinTags(tags []feature.Tag) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ", "
		}
		out += string(t)
	}
	return out
}
