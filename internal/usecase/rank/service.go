// Package rank implements the query-time ranking pipeline: constraint
// extraction, optional query splitting, concurrent three-way retrieval,
// reciprocal rank fusion with adaptive constants, evidence diversification,
// and post-fusion boosting.
package rank

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/homelens/homelens/internal/domain"
	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/filter"
	"github.com/homelens/homelens/internal/domain/query"
	"github.com/homelens/homelens/internal/domain/ranking"
	"github.com/homelens/homelens/internal/logger"
	"github.com/homelens/homelens/internal/metrics"
)

// primaryBoostConcurrency bounds the image-cache fan-out while boosting.
const primaryBoostConcurrency = 8

// Config holds the pipeline tuning knobs.
type Config struct {
	// RetrievalDepth is the per-strategy candidate count.
	RetrievalDepth int
	// ImageFanout multiplies RetrievalDepth for the photo-level k-NN K, since
	// one listing owns many photos.
	ImageFanout int
	// PrimaryImagePenalty enables the low-similarity primary photo penalty
	// tier.
	PrimaryImagePenalty bool
}

// Service runs the ranking pipeline. It is stateless across queries.
type Service struct {
	retriever  Retriever
	embedder   domain.Embedder
	extractor  ConstraintExtractor
	splitter   Splitter
	images     ImageAnalysisCache
	classifier *feature.Classifier
	cfg        Config
	logger     *zap.Logger
}

// New creates the ranking service.
func New(
	retriever Retriever,
	embedder domain.Embedder,
	extractor ConstraintExtractor,
	splitter Splitter,
	images ImageAnalysisCache,
	classifier *feature.Classifier,
	cfg Config,
	log *zap.Logger,
) *Service {
	if cfg.RetrievalDepth <= 0 {
		cfg.RetrievalDepth = 100
	}
	if cfg.ImageFanout <= 0 {
		cfg.ImageFanout = 8
	}
	return &Service{
		retriever:  retriever,
		embedder:   embedder,
		extractor:  extractor,
		splitter:   splitter,
		images:     images,
		classifier: classifier,
		cfg:        cfg,
		logger:     log,
	}
}

// Result is one answered search: the ranked listings plus the names of any
// retrieval strategies that failed and were excluded from fusion.
type Result struct {
	Listings []ranking.FusedResult
	Degraded []string
}

// retrievalState collects the concurrent adapter outputs for one query.
type retrievalState struct {
	lexical     ranking.Ranking
	lexicalMeta map[string]ranking.ListingMeta
	lexicalErr  error

	text     ranking.Ranking
	textMeta map[string]ranking.ListingMeta
	textErr  error

	// perSub holds one ImageMatches per sub-query on the split path; unsplit
	// holds the single-vector matches otherwise.
	perSub   []ranking.ImageMatches
	unsplit  ranking.ImageMatches
	imageErr error
}

// Search answers one query. Individual upstream failures degrade the result;
// only the loss of all three retrieval strategies is an error.
func (s *Service) Search(ctx context.Context, req query.Request) (Result, error) {
	start := time.Now()

	cons := s.extractor.Extract(ctx, req.Query())
	filters := mergeFilters(req, cons)

	primary, embErr := s.embedder.Embed(ctx, req.Query())
	if embErr != nil {
		s.logger.Warn("query_embedding_failed", zap.Error(embErr))
	}

	subs := s.splitQuery(ctx, req, cons, embErr)

	st := s.retrieve(ctx, req, filters, primary.Embedding, embErr, subs)

	degraded := degradedStrategies(st, embErr)
	if len(degraded) == 3 {
		return Result{}, domain.ErrSearchUnavailable
	}
	if len(degraded) > 0 {
		metrics.DegradedQueriesTotal.WithLabelValues(strings.Join(degraded, ",")).Inc()
	}

	k := adaptiveK(len(cons.MustHave()))
	imageRank, evidence := s.imageRanking(subs, st, k)

	visual, text, hybrid := s.classifier.Counts(cons.MustHave())
	w := adaptiveWeights(visual, text, hybrid)

	fused := fuse(st.lexical, st.text, imageRank, w)
	meta := mergeMeta(st.lexicalMeta, st.textMeta)
	s.fillMissingMeta(ctx, fused, meta)

	for i := range fused {
		fr := &fused[i]
		fr.Evidence = evidence[fr.ListingID]
		tm := matchTags(cons.MustHave(), meta[fr.ListingID])
		fr.MatchedTags = tm.Matched
		fr.TagMatchRatio = tm.Ratio
		fr.TagBoost = tm.Boost
		fr.FirstImageBoost = primaryBoostNeutral
	}
	if embErr == nil {
		s.applyPrimaryBoosts(ctx, fused, meta, primary.Embedding)
	}

	for i := range fused {
		fused[i].FinalScore = fused[i].RRFScore * fused[i].TagBoost * fused[i].FirstImageBoost
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FinalScore != fused[j].FinalScore {
			return fused[i].FinalScore > fused[j].FinalScore
		}
		return fused[i].ListingID < fused[j].ListingID
	})
	if len(fused) > req.Size() {
		fused = fused[:req.Size()]
	}

	logger.FromContext(ctx).Debug("search_ranked",
		zap.Int("candidates", len(meta)),
		zap.Int("results", len(fused)),
		zap.Int("sub_queries", len(subs)),
		zap.Strings("degraded", degraded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return Result{Listings: fused, Degraded: degraded}, nil
}

// splitQuery runs decomposition when the request and constraints allow it.
// Any splitting failure falls back to the unsplit query path.
func (s *Service) splitQuery(
	ctx context.Context, req query.Request, cons query.Constraints, embErr error,
) []query.SubQuery {
	if embErr != nil || !req.EnableSplitting() || len(cons.MustHave()) < 2 {
		return nil
	}
	subs, err := s.splitter.Split(ctx, req.Query(), cons.MustHave())
	if err != nil {
		s.logger.Warn("query_split_failed", zap.Error(err))
		return nil
	}
	return subs
}

// retrieve runs the three adapters concurrently. Adapter failures are recorded
// in the state, never returned; fusion treats a failed strategy as empty.
func (s *Service) retrieve(
	ctx context.Context,
	req query.Request,
	filters mergedFilters,
	primaryVec []float32,
	embErr error,
	subs []query.SubQuery,
) *retrievalState {
	st := &retrievalState{
		lexical: ranking.Ranking{Strategy: ranking.StrategyBM25},
		text:    ranking.Ranking{Strategy: ranking.StrategyText},
	}
	depth := s.cfg.RetrievalDepth
	imageK := depth * s.cfg.ImageFanout

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer observeRetrieval(ranking.StrategyBM25, time.Now())
		st.lexical, st.lexicalMeta, st.lexicalErr = s.retriever.SearchLexical(
			gctx, req.Query(), filters.listing, depth)
		s.noteAdapterErr(ranking.StrategyBM25, st.lexicalErr)
		return nil
	})

	if embErr == nil {
		g.Go(func() error {
			defer observeRetrieval(ranking.StrategyText, time.Now())
			st.text, st.textMeta, st.textErr = s.retriever.SearchTextKNN(
				gctx, primaryVec, filters.listing, depth)
			s.noteAdapterErr(ranking.StrategyText, st.textErr)
			return nil
		})

		g.Go(func() error {
			defer observeRetrieval(ranking.StrategyImage, time.Now())
			st.imageErr = s.searchImages(gctx, st, primaryVec, filters, imageK, subs)
			s.noteAdapterErr(ranking.StrategyImage, st.imageErr)
			return nil
		})
	}

	// Adapter errors live in st; the goroutines themselves never fail.
	_ = g.Wait()
	return st
}

// searchImages issues the photo-level k-NN calls: one per sub-query on the
// split path, one otherwise. A failed sub-query call fails the whole image
// strategy; partial image rankings would bias diversification.
func (s *Service) searchImages(
	ctx context.Context,
	st *retrievalState,
	primaryVec []float32,
	filters mergedFilters,
	imageK int,
	subs []query.SubQuery,
) error {
	if len(subs) == 0 {
		matches, err := s.retriever.SearchImages(ctx, primaryVec, filters.image, imageK)
		if err != nil {
			return err
		}
		st.unsplit = matches
		return nil
	}

	st.perSub = make([]ranking.ImageMatches, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(subs))
	for i := range subs {
		i := i
		g.Go(func() error {
			matches, err := s.retriever.SearchImages(gctx, subs[i].Embedding, filters.image, imageK)
			if err != nil {
				return err
			}
			st.perSub[i] = matches
			return nil
		})
	}
	return g.Wait()
}

// imageRanking folds per-photo matches into one listing-level ranking, scored
// by diversified weighted evidence on the split path or a plain top-K sum
// otherwise.
func (s *Service) imageRanking(
	subs []query.SubQuery, st *retrievalState, k int,
) (ranking.Ranking, map[string][]ranking.SelectedEvidence) {
	rank := ranking.Ranking{Strategy: ranking.StrategyImage}
	evidence := make(map[string][]ranking.SelectedEvidence)

	if len(subs) > 0 {
		for listingID, cands := range mergeCandidates(st.perSub) {
			score, ev := diversify(subs, cands, k)
			rank.Hits = append(rank.Hits, ranking.Hit{ListingID: listingID, Score: score})
			evidence[listingID] = ev
		}
	} else {
		for listingID, hits := range st.unsplit {
			rank.Hits = append(rank.Hits, ranking.Hit{
				ListingID: listingID,
				Score:     topKSum(hits, k),
			})
		}
	}

	sort.Slice(rank.Hits, func(i, j int) bool {
		if rank.Hits[i].Score != rank.Hits[j].Score {
			return rank.Hits[i].Score > rank.Hits[j].Score
		}
		return rank.Hits[i].ListingID < rank.Hits[j].ListingID
	})
	return rank, evidence
}

// applyPrimaryBoosts reads each candidate's primary photo embedding from the
// image-analysis cache and sets the primary-image boost. Cache misses and
// cache failures leave the boost neutral.
func (s *Service) applyPrimaryBoosts(
	ctx context.Context,
	fused []ranking.FusedResult,
	meta map[string]ranking.ListingMeta,
	primaryVec []float32,
) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(primaryBoostConcurrency)
	for i := range fused {
		i := i
		url := meta[fused[i].ListingID].PrimaryImageURL
		if url == "" {
			continue
		}
		g.Go(func() error {
			analysis, err := s.images.Get(gctx, url)
			if err != nil {
				if !errors.Is(err, domain.ErrCacheMiss) {
					s.logger.Debug("primary_image_lookup_failed",
						zap.String("listing_id", fused[i].ListingID), zap.Error(err))
				}
				return nil
			}
			sim := cosineSimilarity(primaryVec, analysis.Embedding)
			fused[i].FirstImageBoost = primaryBoost(sim, s.cfg.PrimaryImagePenalty)
			return nil
		})
	}
	_ = g.Wait()
}

// mergedFilters carries the hard filters per index. The image index has no
// listing-level numeric fields, so hard filters only pre-filter the listing
// index; numeric constraints are enforced by the listing strategies.
type mergedFilters struct {
	listing filter.Expression
	image   filter.Expression
}

func mergeFilters(req query.Request, cons query.Constraints) mergedFilters {
	return mergedFilters{
		listing: filter.Merge(req.Filters(), cons.Filters()),
	}
}

// fillMissingMeta backfills meta for fused candidates no listing-index query
// returned, which happens when only the image strategy surfaced a listing.
// Without the backfill those listings could never earn a tag or primary-image
// boost. A failed backfill leaves the boosts neutral.
func (s *Service) fillMissingMeta(
	ctx context.Context, fused []ranking.FusedResult, meta map[string]ranking.ListingMeta,
) {
	var missing []string
	for i := range fused {
		if _, ok := meta[fused[i].ListingID]; !ok {
			missing = append(missing, fused[i].ListingID)
		}
	}
	if len(missing) == 0 {
		return
	}

	fetched, err := s.retriever.FetchMeta(ctx, missing)
	if err != nil {
		s.logger.Warn("listing_meta_backfill_failed",
			zap.Int("listings", len(missing)), zap.Error(err))
		return
	}
	for id, m := range fetched {
		meta[id] = m
	}
}

func mergeMeta(a, b map[string]ranking.ListingMeta) map[string]ranking.ListingMeta {
	merged := make(map[string]ranking.ListingMeta, len(a)+len(b))
	for id, m := range b {
		merged[id] = m
	}
	for id, m := range a {
		merged[id] = m
	}
	return merged
}

func degradedStrategies(st *retrievalState, embErr error) []string {
	var down []string
	if st.lexicalErr != nil {
		down = append(down, string(ranking.StrategyBM25))
	}
	if embErr != nil || st.textErr != nil {
		down = append(down, string(ranking.StrategyText))
	}
	if embErr != nil || st.imageErr != nil {
		down = append(down, string(ranking.StrategyImage))
	}
	return down
}

func observeRetrieval(strategy ranking.Strategy, start time.Time) {
	metrics.RetrievalDuration.WithLabelValues(string(strategy)).
		Observe(time.Since(start).Seconds())
}

func (s *Service) noteAdapterErr(strategy ranking.Strategy, err error) {
	if err == nil {
		return
	}
	metrics.RetrievalErrorsTotal.WithLabelValues(string(strategy)).Inc()
	s.logger.Warn("retrieval_strategy_failed",
		zap.String("strategy", string(strategy)), zap.Error(err))
}
