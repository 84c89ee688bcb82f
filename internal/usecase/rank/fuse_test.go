package rank

import (
	"testing"

	"github.com/homelens/homelens/internal/domain/ranking"
)

func rankingOf(strategy ranking.Strategy, ids ...string) ranking.Ranking {
	r := ranking.Ranking{Strategy: strategy}
	for i, id := range ids {
		r.Hits = append(r.Hits, ranking.Hit{ListingID: id, Score: float64(len(ids) - i)})
	}
	return r
}

func findFused(t *testing.T, fused []ranking.FusedResult, id string) ranking.FusedResult {
	t.Helper()
	for _, fr := range fused {
		if fr.ListingID == id {
			return fr
		}
	}
	t.Fatalf("listing %q not in fused results", id)
	return ranking.FusedResult{}
}

func TestFuse_SumsReciprocalRanks(t *testing.T) {
	bm25 := rankingOf(ranking.StrategyBM25, "a", "b")
	text := rankingOf(ranking.StrategyText, "b", "a")
	image := rankingOf(ranking.StrategyImage, "a")
	w := weightsBalanced

	fused := fuse(bm25, text, image, w)

	a := findFused(t, fused, "a")
	wantA := 1/(55.0+1) + 1/(55.0+2) + 1/(55.0+1)
	if diff := a.RRFScore - wantA; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("a.RRFScore = %v, want %v", a.RRFScore, wantA)
	}
	if a.BM25Rank == nil || *a.BM25Rank != 1 {
		t.Errorf("a.BM25Rank = %v, want 1", a.BM25Rank)
	}
	if a.ImageRank == nil || *a.ImageRank != 1 {
		t.Errorf("a.ImageRank = %v, want 1", a.ImageRank)
	}

	b := findFused(t, fused, "b")
	if b.ImageRank != nil {
		t.Errorf("b.ImageRank = %v, want nil (absent from image ranking)", *b.ImageRank)
	}
}

func TestFuse_MorePresenceScoresHigher(t *testing.T) {
	// a and b share the same rank everywhere they appear; a appears in one
	// more ranking, so its score must strictly exceed b's.
	bm25 := rankingOf(ranking.StrategyBM25, "a")
	text := rankingOf(ranking.StrategyText, "b")
	image := rankingOf(ranking.StrategyImage, "a")

	fused := fuse(bm25, text, image, weightsBalanced)

	a := findFused(t, fused, "a")
	b := findFused(t, fused, "b")
	if a.RRFScore <= b.RRFScore {
		t.Errorf("a.RRFScore = %v, want > b.RRFScore = %v", a.RRFScore, b.RRFScore)
	}
}

func TestFuse_BetterRankScoresHigher(t *testing.T) {
	bm25 := rankingOf(ranking.StrategyBM25, "a", "b")

	fused := fuse(bm25, ranking.Ranking{}, ranking.Ranking{}, weightsBalanced)

	a := findFused(t, fused, "a")
	b := findFused(t, fused, "b")
	if a.RRFScore <= b.RRFScore {
		t.Errorf("rank 1 score %v not above rank 2 score %v", a.RRFScore, b.RRFScore)
	}
}

func TestFuse_AbsentFromAllDropped(t *testing.T) {
	fused := fuse(ranking.Ranking{}, ranking.Ranking{}, ranking.Ranking{}, weightsBalanced)
	if len(fused) != 0 {
		t.Errorf("fused = %v, want empty", fused)
	}
}

func TestFuse_SurvivesLexicalOutage(t *testing.T) {
	// Lexical adapter down: empty ranking, all bm25 ranks nil, scores from the
	// two surviving strategies only.
	text := rankingOf(ranking.StrategyText, "a", "b")
	image := rankingOf(ranking.StrategyImage, "b", "a")

	fused := fuse(ranking.Ranking{Strategy: ranking.StrategyBM25}, text, image, weightsBalanced)

	if len(fused) != 2 {
		t.Fatalf("len(fused) = %d, want 2", len(fused))
	}
	for _, fr := range fused {
		if fr.BM25Rank != nil {
			t.Errorf("%s.BM25Rank = %v, want nil", fr.ListingID, *fr.BM25Rank)
		}
		want := 1/(55.0+float64(*fr.TextRank)) + 1/(55.0+float64(*fr.ImageRank))
		if diff := fr.RRFScore - want; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("%s.RRFScore = %v, want %v", fr.ListingID, fr.RRFScore, want)
		}
	}
}

func TestFuse_DeterministicTieBreak(t *testing.T) {
	bm25 := rankingOf(ranking.StrategyBM25, "b")
	text := rankingOf(ranking.StrategyText, "a")

	fused := fuse(bm25, text, ranking.Ranking{}, weightsBalanced)
	if fused[0].ListingID != "a" || fused[1].ListingID != "b" {
		t.Errorf("tie order = [%s %s], want [a b]", fused[0].ListingID, fused[1].ListingID)
	}
}
