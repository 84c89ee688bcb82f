package rank

import (
	"fmt"
	"math"
	"testing"

	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/query"
	"github.com/homelens/homelens/internal/domain/ranking"
)

func subsOf(weights ...float64) []query.SubQuery {
	subs := make([]query.SubQuery, len(weights))
	for i, w := range weights {
		subs[i] = query.SubQuery{
			Text:     fmt.Sprintf("sub %d", i),
			Feature:  feature.Tag(fmt.Sprintf("feature_%d", i)),
			Weight:   w,
			Strategy: query.AggMax,
		}
	}
	return subs
}

func TestDiversify_OneImagePerSubQuery(t *testing.T) {
	// 28 candidate photos, all scoring best for sub-query 0. Diversification
	// must still spread evidence: one photo per sub-query, never three photos
	// all claimed by the same feature.
	subs := subsOf(1, 1, 1)
	images := make([]imageCandidate, 28)
	for i := range images {
		images[i] = imageCandidate{
			Index: i,
			URL:   fmt.Sprintf("https://img/%d.jpg", i),
			Sims:  []float64{0.9 - float64(i)*0.001, 0.5, 0.4},
		}
	}

	_, evidence := diversify(subs, images, 3)

	if len(evidence) != 3 {
		t.Fatalf("len(evidence) = %d, want 3", len(evidence))
	}
	seenSubs := map[int]bool{}
	seenImages := map[int]bool{}
	for _, ev := range evidence {
		if seenSubs[ev.SubQuery] {
			t.Errorf("sub-query %d selected twice", ev.SubQuery)
		}
		if seenImages[ev.ImageIndex] {
			t.Errorf("image %d selected twice", ev.ImageIndex)
		}
		seenSubs[ev.SubQuery] = true
		seenImages[ev.ImageIndex] = true
	}
}

func TestDiversify_AtMostMinKNEntries(t *testing.T) {
	subs := subsOf(1, 1, 1, 1)
	images := []imageCandidate{
		{Index: 0, URL: "a", Sims: []float64{0.9, 0.8, 0.7, 0.6}},
		{Index: 1, URL: "b", Sims: []float64{0.5, 0.9, 0.3, 0.2}},
		{Index: 2, URL: "c", Sims: []float64{0.4, 0.3, 0.8, 0.1}},
	}

	for k := 1; k <= 4; k++ {
		_, evidence := diversify(subs, images, k)
		limit := k
		if len(subs) < limit {
			limit = len(subs)
		}
		if len(evidence) > limit {
			t.Errorf("k=%d: len(evidence) = %d, want <= %d", k, len(evidence), limit)
		}
	}
}

func TestDiversify_WeightPriorityWhenKLimited(t *testing.T) {
	// Two sub-queries compete for one slot. The exterior sub-query carries
	// double weight, so it wins even though the other has a slightly better
	// raw similarity.
	subs := subsOf(2, 1)
	images := []imageCandidate{
		{Index: 0, URL: "facade.jpg", Sims: []float64{0.7, 0}},
		{Index: 1, URL: "kitchen.jpg", Sims: []float64{0, 0.8}},
	}

	_, evidence := diversify(subs, images, 1)

	if len(evidence) != 1 {
		t.Fatalf("len(evidence) = %d, want 1", len(evidence))
	}
	if evidence[0].SubQuery != 0 {
		t.Errorf("selected sub-query %d, want 0 (weight 2.0 wins the slot)", evidence[0].SubQuery)
	}
}

func TestDiversify_PoorMatchesStillSelected(t *testing.T) {
	// Sub-query 1 has no good photo anywhere. Its best attempt is still
	// selected rather than suppressed.
	subs := subsOf(1, 1)
	images := []imageCandidate{
		{Index: 0, URL: "a", Sims: []float64{0.95, 0.02}},
		{Index: 1, URL: "b", Sims: []float64{0.90, 0.05}},
	}

	_, evidence := diversify(subs, images, 2)

	if len(evidence) != 2 {
		t.Fatalf("len(evidence) = %d, want 2", len(evidence))
	}
	var sub1 *ranking.SelectedEvidence
	for i := range evidence {
		if evidence[i].SubQuery == 1 {
			sub1 = &evidence[i]
		}
	}
	if sub1 == nil {
		t.Fatal("sub-query 1 has no evidence, want its best poor match")
	}
	if sub1.ImageIndex != 1 {
		t.Errorf("sub-query 1 selected image %d, want 1 (its best remaining)", sub1.ImageIndex)
	}
}

func TestDiversify_ScoreIsWeightedMean(t *testing.T) {
	subs := subsOf(2, 1)
	images := []imageCandidate{
		{Index: 0, URL: "a", Sims: []float64{0.8, 0}},
		{Index: 1, URL: "b", Sims: []float64{0, 0.6}},
	}

	score, _ := diversify(subs, images, 2)

	want := (2*0.8 + 1*0.6) / 3
	if math.Abs(score-want) > 1e-12 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestDiversify_UncoveredSubQueryDragsScore(t *testing.T) {
	subs := subsOf(1, 1)
	oneImage := []imageCandidate{{Index: 0, URL: "a", Sims: []float64{0.9, 0.9}}}

	score, evidence := diversify(subs, oneImage, 2)

	if len(evidence) != 1 {
		t.Fatalf("len(evidence) = %d, want 1 (one photo cannot cover two sub-queries)", len(evidence))
	}
	want := 0.9 / 2
	if math.Abs(score-want) > 1e-12 {
		t.Errorf("score = %v, want %v (denominator counts uncovered weight)", score, want)
	}
}

func TestDiversify_Empty(t *testing.T) {
	if score, ev := diversify(nil, nil, 3); score != 0 || ev != nil {
		t.Errorf("diversify(nil) = (%v, %v), want (0, nil)", score, ev)
	}
}

func TestTopKSum(t *testing.T) {
	hits := []ranking.ImageHit{
		{Similarity: 0.2}, {Similarity: 0.9}, {Similarity: 0.5}, {Similarity: 0.7},
	}
	cases := []struct {
		k    int
		want float64
	}{
		{1, 0.9},
		{2, 1.6},
		{3, 2.1},
		{10, 2.3},
		{0, 0},
	}
	for _, tc := range cases {
		if got := topKSum(hits, tc.k); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("topKSum(k=%d) = %v, want %v", tc.k, got, tc.want)
		}
	}
}

func TestMergeCandidates(t *testing.T) {
	perSub := []ranking.ImageMatches{
		{
			"listing-1": {{URL: "a", Position: 0, Similarity: 0.9}, {URL: "b", Position: 1, Similarity: 0.4}},
		},
		{
			"listing-1": {{URL: "b", Position: 1, Similarity: 0.8}},
			"listing-2": {{URL: "c", Position: 0, Similarity: 0.7}},
		},
	}

	byListing := mergeCandidates(perSub)

	l1 := byListing["listing-1"]
	if len(l1) != 2 {
		t.Fatalf("listing-1 candidates = %d, want 2", len(l1))
	}
	var b *imageCandidate
	for i := range l1 {
		if l1[i].URL == "b" {
			b = &l1[i]
		}
	}
	if b == nil {
		t.Fatal("photo b missing from merged candidates")
	}
	if b.Sims[0] != 0.4 || b.Sims[1] != 0.8 {
		t.Errorf("photo b sims = %v, want [0.4 0.8]", b.Sims)
	}
	if len(byListing["listing-2"]) != 1 {
		t.Errorf("listing-2 candidates = %d, want 1", len(byListing["listing-2"]))
	}
}
