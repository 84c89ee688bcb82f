package rank

import (
	"sort"

	"github.com/homelens/homelens/internal/domain/query"
	"github.com/homelens/homelens/internal/domain/ranking"
)

// imageCandidate is one listing photo with its similarity to each sub-query.
// A photo missing from a sub-query's k-NN result scores 0 for it.
type imageCandidate struct {
	Index int // photo position within the listing; 0 is the primary shot
	URL   string
	Sims  []float64 // indexed by sub-query
}

// diversify greedily assigns photos to sub-queries: pairs are ranked by
// weight × similarity descending, and a pair is selected only when neither its
// sub-query nor its photo is already taken. Higher-weight sub-queries win
// contested slots when k is the limit. Selection stops at k pairs or full
// sub-query coverage. A sub-query's best photo is selected even when the match
// is poor; a listing missing a feature shows its best attempt rather than
// hiding the gap.
//
// The returned score is the weighted sum of selected similarities divided by
// the total weight of all sub-queries, so uncovered sub-queries drag the score
// down.
func diversify(
	subs []query.SubQuery, images []imageCandidate, k int,
) (float64, []ranking.SelectedEvidence) {
	if len(subs) == 0 || len(images) == 0 || k <= 0 {
		return 0, nil
	}

	type pair struct {
		sub, img int
		weighted float64
	}
	pairs := make([]pair, 0, len(subs)*len(images))
	for si, sub := range subs {
		for ii, img := range images {
			if si >= len(img.Sims) {
				continue
			}
			pairs = append(pairs, pair{sub: si, img: ii, weighted: sub.Weight * img.Sims[si]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].weighted != pairs[j].weighted {
			return pairs[i].weighted > pairs[j].weighted
		}
		if pairs[i].sub != pairs[j].sub {
			return pairs[i].sub < pairs[j].sub
		}
		return pairs[i].img < pairs[j].img
	})

	subTaken := make([]bool, len(subs))
	imgTaken := make([]bool, len(images))
	evidence := make([]ranking.SelectedEvidence, 0, min(k, len(subs)))
	var weightedSum float64

	for _, p := range pairs {
		if len(evidence) == k || len(evidence) == len(subs) {
			break
		}
		if subTaken[p.sub] || imgTaken[p.img] {
			continue
		}
		subTaken[p.sub] = true
		imgTaken[p.img] = true
		img := images[p.img]
		evidence = append(evidence, ranking.SelectedEvidence{
			SubQuery:   p.sub,
			Feature:    subs[p.sub].Feature,
			ImageIndex: img.Index,
			URL:        img.URL,
			Similarity: img.Sims[p.sub],
		})
		weightedSum += p.weighted
	}

	var totalWeight float64
	for _, sub := range subs {
		totalWeight += sub.Weight
	}
	if totalWeight == 0 {
		return 0, evidence
	}

	sort.Slice(evidence, func(i, j int) bool { return evidence[i].SubQuery < evidence[j].SubQuery })
	return weightedSum / totalWeight, evidence
}

// topKSum is the unsplit image score: the sum of the k best per-photo
// similarities for one listing.
func topKSum(hits []ranking.ImageHit, k int) float64 {
	if len(hits) == 0 || k <= 0 {
		return 0
	}
	sims := make([]float64, len(hits))
	for i, h := range hits {
		sims[i] = h.Similarity
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if k > len(sims) {
		k = len(sims)
	}
	var sum float64
	for _, s := range sims[:k] {
		sum += s
	}
	return sum
}

// mergeCandidates folds per-sub-query image matches into per-listing candidate
// lists. Photos are identified by URL across sub-queries.
func mergeCandidates(perSub []ranking.ImageMatches) map[string][]imageCandidate {
	byListing := make(map[string][]imageCandidate)
	index := make(map[string]map[string]int) // listing → url → candidate slot

	for si, matches := range perSub {
		for listingID, hits := range matches {
			slots := index[listingID]
			if slots == nil {
				slots = make(map[string]int)
				index[listingID] = slots
			}
			for _, hit := range hits {
				slot, ok := slots[hit.URL]
				if !ok {
					slot = len(byListing[listingID])
					slots[hit.URL] = slot
					byListing[listingID] = append(byListing[listingID], imageCandidate{
						Index: hit.Position,
						URL:   hit.URL,
						Sims:  make([]float64, len(perSub)),
					})
				}
				byListing[listingID][slot].Sims[si] = hit.Similarity
			}
		}
	}
	return byListing
}
