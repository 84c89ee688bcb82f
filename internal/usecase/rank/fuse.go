package rank

import (
	"sort"

	"github.com/homelens/homelens/internal/domain/ranking"
)

// fuse combines the three strategy rankings by reciprocal rank fusion.
// A listing absent from a strategy contributes nothing for it, never a
// penalty; a listing absent from all three never appears in the output.
// Output order is RRF score descending, ties broken by listing id ascending,
// so identical inputs always fuse identically.
func fuse(bm25, text, image ranking.Ranking, w rrfWeights) []ranking.FusedResult {
	bm25Pos := bm25.Positions()
	textPos := text.Positions()
	imagePos := image.Positions()

	ids := make(map[string]struct{}, len(bm25Pos)+len(textPos)+len(imagePos))
	for id := range bm25Pos {
		ids[id] = struct{}{}
	}
	for id := range textPos {
		ids[id] = struct{}{}
	}
	for id := range imagePos {
		ids[id] = struct{}{}
	}

	fused := make([]ranking.FusedResult, 0, len(ids))
	for id := range ids {
		fr := ranking.FusedResult{ListingID: id}
		if rank, ok := bm25Pos[id]; ok {
			fr.BM25Rank = intPtr(rank)
			fr.RRFScore += 1 / (w.bm25 + float64(rank))
		}
		if rank, ok := textPos[id]; ok {
			fr.TextRank = intPtr(rank)
			fr.RRFScore += 1 / (w.text + float64(rank))
		}
		if rank, ok := imagePos[id]; ok {
			fr.ImageRank = intPtr(rank)
			fr.RRFScore += 1 / (w.image + float64(rank))
		}
		fused = append(fused, fr)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].RRFScore != fused[j].RRFScore {
			return fused[i].RRFScore > fused[j].RRFScore
		}
		return fused[i].ListingID < fused[j].ListingID
	})
	return fused
}

func intPtr(v int) *int { return &v }
