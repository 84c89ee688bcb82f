package rank

// rrfWeights are the per-strategy reciprocal rank fusion constants. A lower
// constant gives the strategy more influence, since each contribution is
// 1/(k+rank).
type rrfWeights struct {
	bm25  float64
	text  float64
	image float64
}

var (
	weightsImageFavoring = rrfWeights{bm25: 60, text: 50, image: 30}
	weightsTextFavoring  = rrfWeights{bm25: 40, text: 50, image: 75}
	weightsBalanced      = rrfWeights{bm25: 55, text: 55, image: 55}
)

// visualRatioThreshold is the share of one tag class above which fusion tilts
// toward that class's strongest signal.
const classRatioThreshold = 0.6

// adaptiveK maps the required-feature count to the number of per-listing image
// matches that contribute to the image score.
func adaptiveK(featureCount int) int {
	switch {
	case featureCount <= 1:
		return 1
	case featureCount == 2:
		return 2
	default:
		return 3
	}
}

// adaptiveWeights picks the fusion constants from the class makeup of the
// required tags. An empty tag set is balanced.
func adaptiveWeights(visual, text, hybrid int) rrfWeights {
	total := visual + text + hybrid
	if total == 0 {
		return weightsBalanced
	}
	switch {
	case float64(visual)/float64(total) >= classRatioThreshold:
		return weightsImageFavoring
	case float64(text)/float64(total) >= classRatioThreshold:
		return weightsTextFavoring
	default:
		return weightsBalanced
	}
}
