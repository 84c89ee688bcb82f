package redis

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/homelens/homelens/internal/domain/filter"
)

func f64(v float64) *float64 { return &v }

func TestBuildFilter(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := buildFilter(filter.Expression{}); got != "" {
			t.Errorf("buildFilter(empty) = %q, want empty", got)
		}
	})

	t.Run("range and match", func(t *testing.T) {
		r, err := filter.NewRangeBounds(nil, f64(200000), nil, f64(650000))
		if err != nil {
			t.Fatal(err)
		}
		price, _ := filter.NewRange("price", r)
		city, _ := filter.NewMatch("city", "austin")
		expr, _ := filter.NewExpression([]filter.Condition{price, city}, nil)

		got := buildFilter(expr)
		want := "@price:[200000 650000] @city:{austin}"
		if got != want {
			t.Errorf("buildFilter = %q, want %q", got, want)
		}
	})

	t.Run("must_not negates", func(t *testing.T) {
		hoa, _ := filter.NewMatch("hoa", "mandatory")
		expr, _ := filter.NewExpression(nil, []filter.Condition{hoa})

		got := buildFilter(expr)
		if got != "-@hoa:{mandatory}" {
			t.Errorf("buildFilter = %q", got)
		}
	})

	t.Run("exclusive bounds", func(t *testing.T) {
		r, err := filter.NewRangeBounds(f64(2), nil, f64(5), nil)
		if err != nil {
			t.Fatal(err)
		}
		beds, _ := filter.NewRange("beds", r)
		expr, _ := filter.NewExpression([]filter.Condition{beds}, nil)

		got := buildFilter(expr)
		if got != "@beds:[(2 (5]" {
			t.Errorf("buildFilter = %q", got)
		}
	})
}

func TestBuildTextClause(t *testing.T) {
	t.Run("no boosts", func(t *testing.T) {
		got := buildTextClause("white house", nil)
		if got != "(white house)" {
			t.Errorf("buildTextClause = %q", got)
		}
	})

	t.Run("boosted fields sorted", func(t *testing.T) {
		got := buildTextClause("granite", map[string]float64{
			"feature_text": 2,
			"description":  1,
		})
		want := "((@description:(granite))=>{$weight:1;} | (@feature_text:(granite))=>{$weight:2;})"
		if got != want {
			t.Errorf("buildTextClause = %q, want %q", got, want)
		}
	})

	t.Run("syntax chars escaped", func(t *testing.T) {
		got := buildTextClause(`granite @countertops`, nil)
		if !strings.Contains(got, `\@countertops`) {
			t.Errorf("expected escaped @, got %q", got)
		}
	})
}

func TestVectorToBytes(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	blob := vectorToBytes(vec)

	if len(blob) != 12 {
		t.Fatalf("blob length = %d, want 12", len(blob))
	}
	for i, want := range vec {
		got := math.Float32frombits(binary.LittleEndian.Uint32([]byte(blob)[i*4:]))
		if got != want {
			t.Errorf("element %d = %f, want %f", i, got, want)
		}
	}
}

func TestDistanceToSimilarity(t *testing.T) {
	cases := []struct {
		dist float64
		want float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.8, 0}, // clamped
	}
	for _, tc := range cases {
		if got := distanceToSimilarity(tc.dist); got != tc.want {
			t.Errorf("distanceToSimilarity(%f) = %f, want %f", tc.dist, got, tc.want)
		}
	}
}
