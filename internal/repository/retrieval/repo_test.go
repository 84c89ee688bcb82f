package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/homelens/homelens/internal/db"
	"github.com/homelens/homelens/internal/domain/filter"
	"github.com/homelens/homelens/internal/domain/ranking"
)

type fakeStore struct {
	textResult *db.SearchResult
	knnResult  *db.SearchResult
	textErr    error
	knnErr     error

	hashes  map[string]map[string]string
	hashErr error

	lastText *db.TextQuery
	lastKNN  *db.KNNQuery
}

func (f *fakeStore) SearchText(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	f.lastText = q
	return f.textResult, f.textErr
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastKNN = q
	return f.knnResult, f.knnErr
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if f.hashErr != nil {
		return nil, f.hashErr
	}
	return f.hashes[key], nil
}

func TestSearchLexical(t *testing.T) {
	fs := &fakeStore{textResult: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{
				Key:   "hl:listing:L1",
				Score: 12.5,
				Fields: map[string]string{
					"feature_tags":      "white_exterior,pool",
					"detected_features": "white_exterior,pool,deck",
					"primary_image_url": "https://img/l1/0.jpg",
				},
			},
			{Key: "hl:listing:L2", Score: 8.1, Fields: map[string]string{}},
		},
	}}
	repo := New(fs)

	rk, meta, err := repo.SearchLexical(context.Background(), "white house with pool", filter.Expression{}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rk.Strategy != ranking.StrategyBM25 {
		t.Errorf("strategy = %q", rk.Strategy)
	}
	if len(rk.Hits) != 2 || rk.Hits[0].ListingID != "L1" || rk.Hits[1].ListingID != "L2" {
		t.Fatalf("unexpected hits: %+v", rk.Hits)
	}

	m := meta["L1"]
	if len(m.Tags) != 2 || m.Tags[0] != "white_exterior" {
		t.Errorf("tags not parsed: %v", m.Tags)
	}
	if len(m.DetectedFeatures) != 3 {
		t.Errorf("detected features not parsed: %v", m.DetectedFeatures)
	}
	if m.PrimaryImageURL != "https://img/l1/0.jpg" {
		t.Errorf("primary url = %q", m.PrimaryImageURL)
	}

	if fs.lastText.TopK != 50 || fs.lastText.IndexName != "hl:listing:idx" {
		t.Errorf("query not forwarded: %+v", fs.lastText)
	}
	if fs.lastText.FieldBoosts["feature_text"] != 2.0 {
		t.Error("feature_text boost missing")
	}
}

func TestSearchTextKNN_Error(t *testing.T) {
	fs := &fakeStore{knnErr: errors.New("engine down")}
	repo := New(fs)

	_, _, err := repo.SearchTextKNN(context.Background(), []float32{0.1}, filter.Expression{}, 10)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchImages_GroupsByListing(t *testing.T) {
	fs := &fakeStore{knnResult: &db.SearchResult{
		Total: 4,
		Entries: []db.SearchEntry{
			{Key: "hl:image:L1:3", Score: 0.91, Fields: map[string]string{
				"listing_id": "L1", "url": "https://img/l1/3.jpg", "position": "3",
			}},
			{Key: "hl:image:L2:0", Score: 0.88, Fields: map[string]string{
				"listing_id": "L2", "url": "https://img/l2/0.jpg", "position": "0",
			}},
			{Key: "hl:image:L1:7", Score: 0.74, Fields: map[string]string{
				"listing_id": "L1", "url": "https://img/l1/7.jpg", "position": "7",
			}},
			{Key: "hl:image:orphan", Score: 0.5, Fields: map[string]string{}},
		},
	}}
	repo := New(fs)

	matches, err := repo.SearchImages(context.Background(), []float32{0.3}, filter.Expression{}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(matches))
	}
	if len(matches["L1"]) != 2 {
		t.Errorf("L1 should have 2 photo hits, got %d", len(matches["L1"]))
	}
	if matches["L1"][0].Position != 3 || matches["L1"][0].Similarity != 0.91 {
		t.Errorf("photo hit not preserved: %+v", matches["L1"][0])
	}
	if fs.lastKNN.IndexName != "hl:image:idx" {
		t.Errorf("wrong index: %s", fs.lastKNN.IndexName)
	}
}

func TestFetchMeta(t *testing.T) {
	fs := &fakeStore{hashes: map[string]map[string]string{
		"hl:listing:L1": {
			"feature_tags":      "white_exterior",
			"detected_features": "white_exterior,hardwood_floors",
			"primary_image_url": "https://img/l1/0.jpg",
			"description":       "charming colonial",
		},
	}}
	repo := New(fs)

	meta, err := repo.FetchMeta(context.Background(), []string{"L1", "L-gone"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(meta) != 1 {
		t.Fatalf("expected meta for L1 only, got %v", meta)
	}
	m := meta["L1"]
	if len(m.Tags) != 1 || m.Tags[0] != "white_exterior" {
		t.Errorf("tags not parsed: %v", m.Tags)
	}
	if len(m.DetectedFeatures) != 2 {
		t.Errorf("detected features not parsed: %v", m.DetectedFeatures)
	}
	if m.PrimaryImageURL != "https://img/l1/0.jpg" {
		t.Errorf("primary url = %q", m.PrimaryImageURL)
	}
}

func TestFetchMeta_StoreError(t *testing.T) {
	fs := &fakeStore{hashErr: errors.New("connection reset")}
	repo := New(fs)

	if _, err := repo.FetchMeta(context.Background(), []string{"L1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchLexical_EmptyResult(t *testing.T) {
	fs := &fakeStore{textResult: &db.SearchResult{}}
	repo := New(fs)

	rk, meta, err := repo.SearchLexical(context.Background(), "moon base", filter.Expression{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rk.Hits) != 0 || meta != nil {
		t.Error("expected empty ranking and nil meta")
	}
}
