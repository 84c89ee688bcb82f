package imagecache

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/homelens/homelens/internal/db"
	"github.com/homelens/homelens/internal/domain"
)

type fakeStore struct {
	entries map[string]map[string]string
	err     error
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return e, nil
}

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func TestGet_Hit(t *testing.T) {
	url := "https://img/l1/0.jpg"
	fs := &fakeStore{entries: map[string]map[string]string{
		Key(url): {
			"embedding": encodeVector([]float32{0.25, -0.5}),
			"analysis":  "white two-story house, covered porch",
			"model":     "vision-3",
		},
	}}
	c := New(fs)

	a, err := c.Get(context.Background(), url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Embedding) != 2 || a.Embedding[0] != 0.25 || a.Embedding[1] != -0.5 {
		t.Errorf("embedding not decoded: %v", a.Embedding)
	}
	if a.Analysis == "" || a.Model != "vision-3" {
		t.Errorf("analysis fields not preserved: %+v", a)
	}
}

func TestGet_Miss(t *testing.T) {
	c := New(&fakeStore{entries: map[string]map[string]string{}})

	_, err := c.Get(context.Background(), "https://img/unknown.jpg")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}

	_, err = c.Get(context.Background(), "")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("empty url should miss, got %v", err)
	}
}

func TestGet_CorruptEntry(t *testing.T) {
	url := "https://img/l9/0.jpg"
	fs := &fakeStore{entries: map[string]map[string]string{
		Key(url): {"embedding": "abc"}, // not a multiple of 4 bytes
	}}
	c := New(fs)

	if _, err := c.Get(context.Background(), url); err == nil {
		t.Error("expected error for corrupt embedding")
	}
}

func TestKey_ContentAddressed(t *testing.T) {
	k := Key("https://img/a.jpg")
	if !strings.HasPrefix(k, "hl:imgcache:") {
		t.Errorf("unexpected prefix: %s", k)
	}
	if k == Key("https://img/b.jpg") {
		t.Error("distinct URLs must map to distinct keys")
	}
	if k != Key("https://img/a.jpg") {
		t.Error("key must be deterministic")
	}
}
