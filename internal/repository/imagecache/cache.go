// Package imagecache reads the content-addressable image-analysis cache.
// Entries are Redis hashes keyed by SHA-256 of the photo URL, written by the
// ingestion pipeline; this service never writes them.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/homelens/homelens/internal/db"
	"github.com/homelens/homelens/internal/domain"
)

// Hash field names within one cache entry.
const (
	fieldEmbedding = "embedding"
	fieldAnalysis  = "analysis"
	fieldModel     = "model"
)

// store is the consumer interface for cache reads (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Cache is the read path of the image-analysis cache.
type Cache struct {
	store store
}

// New creates an image-analysis cache reader.
func New(s store) *Cache {
	return &Cache{store: s}
}

// Get returns the cached analysis for a photo URL, or domain.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, imageURL string) (domain.ImageAnalysis, error) {
	if imageURL == "" {
		return domain.ImageAnalysis{}, domain.ErrCacheMiss
	}

	fields, err := c.store.HGetAll(ctx, Key(imageURL))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ImageAnalysis{}, domain.ErrCacheMiss
		}
		return domain.ImageAnalysis{}, fmt.Errorf("image cache get: %w", err)
	}

	vec, err := bytesToVector([]byte(fields[fieldEmbedding]))
	if err != nil {
		return domain.ImageAnalysis{}, fmt.Errorf("image cache entry %s: %w", Key(imageURL), err)
	}

	return domain.ImageAnalysis{
		Embedding: vec,
		Analysis:  fields[fieldAnalysis],
		Model:     fields[fieldModel],
	}, nil
}

// Key derives the content-addressed cache key for a photo URL.
func Key(imageURL string) string {
	h := sha256.Sum256([]byte(imageURL))
	return domain.ImageCachePrefix + hex.EncodeToString(h[:])
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding data: len=%d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
