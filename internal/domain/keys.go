package domain

// Redis key and index names. The ingestion pipeline writes under the same
// prefix; this service only reads.
const (
	// KeyPrefix prefixes all homelens keys in Redis.
	KeyPrefix = "hl:"
	// ListingIndex is the FT index over listing hashes (text, tags, numerics, text vector).
	ListingIndex = KeyPrefix + "listing:idx"
	// ImageIndex is the FT index over per-photo hashes (one hash per listing photo).
	ImageIndex = KeyPrefix + "image:idx"
	// ImageCachePrefix prefixes image-analysis cache entries, keyed by SHA-256 of the photo URL.
	ImageCachePrefix = KeyPrefix + "imgcache:"
)
