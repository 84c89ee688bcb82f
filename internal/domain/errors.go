package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed or out-of-range search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSearchUnavailable signals that every retrieval strategy failed for one query.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a language model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrCacheMiss signals a missing image-analysis cache entry.
	ErrCacheMiss = errors.New("cache miss")
)
