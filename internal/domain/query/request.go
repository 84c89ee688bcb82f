// Package query holds the validated search request and the per-query
// structures derived from it (constraints, sub-queries).
package query

import (
	"fmt"

	"github.com/homelens/homelens/internal/domain/filter"
)

// Request parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 2048
	DefaultSize    = 10
	MaxSize        = 50
)

// Request is a validated search request.
type Request struct {
	query           string
	size            int
	filters         filter.Expression
	enableSplitting bool
	includeScoring  bool
}

// New validates and normalizes search parameters.
// Defaults: size=10. Size is clamped to MaxSize.
func New(
	query string,
	size int,
	filters filter.Expression,
	enableSplitting, includeScoring bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Request{
		query:           query,
		size:            size,
		filters:         filters,
		enableSplitting: enableSplitting,
		includeScoring:  includeScoring,
	}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Size returns the number of results to return.
func (r *Request) Size() int { return r.size }

// Filters returns the caller-supplied hard filters.
func (r *Request) Filters() filter.Expression { return r.filters }

// EnableSplitting reports whether multi-feature query decomposition is allowed.
func (r *Request) EnableSplitting() bool { return r.enableSplitting }

// IncludeScoring reports whether the scoring breakdown should be returned.
func (r *Request) IncludeScoring() bool { return r.includeScoring }
