package query

import (
	"github.com/homelens/homelens/internal/domain/feature"
	"github.com/homelens/homelens/internal/domain/filter"
)

// Type labels the overall intent of a query.
type Type string

// Query types.
const (
	// TypeVisualStyle marks queries about appearance ("modern farmhouse look").
	TypeVisualStyle Type = "visual_style"
	// TypeFeatureList marks queries enumerating concrete features.
	TypeFeatureList Type = "feature_list"
	// TypeGeneral is the fallback for everything else.
	TypeGeneral Type = "general"
)

// IsValid reports whether the type is one of the supported values.
func (t Type) IsValid() bool {
	return t == TypeVisualStyle || t == TypeFeatureList || t == TypeGeneral
}

// Constraints is the structured view of a query, derived once at query start
// and read-only afterwards.
type Constraints struct {
	mustHave  []feature.Tag
	unknown   []feature.Tag
	queryType Type
	filters   filter.Expression
}

// NewConstraints creates query constraints.
// mustHave contains every required tag, including unknown ones; unknown lists
// the subset the classifier table does not know (kept, never dropped, so
// downstream tag matching still sees them).
func NewConstraints(
	mustHave, unknown []feature.Tag, queryType Type, filters filter.Expression,
) Constraints {
	if !queryType.IsValid() {
		queryType = TypeGeneral
	}
	return Constraints{
		mustHave:  mustHave,
		unknown:   unknown,
		queryType: queryType,
		filters:   filters,
	}
}

// EmptyConstraints is the fallback when extraction fails: no required tags,
// general query type. Search proceeds on the raw query text alone.
func EmptyConstraints() Constraints {
	return Constraints{queryType: TypeGeneral}
}

// MustHave returns the required feature tags.
func (c Constraints) MustHave() []feature.Tag { return c.mustHave }

// Unknown returns required tags absent from the classification table.
func (c Constraints) Unknown() []feature.Tag { return c.unknown }

// QueryType returns the query intent label.
func (c Constraints) QueryType() Type { return c.queryType }

// Filters returns hard filters the extractor pulled out of the query text.
func (c Constraints) Filters() filter.Expression { return c.filters }
