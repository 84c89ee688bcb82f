// Package feature defines property feature tags and their retrieval classes.
package feature

import "strings"

// Tag is a normalized identifier for a detectable property attribute,
// e.g. "white_exterior" or "granite_countertops".
type Tag string

// Normalize converts free-form tag text into canonical lower_snake form.
func Normalize(s string) Tag {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	s = strings.ReplaceAll(s, "-", "_")
	return Tag(s)
}

// Class describes which retrieval signal detects a tag best.
type Class string

// Feature classes.
const (
	// ClassVisual marks tags best detected in photos (exterior color, style, views).
	ClassVisual Class = "visual_dominant"
	// ClassText marks tags that only listing text can confirm (renovation year, HOA).
	ClassText Class = "text_dominant"
	// ClassHybrid marks tags detectable both ways (countertops, floors, fixtures).
	ClassHybrid Class = "hybrid"
)

// Classifier maps tags to classes via an immutable membership table.
// The table is copied at construction; unknown tags classify as hybrid.
type Classifier struct {
	table map[Tag]Class
}

// NewClassifier creates a classifier with a private copy of the given table.
func NewClassifier(table map[Tag]Class) *Classifier {
	t := make(map[Tag]Class, len(table))
	for k, v := range table {
		t[k] = v
	}
	return &Classifier{table: t}
}

// Classify returns a tag's class. Unknown tags default to hybrid.
func (c *Classifier) Classify(tag Tag) Class {
	if cl, ok := c.table[tag]; ok {
		return cl
	}
	return ClassHybrid
}

// Known reports whether the tag is in the membership table.
func (c *Classifier) Known(tag Tag) bool {
	_, ok := c.table[tag]
	return ok
}

// Counts tallies tags per class. Unknown tags count as hybrid.
func (c *Classifier) Counts(tags []Tag) (visual, text, hybrid int) {
	for _, tag := range tags {
		switch c.Classify(tag) {
		case ClassVisual:
			visual++
		case ClassText:
			text++
		default:
			hybrid++
		}
	}
	return visual, text, hybrid
}

// IsExteriorStyle reports whether the tag describes the exterior or the
// overall architectural style. These tags anchor the primary photo and get
// the higher sub-query weight.
func (c *Classifier) IsExteriorStyle(tag Tag) bool {
	s := string(tag)
	if strings.HasSuffix(s, "_exterior") || strings.HasSuffix(s, "_style") || strings.HasSuffix(s, "_facade") {
		return true
	}
	_, ok := exteriorStyleTags[tag]
	return ok
}

var exteriorStyleTags = map[Tag]struct{}{
	"curb_appeal":        {},
	"modern_farmhouse":   {},
	"mid_century_modern": {},
	"wraparound_porch":   {},
	"metal_roof":         {},
}

// DefaultTable returns the built-in feature class table.
func DefaultTable() map[Tag]Class {
	return map[Tag]Class{
		// Visual-dominant: confirmed by looking at photos.
		"white_exterior":           ClassVisual,
		"blue_exterior":            ClassVisual,
		"gray_exterior":            ClassVisual,
		"black_exterior":           ClassVisual,
		"green_exterior":           ClassVisual,
		"red_brick_exterior":       ClassVisual,
		"brick_exterior":           ClassVisual,
		"stone_facade":             ClassVisual,
		"stucco_exterior":          ClassVisual,
		"modern_farmhouse":         ClassVisual,
		"craftsman_style":          ClassVisual,
		"victorian_style":          ClassVisual,
		"colonial_style":           ClassVisual,
		"mid_century_modern":       ClassVisual,
		"curb_appeal":              ClassVisual,
		"landscaped_yard":          ClassVisual,
		"mature_trees":             ClassVisual,
		"pool":                     ClassVisual,
		"mountain_view":            ClassVisual,
		"water_view":               ClassVisual,
		"city_view":                ClassVisual,
		"wraparound_porch":         ClassVisual,
		"metal_roof":               ClassVisual,
		"floor_to_ceiling_windows": ClassVisual,
		"vaulted_ceilings":         ClassVisual,
		"exposed_beams":            ClassVisual,

		// Text-dominant: photos cannot confirm these.
		"new_construction":   ClassText,
		"recently_renovated": ClassText,
		"new_roof":           ClassText,
		"solar_panels":       ClassText,
		"smart_home":         ClassText,
		"central_air":        ClassText,
		"energy_efficient":   ClassText,
		"gated_community":    ClassText,
		"no_hoa":             ClassText,
		"corner_lot":         ClassText,
		"cul_de_sac":         ClassText,
		"finished_basement":  ClassText,
		"in_law_suite":       ClassText,
		"home_office":        ClassText,
		"walk_in_closet":     ClassText,
		"rental_allowed":     ClassText,

		// Hybrid: detectable in photos and usually stated in text.
		"granite_countertops":  ClassHybrid,
		"quartz_countertops":   ClassHybrid,
		"butcher_block":        ClassHybrid,
		"hardwood_floors":      ClassHybrid,
		"tile_floors":          ClassHybrid,
		"stainless_appliances": ClassHybrid,
		"kitchen_island":       ClassHybrid,
		"subway_tile":          ClassHybrid,
		"farmhouse_sink":       ClassHybrid,
		"open_floor_plan":      ClassHybrid,
		"fireplace":            ClassHybrid,
		"updated_kitchen":      ClassHybrid,
		"updated_bathroom":     ClassHybrid,
		"tile_shower":          ClassHybrid,
		"double_vanity":        ClassHybrid,
		"shiplap_walls":        ClassHybrid,
		"deck":                 ClassHybrid,
		"patio":                ClassHybrid,
		"fenced_yard":          ClassHybrid,
		"two_car_garage":       ClassHybrid,
	}
}
