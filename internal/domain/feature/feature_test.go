package feature

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Tag
	}{
		{"White Exterior", "white_exterior"},
		{"  granite   countertops ", "granite_countertops"},
		{"hardwood-floors", "hardwood_floors"},
		{"POOL", "pool"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultTable())

	cases := []struct {
		tag  Tag
		want Class
	}{
		{"white_exterior", ClassVisual},
		{"blue_exterior", ClassVisual},
		{"new_construction", ClassText},
		{"granite_countertops", ClassHybrid},
		{"hardwood_floors", ClassHybrid},
		{"totally_unknown_tag", ClassHybrid},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.tag); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.tag, got, tc.want)
		}
	}
}

func TestClassify_AlternateTable(t *testing.T) {
	table := map[Tag]Class{"pool": ClassText}
	c := NewClassifier(table)

	if got := c.Classify("pool"); got != ClassText {
		t.Errorf("alternate table ignored: got %q", got)
	}

	// Mutating the source table after construction must not leak in.
	table["pool"] = ClassVisual
	if got := c.Classify("pool"); got != ClassText {
		t.Errorf("classifier table not copied: got %q", got)
	}
}

func TestKnown(t *testing.T) {
	c := NewClassifier(DefaultTable())
	if !c.Known("pool") {
		t.Error("pool should be known")
	}
	if c.Known("spaceship_pad") {
		t.Error("spaceship_pad should be unknown")
	}
}

func TestCounts(t *testing.T) {
	c := NewClassifier(DefaultTable())
	v, x, h := c.Counts([]Tag{"white_exterior", "pool", "new_construction", "granite_countertops", "mystery"})
	if v != 2 || x != 1 || h != 2 {
		t.Errorf("Counts = (%d, %d, %d), want (2, 1, 2)", v, x, h)
	}
}

func TestIsExteriorStyle(t *testing.T) {
	c := NewClassifier(DefaultTable())
	for _, tag := range []Tag{"white_exterior", "craftsman_style", "stone_facade", "curb_appeal"} {
		if !c.IsExteriorStyle(tag) {
			t.Errorf("%q should be exterior-style", tag)
		}
	}
	for _, tag := range []Tag{"granite_countertops", "pool", "hardwood_floors"} {
		if c.IsExteriorStyle(tag) {
			t.Errorf("%q should not be exterior-style", tag)
		}
	}
}
