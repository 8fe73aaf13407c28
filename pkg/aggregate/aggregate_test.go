package aggregate

import (
	"math"
	"strings"
	"testing"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
)

func rec(id, group, cs, cat string, value *float64, x, y float64) feature.Record {
	return feature.Record{ID: id, Group: group, Case: cs, Category: cat, Value: value, X: x, Y: y}
}

func TestGroupsBasic(t *testing.T) {
	records := []feature.Record{
		rec("a1", "HH", "", "", feature.Float(10), 0, 0),
		rec("b1", "HB", "", "", feature.Float(5), 50, 50),
		rec("a2", "HH", "", "", feature.Float(20), 2, 4),
		rec("a3", "HH", "", "", feature.Float(30), 4, 2),
	}

	result := Groups(records, MinFlatMembers)

	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1 (HB is below the member threshold)", len(result.Groups))
	}
	g := result.Groups[0]
	if g.Key != "HH" {
		t.Errorf("group key = %q, want HH", g.Key)
	}
	if g.Count() != 3 {
		t.Errorf("member count = %d, want 3", g.Count())
	}
	if g.Sum != 60 {
		t.Errorf("sum = %v, want 60", g.Sum)
	}
	if g.Centroid.X != 2 || g.Centroid.Y != 2 {
		t.Errorf("centroid = %v, want (2, 2)", g.Centroid)
	}

	// Member values stay in input order: the sum equals the scaled total.
	vals := g.Values()
	want := []float64{10, 20, 30}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, vals[i], want[i])
		}
	}

	if len(result.Skips) != 1 || result.Skips[0].Code != errors.ErrCodeTooFewMembers {
		t.Errorf("skips = %+v, want one TOO_FEW_MEMBERS skip for HB", result.Skips)
	}
}

func TestGroupsFirstSeenOrder(t *testing.T) {
	records := []feature.Record{
		rec("1", "C", "", "", feature.Float(1), 0, 0),
		rec("2", "A", "", "", feature.Float(1), 0, 0),
		rec("3", "B", "", "", feature.Float(1), 0, 0),
		rec("4", "A", "", "", feature.Float(1), 0, 0),
	}

	result := Groups(records, 0)
	got := result.Kept()
	want := []string{"C", "A", "B"}
	if len(got) != len(want) {
		t.Fatalf("kept = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kept[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGroupsDropsAndSkips(t *testing.T) {
	// Record 2 has a null value, record 3 a missing group key, group NULLS
	// only null values, and group ZERO sums to zero.
	records := []feature.Record{
		rec("1", "OK", "", "", feature.Float(5), 0, 0),
		rec("2", "OK", "", "", nil, 9, 9),
		rec("3", "", "", "", feature.Float(5), 0, 0),
		rec("4", "NULLS", "", "", nil, 0, 0),
		rec("5", "ZERO", "", "", feature.Float(3), 0, 0),
		rec("6", "ZERO", "", "", feature.Float(-3), 0, 0),
	}

	result := Groups(records, 0)

	if result.DroppedNullValue != 2 {
		t.Errorf("DroppedNullValue = %d, want 2", result.DroppedNullValue)
	}
	if result.DroppedNullGroup != 1 {
		t.Errorf("DroppedNullGroup = %d, want 1", result.DroppedNullGroup)
	}

	if len(result.Groups) != 1 || result.Groups[0].Key != "OK" {
		t.Fatalf("groups = %v, want only OK", result.Kept())
	}

	wantSkips := map[string]errors.Code{
		"NULLS": errors.ErrCodeEmptyGroup,
		"ZERO":  errors.ErrCodeZeroSum,
	}
	if len(result.Skips) != len(wantSkips) {
		t.Fatalf("got %d skips, want %d: %+v", len(result.Skips), len(wantSkips), result.Skips)
	}
	for _, s := range result.Skips {
		if wantSkips[s.Group] != s.Code {
			t.Errorf("skip for %q has code %v, want %v", s.Group, s.Code, wantSkips[s.Group])
		}
	}
}

func TestGroupsCentroidExcludesDropped(t *testing.T) {
	// The null-valued record at (100, 100) must not pull the centroid.
	records := []feature.Record{
		rec("1", "G", "", "", feature.Float(1), 0, 0),
		rec("2", "G", "", "", feature.Float(1), 10, 20),
		rec("3", "G", "", "", nil, 100, 100),
	}

	result := Groups(records, 0)
	if len(result.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(result.Groups))
	}
	c := result.Groups[0].Centroid
	if c.X != 5 || c.Y != 10 {
		t.Errorf("centroid = %v, want (5, 10)", c)
	}
}

func TestCaseTotals(t *testing.T) {
	g := Group{
		Key: "G",
		Members: []Member{
			{ID: "1", Value: 1, Case: "north"},
			{ID: "2", Value: 2, Case: "south"},
			{ID: "3", Value: 3, Case: "north"},
			{ID: "4", Value: 4},
		},
	}

	totals := g.CaseTotals()
	want := []Total{
		{Key: "north", Value: 4},
		{Key: "south", Value: 2},
		{Key: "", Value: 4},
	}
	if len(totals) != len(want) {
		t.Fatalf("got %d totals, want %d", len(totals), len(want))
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("totals[%d] = %+v, want %+v", i, totals[i], want[i])
		}
	}
}

func TestBuildHierarchy(t *testing.T) {
	g := Group{
		Key: "HH",
		Members: []Member{
			{ID: "1", Value: 1, Case: "A", Category: "retail"},
			{ID: "2", Value: 2, Case: "A", Category: "food"},
			{ID: "3", Value: 3, Case: "A", Category: "retail"},
			{ID: "4", Value: 4, Case: "B", Category: "retail"},
			{ID: "5", Value: 5, Category: "misc"}, // null case
		},
		Sum: 15,
	}

	h, err := BuildHierarchy(g)
	if err != nil {
		t.Fatalf("BuildHierarchy error: %v", err)
	}

	root := h.Root
	if root.Key != "HH" || root.Value != 15 || root.Count != 5 {
		t.Errorf("root = %+v, want key HH, value 15, count 5", root)
	}
	if len(root.Children) != 3 {
		t.Fatalf("root has %d children, want 3 (A, B, null-case leaf)", len(root.Children))
	}

	a := root.Children[0]
	if a.Key != "A" || a.Value != 6 || a.Count != 3 || len(a.Children) != 2 {
		t.Errorf("case A = %+v, want value 6, count 3, 2 leaves", a)
	}
	// Records 1 and 3 share (A, retail) and merge into one leaf.
	retail := a.Children[0]
	if retail.Category != "retail" || retail.Value != 4 || retail.Count != 2 {
		t.Errorf("leaf (A, retail) = %+v, want value 4, count 2", retail)
	}

	b := root.Children[1]
	if b.Key != "B" || b.Value != 4 || b.IsLeaf() {
		t.Errorf("case B = %+v, want internal node with value 4", b)
	}

	// The null-case member is a leaf directly under the root.
	nullLeaf := root.Children[2]
	if !nullLeaf.IsLeaf() || nullLeaf.Case != "" || nullLeaf.Category != "misc" || nullLeaf.Value != 5 {
		t.Errorf("null-case leaf = %+v, want leaf (misc, 5) under root", nullLeaf)
	}
}

func TestBuildHierarchyDropsNonPositive(t *testing.T) {
	g := Group{
		Key: "G",
		Members: []Member{
			{ID: "1", Value: 5, Case: "A", Category: "x"},
			{ID: "2", Value: 2, Case: "A", Category: "y"},
			{ID: "3", Value: -2, Case: "A", Category: "y"}, // (A, y) sums to zero
			{ID: "4", Value: -1, Case: "B", Category: "x"}, // (B, x) negative
		},
	}

	h, err := BuildHierarchy(g)
	if err != nil {
		t.Fatalf("BuildHierarchy error: %v", err)
	}
	if h.DroppedCombos != 2 {
		t.Errorf("DroppedCombos = %d, want 2", h.DroppedCombos)
	}
	if len(h.Root.Children) != 1 {
		t.Fatalf("root has %d children, want 1 (only case A survives)", len(h.Root.Children))
	}
	if len(h.Root.Children[0].Children) != 1 {
		t.Errorf("case A should keep only the (A, x) leaf")
	}
	if math.Abs(h.Root.Value-5) > 1e-12 {
		t.Errorf("root value = %v, want 5", h.Root.Value)
	}
}

func TestBuildHierarchyAllDropped(t *testing.T) {
	g := Group{
		Key:     "G",
		Members: []Member{{ID: "1", Value: 0, Case: "A", Category: "x"}},
	}

	_, err := BuildHierarchy(g)
	if err == nil {
		t.Fatal("expected error when nothing survives")
	}
	if !errors.Is(err, errors.ErrCodeZeroSum) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeZeroSum)
	}
	if !errors.IsData(err) {
		t.Errorf("should be a data error (group-scoped skip), got %v", err)
	}
}

func TestToDOT(t *testing.T) {
	g := Group{
		Key: "HH",
		Members: []Member{
			{ID: "1", Value: 4, Case: "A", Category: "retail"},
			{ID: "2", Value: 5, Category: "misc"},
		},
	}
	h, err := BuildHierarchy(g)
	if err != nil {
		t.Fatalf("BuildHierarchy error: %v", err)
	}

	dot := ToDOT(h, DOTOptions{})

	for _, want := range []string{
		"digraph G {",
		`"root" [label="HH"`,
		`"c0" [label="A"`,
		`"c0_0" [label="retail"`,
		`"c1" [label="misc"`,
		`"root" -> "c0";`,
		`"c0" -> "c0_0";`,
		`"root" -> "c1";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}

	detailed := ToDOT(h, DOTOptions{Detailed: true})
	if !strings.Contains(detailed, "value: 4") || !strings.Contains(detailed, "records: 1") {
		t.Errorf("detailed DOT should include values and counts:\n%s", detailed)
	}
}
