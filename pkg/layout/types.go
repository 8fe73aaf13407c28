package layout

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Layout tools.
const (
	ToolCircles = "circles"
	ToolNested  = "nested"
	ToolTreemap = "treemap"
)

// Export formats.
const (
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
)

// Role identifies what a circle feature represents.
type Role string

// Circle roles.
const (
	RoleRoot   Role = "root"   // Group enclosure of a nested layout
	RoleGroup  Role = "group"  // Case enclosure inside the root
	RoleCircle Role = "circle" // Leaf circle
)

// Hierarchy levels for nested layouts. Flat layouts place every circle at
// level 0.
const (
	LevelRoot = 0
	LevelCase = 1
	LevelLeaf = 2
)

// =============================================================================
// Layout - Unified Output Format
// =============================================================================

// Layout is the unified serialization format for all layout tools.
//
// This is a discriminated union type - check Tool to determine which
// fields are populated:
//
//	Flat and nested circles ("circles", "nested"):
//	  - Circles: positioned circle features
//
//	Treemap ("treemap"):
//	  - Rects: positioned rectangle features
//
// Shared fields (all tools):
//   - MinSize, MaxSize: symbol size range the run was scaled to
//   - Sort, SortField, Seed: ordering options, kept for reproducibility
//   - Summary: per-run accounting (groups, skips, dropped records)
//
// All coordinates are map coordinates in the units of the source x/y
// columns. Layouts round-trip through JSON without loss.
type Layout struct {
	// Discriminator
	Tool string `json:"tool" bson:"tool"`

	// Options recorded for reproducibility
	MinSize   float64 `json:"min_size,omitempty" bson:"min_size,omitempty"`
	MaxSize   float64 `json:"max_size,omitempty" bson:"max_size,omitempty"`
	Sort      string  `json:"sort,omitempty" bson:"sort,omitempty"`
	SortField string  `json:"sort_field,omitempty" bson:"sort_field,omitempty"`
	Seed      uint64  `json:"seed,omitempty" bson:"seed,omitempty"`

	// Circle tools
	Circles []CircleFeature `json:"circles,omitempty" bson:"circles,omitempty"`

	// Treemap
	Rects []RectFeature `json:"rects,omitempty" bson:"rects,omitempty"`

	// Run accounting
	Summary *Summary `json:"summary,omitempty" bson:"summary,omitempty"`
}

// IsCircles returns true if this is a flat circle layout.
func (l *Layout) IsCircles() bool { return l.Tool == ToolCircles }

// IsNested returns true if this is a nested circle layout.
func (l *Layout) IsNested() bool { return l.Tool == ToolNested }

// IsTreemap returns true if this is a treemap layout.
func (l *Layout) IsTreemap() bool { return l.Tool == ToolTreemap }

// FeatureCount returns the number of positioned features across both
// geometry kinds.
func (l *Layout) FeatureCount() int { return len(l.Circles) + len(l.Rects) }

// Bounds returns the bounding box of every feature in map coordinates.
// ok is false when the layout has no features.
func (l *Layout) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	first := true
	grow := func(x0, y0, x1, y1 float64) {
		if first {
			minX, minY, maxX, maxY = x0, y0, x1, y1
			first = false
			return
		}
		minX = min(minX, x0)
		minY = min(minY, y0)
		maxX = max(maxX, x1)
		maxY = max(maxY, y1)
	}
	for _, c := range l.Circles {
		grow(c.X-c.Radius, c.Y-c.Radius, c.X+c.Radius, c.Y+c.Radius)
	}
	for _, r := range l.Rects {
		grow(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
	}
	return minX, minY, maxX, maxY, !first
}

// =============================================================================
// CircleFeature - Circle Tool Element
// =============================================================================

// CircleFeature is one positioned circle in map coordinates.
// X and Y are the circle center.
type CircleFeature struct {
	ID     string  `json:"id,omitempty" bson:"id,omitempty"` // Source record ID (flat leaves only)
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Radius float64 `json:"radius" bson:"radius"`

	// Hierarchy position
	Level int  `json:"level,omitempty" bson:"level,omitempty"`
	Role  Role `json:"role" bson:"role"`

	// Source attributes
	Group    string  `json:"group" bson:"group"`
	Case     string  `json:"case,omitempty" bson:"case,omitempty"`
	Category string  `json:"category,omitempty" bson:"category,omitempty"`
	Value    float64 `json:"value" bson:"value"`
	Count    int     `json:"count,omitempty" bson:"count,omitempty"` // Records aggregated into this circle
}

// IsRoot returns true if this circle is a group enclosure.
func (c *CircleFeature) IsRoot() bool { return c.Role == RoleRoot }

// IsLeaf returns true if this circle carries a leaf value.
func (c *CircleFeature) IsLeaf() bool { return c.Role == RoleCircle }

// =============================================================================
// RectFeature - Treemap Element
// =============================================================================

// RectFeature is one positioned treemap rectangle in map coordinates.
// X and Y are the lower-left corner.
type RectFeature struct {
	ID     string  `json:"id,omitempty" bson:"id,omitempty"` // Source record ID (member-valued treemaps only)
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`

	// Source attributes
	Group string  `json:"group" bson:"group"`
	Case  string  `json:"case,omitempty" bson:"case,omitempty"`
	Value float64 `json:"value" bson:"value"`
}

// =============================================================================
// Summary - Run Accounting
// =============================================================================

// Summary counts what a layout run produced and what it left behind.
// Every record or group that does not reach the output appears here, so
// data loss is always visible.
type Summary struct {
	Tool     string `json:"tool" bson:"tool"`
	Records  int    `json:"records" bson:"records"`   // Records that entered aggregation
	Groups   int    `json:"groups" bson:"groups"`     // Groups laid out
	Features int    `json:"features" bson:"features"` // Geometry features written
	Skipped  []Skip `json:"skipped,omitempty" bson:"skipped,omitempty"`

	// Records and aggregate items dropped before layout
	DroppedNullValue int `json:"dropped_null_value,omitempty" bson:"dropped_null_value,omitempty"`
	DroppedNullGroup int `json:"dropped_null_group,omitempty" bson:"dropped_null_group,omitempty"`
	DroppedCombos    int `json:"dropped_combos,omitempty" bson:"dropped_combos,omitempty"`
	DroppedItems     int `json:"dropped_items,omitempty" bson:"dropped_items,omitempty"`
}

// Dropped returns the total count of records and aggregate items that were
// dropped before layout.
func (s *Summary) Dropped() int {
	return s.DroppedNullValue + s.DroppedNullGroup + s.DroppedCombos + s.DroppedItems
}

// Skip records one group that was left out of the layout and why.
type Skip struct {
	Group  string `json:"group" bson:"group"`
	Code   string `json:"code" bson:"code"` // Machine-readable error code
	Reason string `json:"reason" bson:"reason"`
}
