package layout

import "encoding/json"

// =============================================================================
// GeoJSON Export (RFC 7946)
// =============================================================================

// FeatureCollection is the top-level GeoJSON container.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON feature with geometry and flat properties.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds a Point or Polygon. Coordinates follow the GeoJSON
// nesting for the type: [x, y] for points, an array of closed rings for
// polygons.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// ToGeoJSON converts a Layout to a GeoJSON FeatureCollection.
//
// GeoJSON has no circle primitive, so circles become Point features with
// the radius carried as a property in map units. Treemap rectangles become
// Polygon features with a single closed ring. Attribute fields move into
// feature properties, empty ones omitted.
func ToGeoJSON(l Layout) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	for _, c := range l.Circles {
		props := map[string]any{
			"radius": c.Radius,
			"level":  c.Level,
			"role":   string(c.Role),
			"group":  c.Group,
			"value":  c.Value,
		}
		if c.ID != "" {
			props["id"] = c.ID
		}
		if c.Case != "" {
			props["case"] = c.Case
		}
		if c.Category != "" {
			props["category"] = c.Category
		}
		if c.Count > 0 {
			props["count"] = c.Count
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: []float64{c.X, c.Y}},
			Properties: props,
		})
	}

	for _, r := range l.Rects {
		ring := [][]float64{
			{r.X, r.Y},
			{r.X + r.Width, r.Y},
			{r.X + r.Width, r.Y + r.Height},
			{r.X, r.Y + r.Height},
			{r.X, r.Y},
		}
		props := map[string]any{
			"group": r.Group,
			"value": r.Value,
		}
		if r.ID != "" {
			props["id"] = r.ID
		}
		if r.Case != "" {
			props["case"] = r.Case
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Polygon", Coordinates: [][][]float64{ring}},
			Properties: props,
		})
	}

	return fc
}

// MarshalGeoJSON serializes a Layout as pretty-printed GeoJSON bytes.
func MarshalGeoJSON(l Layout) ([]byte, error) {
	return json.MarshalIndent(ToGeoJSON(l), "", "  ")
}
