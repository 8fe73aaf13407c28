// Package layout defines serialization types for computed layouts.
//
// This package is the canonical wire format for Cartopack's geometry output,
// used for JSON files, API responses, caching, and downstream GIS ingestion.
//
// # Architecture
//
// The package sits at the serialization boundary between the packing
// algorithms and external formats:
//
//   - [Layout]: Serialized output of a layout run (this package)
//   - pkg/pack, pkg/treemap: Internal arrangements in local coordinates
//   - pkg/compose: Translates arrangements into positioned features
//
// # Core Types
//
//   - [Layout]: Unified format for all tools (circles, nested, treemap)
//   - [CircleFeature], [RectFeature]: Positioned geometry in map coordinates
//   - [Summary], [Skip]: Per-run accounting, so nothing is lost silently
//
// # Constants
//
// This package is the single source of truth for layout vocabulary:
//
//	layout.ToolCircles   // "circles"
//	layout.ToolNested    // "nested"
//	layout.ToolTreemap   // "treemap"
//	layout.RoleRoot      // "root"
//	layout.RoleGroup     // "group"
//	layout.RoleCircle    // "circle"
//
// # Serialization
//
// Layouts are discriminated by Tool:
//
//	l, _ := layout.ReadLayoutFile("symbols.json")
//	if l.IsTreemap() {
//	    // Use l.Rects
//	} else {
//	    // Use l.Circles
//	}
//
// Common operations:
//
//	data, _ := layout.MarshalLayout(l)          // Layout → []byte
//	l, _ := layout.UnmarshalLayout(data)        // []byte → Layout
//	layout.WriteLayoutFile(l, "out.json")       // Layout → file
//	data, _ := layout.Encode(l, "geojson", true) // Layout → export format
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package layout
