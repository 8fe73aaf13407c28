// Package pkg provides the core libraries for cartopack proportional-symbol layouts.
//
// # Overview
//
// Cartopack turns tabular geodata into proportional-symbol layouts: flat
// circle packs, nested circle hierarchies, and squarified treemaps, each
// anchored at its group's centroid. The pkg directory is organized into
// four main areas:
//
//  1. Data - reading and aggregating records ([feature], [aggregate])
//  2. Geometry - packing and tiling algorithms ([geom], [pack], [treemap], [scale])
//  3. Composition - assembling and serializing layouts ([compose], [layout])
//  4. Orchestration - the cached pipeline and run storage ([pipeline], [cache], [store])
//
// # Architecture
//
// The typical data flow through cartopack:
//
//	CSV table / inline records
//	         ↓
//	    [feature] package (typed records)
//	         ↓
//	    [aggregate] package (groups, centroids, hierarchies)
//	         ↓
//	    [pack] / [treemap] packages (local arrangements)
//	         ↓
//	    [compose] package (scaling + anchoring)
//	         ↓
//	    JSON / GeoJSON output
//
// # Quick Start
//
// Lay out a table of records and export GeoJSON:
//
//	import "github.com/cartopack/cartopack/pkg/pipeline"
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:   "cities.csv",
//	    Fields:  feature.Fields{Value: "pop", Group: "region"},
//	    Tool:    pipeline.ToolNested,
//	    MinSize: 4,
//	    MaxSize: 40,
//	    Formats: []string{pipeline.FormatGeoJSON},
//	})
//
// # Main Packages
//
// ## Data
//
// [feature] - Typed records and CSV reading. Value cells are nullable so
// drop accounting stays exact; coordinate columns are detected by common
// header names when not configured.
//
// [aggregate] - Grouping, centroid math, and the group/case/category
// hierarchy, plus Graphviz DOT rendering of hierarchies for inspection.
//
// ## Geometry
//
// [geom] - Circle and rectangle primitives shared by the arrangement
// algorithms.
//
// [pack] - Front-chain circle packing and enclosing-circle computation.
// Arrangements live in local coordinates around the origin.
//
// [treemap] - Squarified treemap tiling with per-level nesting.
//
// [scale] - Square-root size scaling, fitted per run so symbol area tracks
// value across every group.
//
// ## Composition
//
// [compose] - Turns aggregated groups into positioned features: sizes
// arrangements with a fitted scaler, anchors them at group centroids, and
// re-attaches source attributes.
//
// [layout] - The unified output format for all tools, with JSON and
// GeoJSON encoding.
//
// ## Orchestration
//
// [pipeline] - The staged Read → Aggregate → Layout → Export pipeline with
// per-stage content-addressed caching, used by the CLI and the API server.
//
// [cache] - Cache backends (file, Redis, null) and content-hash keying.
//
// [store] - Run persistence for the API server (memory, MongoDB).
//
// [errors] - Coded errors shared across the module; codes distinguish
// configuration, data, and layout failures.
//
// [observability] - Process-wide hook points for pipeline, cache, and
// server instrumentation.
//
// [buildinfo] - Build metadata injected via ldflags.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/pack/...      # Specific package
//	go test -run Example        # Examples only
//
// [feature]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/feature
// [aggregate]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/aggregate
// [geom]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/geom
// [pack]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/pack
// [treemap]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/treemap
// [scale]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/scale
// [compose]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/compose
// [layout]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/layout
// [pipeline]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/cache
// [store]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/store
// [errors]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/errors
// [observability]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/cartopack/cartopack/pkg/buildinfo
package pkg
