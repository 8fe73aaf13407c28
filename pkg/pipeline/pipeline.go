// Package pipeline provides the core layout pipeline for Cartopack.
//
// This package implements the complete read → aggregate → layout → export
// pipeline that can be used by CLI and API components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid
// code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Read: Parse records from a CSV table or accept them directly
//  2. Aggregate: Bucket records into groups with sums and centroids
//  3. Layout: Run the selected tool over each group and assemble features
//  4. Export: Encode the layout in the requested output formats
//
// Each stage can be run independently or as part of the complete pipeline.
// Group-scoped data and layout errors never abort a run: the affected group
// is skipped and the skip is recorded in the layout summary.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input: "cities.csv",
//	    Tool:  pipeline.ToolNested,
//	    Fields: feature.Fields{
//	        Value: "pop",
//	        Group: "region",
//	        Case:  "sector",
//	    },
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	geojson := result.Artifacts["geojson"]
//
// Run individual stages:
//
//	// Read only
//	src, err := runner.ReadSource(ctx, opts)
//
//	// Aggregate with existing records
//	grouping, err := runner.Aggregate(ctx, src, opts)
//
//	// Layout with existing groups
//	l, err := runner.ComputeLayout(ctx, grouping, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cartopack/cartopack/pkg/aggregate"
	"github.com/cartopack/cartopack/pkg/cache"
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/pack"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMinSize is the default minimum symbol size (diameter or square
	// width) in map units.
	DefaultMinSize = 10.0

	// DefaultMaxSize is the default maximum symbol size in map units.
	DefaultMaxSize = 100.0

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// FlatMinMembers is the smallest group the flat tool will pack. Smaller
	// groups are skipped during aggregation and reported in the summary.
	FlatMinMembers = 3
)

// DefaultTool is the default layout tool.
const DefaultTool = layout.ToolCircles

// DefaultSort is the default member ordering.
const DefaultSort = string(pack.SortDefault)

// Tool constants name the layout tools.
const (
	ToolCircles = layout.ToolCircles
	ToolNested  = layout.ToolNested
	ToolTreemap = layout.ToolTreemap
)

// Format constants for output formats.
const (
	FormatJSON    = layout.FormatJSON
	FormatGeoJSON = layout.FormatGeoJSON
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:    true,
	FormatGeoJSON: true,
}

// ValidTools is the set of supported layout tools.
var ValidTools = map[string]bool{
	ToolCircles: true,
	ToolNested:  true,
	ToolTreemap: true,
}

// ValidSorts is the set of supported member orderings.
var ValidSorts = map[string]bool{
	string(pack.SortDefault):    true,
	string(pack.SortAscending):  true,
	string(pack.SortDescending): true,
	string(pack.SortRandom):     true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the layout pipeline.
// This struct supports JSON serialization for API requests and BSON
// serialization when persisted with a stored run.
type Options struct {
	// Read options. Records take precedence over Input when both are set;
	// Fields configures column lookup for CSV input and enables the case
	// and category levels for the hierarchical tools.
	Input   string           `json:"input,omitempty" bson:"input,omitempty"`
	Records []feature.Record `json:"records,omitempty" bson:"records,omitempty"`
	Fields  feature.Fields   `json:"fields" bson:"fields"`

	// Refresh bypasses the source and aggregation caches.
	Refresh bool `json:"refresh,omitempty" bson:"refresh,omitempty"`

	// Layout options
	Tool      string  `json:"tool,omitempty" bson:"tool,omitempty"`
	MinSize   float64 `json:"min_size,omitempty" bson:"min_size,omitempty"`
	MaxSize   float64 `json:"max_size,omitempty" bson:"max_size,omitempty"`
	Sort      string  `json:"sort,omitempty" bson:"sort,omitempty"`
	SortField string  `json:"sort_field,omitempty" bson:"sort_field,omitempty"`
	Seed      uint64  `json:"seed,omitempty" bson:"seed,omitempty"`

	// Export options
	Formats []string `json:"formats,omitempty" bson:"formats,omitempty"`
	Pretty  bool     `json:"pretty,omitempty" bson:"pretty,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" bson:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-" bson:"-"`
}

// Source is the outcome of the read stage.
// Hash is the content hash of the raw input, used for downstream cache keys;
// it is recomputed on every run rather than serialized.
type Source struct {
	Records []feature.Record   `json:"records"`
	Report  feature.ReadReport `json:"report"`
	Hash    string             `json:"-"`
}

// Grouping is the outcome of the aggregation stage. It carries the read
// report alongside the groups so that everything the layout summary needs
// is covered by a single content hash.
type Grouping struct {
	Report feature.ReadReport `json:"report"`
	Result aggregate.Result   `json:"result"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this execution.
	RunID string

	// GroupsHash is the content hash of the aggregated groups.
	GroupsHash string

	// Layout contains the computed features and the run summary.
	Layout layout.Layout

	// Artifacts contains encoded outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RecordCount   int           `json:"record_count" bson:"record_count"`
	GroupCount    int           `json:"group_count" bson:"group_count"`
	FeatureCount  int           `json:"feature_count" bson:"feature_count"`
	ReadTime      time.Duration `json:"read_time" bson:"read_time"`
	AggregateTime time.Duration `json:"aggregate_time" bson:"aggregate_time"`
	LayoutTime    time.Duration `json:"layout_time" bson:"layout_time"`
	ExportTime    time.Duration `json:"export_time" bson:"export_time"`
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SourceHit bool `json:"source_hit"` // Whether parsed records came from cache
	GroupsHit bool `json:"groups_hit"` // Whether aggregated groups came from cache
	LayoutHit bool `json:"layout_hit"` // Whether the layout came from cache
	ExportHit bool `json:"export_hit"` // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateTool checks that a layout tool is valid.
func ValidateTool(tool string) error {
	if !ValidTools[tool] {
		return errors.New(errors.ErrCodeInvalidTool, "invalid tool: %q (must be one of: circles, nested, treemap)", tool)
	}
	return nil
}

// ValidateSort checks that a sort mode is valid.
func ValidateSort(sort string) error {
	if !ValidSorts[sort] {
		return errors.New(errors.ErrCodeInvalidSortMode, "invalid sort: %q (must be one of: default, ascending, descending, random)", sort)
	}
	return nil
}

// ValidateFormat checks that an output format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid format: %q (must be one of: json, geojson)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults for the full
// pipeline. Configuration errors are detected here, before any stage runs.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForRead(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForRead checks required fields for the read stage. Column names
// are only required for CSV input; directly supplied records are already
// typed.
func (o *Options) ValidateForRead() error {
	if o.Input == "" && len(o.Records) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "input path or records are required")
	}

	if len(o.Records) == 0 {
		if err := errors.ValidateFieldName("value", o.Fields.Value); err != nil {
			return err
		}
		if err := errors.ValidateFieldName("group", o.Fields.Group); err != nil {
			return err
		}
		for _, f := range []struct{ label, name string }{
			{"id", o.Fields.ID},
			{"case", o.Fields.Case},
			{"category", o.Fields.Category},
			{"x", o.Fields.X},
			{"y", o.Fields.Y},
		} {
			if err := errors.ValidateOptionalFieldName(f.label, f.name); err != nil {
				return err
			}
		}
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Tool == "" {
		o.Tool = DefaultTool
	}
	if o.MinSize == 0 && o.MaxSize == 0 {
		o.MinSize = DefaultMinSize
		o.MaxSize = DefaultMaxSize
	}
	if o.Sort == "" {
		o.Sort = DefaultSort
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForAggregate validates and sets defaults for aggregation. The
// tool matters here because the flat tool raises the minimum group size.
func (o *Options) ValidateForAggregate() error {
	o.SetLayoutDefaults()
	return ValidateTool(o.Tool)
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateTool(o.Tool); err != nil {
		return err
	}
	if err := ValidateSort(o.Sort); err != nil {
		return err
	}
	if err := errors.ValidateOptionalFieldName("sort", o.SortField); err != nil {
		return err
	}
	return errors.ValidateSizeRange(o.MinSize, o.MaxSize)
}

// SetExportDefaults sets default values for export.
func (o *Options) SetExportDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForExport validates and sets defaults for export.
func (o *Options) ValidateForExport() error {
	o.SetExportDefaults()
	return ValidateFormats(o.Formats)
}

// IsCircles returns true if this is a flat circles layout.
func (o *Options) IsCircles() bool {
	return o.Tool == "" || o.Tool == ToolCircles
}

// IsNested returns true if this is a nested circles layout.
func (o *Options) IsNested() bool {
	return o.Tool == ToolNested
}

// IsTreemap returns true if this is a treemap layout.
func (o *Options) IsTreemap() bool {
	return o.Tool == ToolTreemap
}

// UseCase reports whether a case field is configured. The treemap tiles
// per-case totals when it is and per member otherwise; for CSV input it
// also selects the column that fills each record's case key.
func (o *Options) UseCase() bool {
	return o.Fields.Case != ""
}

// SortMode returns the configured ordering as a pack sort mode.
func (o *Options) SortMode() pack.SortMode {
	if o.Sort == "" {
		return pack.SortDefault
	}
	return pack.SortMode(o.Sort)
}

// MinGroupSize returns the smallest group the configured tool lays out.
// Only the flat tool has a packing threshold; the hierarchical tools accept
// single-member groups.
func (o *Options) MinGroupSize() int {
	if o.IsCircles() {
		return FlatMinMembers
	}
	return 1
}

// GroupsKeyOpts returns cache key options for the aggregation stage.
func (o *Options) GroupsKeyOpts() cache.GroupsKeyOpts {
	return cache.GroupsKeyOpts{
		Tool:          o.Tool,
		IDField:       o.Fields.ID,
		GroupField:    o.Fields.Group,
		ValueField:    o.Fields.Value,
		CaseField:     o.Fields.Case,
		CategoryField: o.Fields.Category,
		XField:        o.Fields.X,
		YField:        o.Fields.Y,
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Tool:      o.Tool,
		MinSize:   o.MinSize,
		MaxSize:   o.MaxSize,
		Sort:      o.Sort,
		SortField: o.SortField,
		Seed:      o.Seed,
	}
}

// ExportKeyOpts returns cache key options for artifact export.
func (o *Options) ExportKeyOpts(format string) cache.ExportKeyOpts {
	return cache.ExportKeyOpts{
		Format: format,
		Pretty: o.Pretty,
	}
}
