package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/cartopack/cartopack/pkg/aggregate"
	"github.com/cartopack/cartopack/pkg/cache"
	"github.com/cartopack/cartopack/pkg/compose"
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/observability"
	"github.com/cartopack/cartopack/pkg/pack"
	"github.com/cartopack/cartopack/pkg/scale"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete read → aggregate → layout → export pipeline
// with caching. Cancellation is honored between groups, never mid-packing.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		RunID:     uuid.New().String(),
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Read
	readStart := time.Now()
	src, sourceHit, err := r.ReadSourceWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	result.Stats.ReadTime = time.Since(readStart)
	result.Stats.RecordCount = len(src.Records)
	result.CacheInfo.SourceHit = sourceHit

	r.Logger.Info("read records",
		"records", len(src.Records),
		"skipped_rows", src.Report.SkippedRows,
		"duration", result.Stats.ReadTime)

	// Stage 2: Aggregate
	aggStart := time.Now()
	grouping, groupsHit, err := r.AggregateWithCacheInfo(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	result.Stats.AggregateTime = time.Since(aggStart)
	result.Stats.GroupCount = len(grouping.Result.Groups)
	result.CacheInfo.GroupsHit = groupsHit

	// Compute groups hash for cache keys and API responses
	if data, err := json.Marshal(grouping); err == nil {
		result.GroupsHash = cache.Hash(data)
	}

	r.Logger.Info("aggregated groups",
		"groups", len(grouping.Result.Groups),
		"skipped", len(grouping.Result.Skips),
		"duration", result.Stats.AggregateTime)

	// Stage 3: Layout
	layoutStart := time.Now()
	l, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, grouping, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.FeatureCount = l.FeatureCount()
	result.CacheInfo.LayoutHit = layoutHit

	skipped := 0
	if l.Summary != nil {
		skipped = len(l.Summary.Skipped)
	}
	r.Logger.Info("computed layout",
		"tool", opts.Tool,
		"features", result.Stats.FeatureCount,
		"skipped_groups", skipped,
		"duration", result.Stats.LayoutTime)

	// Stage 4: Export
	exportStart := time.Now()
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported layout",
		"formats", opts.Formats,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// ReadSourceWithCacheInfo reads records with caching and returns cache hit
// info. Directly supplied records bypass the cache; CSV input is cached
// keyed by the file content and the configured columns.
func (r *Runner) ReadSourceWithCacheInfo(ctx context.Context, opts Options) (*Source, bool, error) {
	if err := opts.ValidateForRead(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	if len(opts.Records) > 0 {
		data, err := json.Marshal(opts.Records)
		if err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash records")
		}
		return &Source{
			Records: opts.Records,
			Report:  feature.ReadReport{Rows: len(opts.Records), Records: len(opts.Records)},
			Hash:    cache.Hash(data),
		}, false, nil
	}

	raw, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeReadInput, err, "read input %s", opts.Input)
	}
	contentHash := cache.Hash(raw)

	// The parsed records depend on the column configuration as well as the
	// bytes, so the cache key covers both.
	fieldsJSON, _ := json.Marshal(opts.Fields)
	cacheKey := r.Keyer.SourceKey("csv", cache.Hash([]byte(contentHash+string(fieldsJSON))))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var src Source
			if err := json.Unmarshal(data, &src); err == nil {
				src.Hash = contentHash
				observability.Cache().OnCacheHit(ctx, "source")
				return &src, true, nil // Cache hit
			}
		}
		observability.Cache().OnCacheMiss(ctx, "source")
	}

	records, report, err := feature.ParseCSV(bytes.NewReader(raw), opts.Fields)
	if err != nil {
		return nil, false, err
	}
	src := &Source{Records: records, Report: report, Hash: contentHash}

	// Cache the result
	if !opts.Refresh {
		if data, err := json.Marshal(src); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLSource)
			observability.Cache().OnCacheSet(ctx, "source", len(data))
		}
	}

	return src, false, nil // Cache miss
}

// ReadSource is a convenience wrapper that calls ReadSourceWithCacheInfo and
// discards the cache hit info.
func (r *Runner) ReadSource(ctx context.Context, opts Options) (*Source, error) {
	src, _, err := r.ReadSourceWithCacheInfo(ctx, opts)
	return src, err
}

// AggregateWithCacheInfo aggregates records into groups with caching and
// returns cache hit info.
func (r *Runner) AggregateWithCacheInfo(ctx context.Context, src *Source, opts Options) (*Grouping, bool, error) {
	if err := opts.ValidateForAggregate(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.GroupsKey(src.Hash, opts.GroupsKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var g Grouping
			if err := json.Unmarshal(data, &g); err == nil {
				observability.Cache().OnCacheHit(ctx, "groups")
				return &g, true, nil // Cache hit
			}
		}
		observability.Cache().OnCacheMiss(ctx, "groups")
	}

	g := Aggregate(ctx, src, opts)

	// Cache the result
	if !opts.Refresh {
		if data, err := json.Marshal(g); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLGroups)
			observability.Cache().OnCacheSet(ctx, "groups", len(data))
		}
	}

	return g, false, nil // Cache miss
}

// Aggregate is a convenience wrapper that calls AggregateWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Aggregate(ctx context.Context, src *Source, opts Options) (*Grouping, error) {
	g, _, err := r.AggregateWithCacheInfo(ctx, src, opts)
	return g, err
}

// ComputeLayoutWithCacheInfo computes a layout with caching and returns
// cache hit info.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, g *Grouping, opts Options) (layout.Layout, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key
	groupsData, _ := json.Marshal(g)
	groupsHash := cache.Hash(groupsData)
	cacheKey := r.Keyer.LayoutKey(groupsHash, opts.LayoutKeyOpts())

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		cached, err := layout.UnmarshalLayout(data)
		if err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			return cached, true, nil // Cache hit
		}
		// If deserialization fails, fall through to recompute
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	l, err := ComputeLayout(ctx, g, opts)
	if err != nil {
		return layout.Layout{}, false, err
	}

	// Cache the result
	if data, err := layout.MarshalLayout(l); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout)
		observability.Cache().OnCacheSet(ctx, "layout", len(data))
	}

	return l, false, nil // Cache miss
}

// ComputeLayout is a convenience wrapper that calls
// ComputeLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, g *Grouping, opts Options) (layout.Layout, error) {
	l, _, err := r.ComputeLayoutWithCacheInfo(ctx, g, opts)
	return l, err
}

// ExportWithCacheInfo encodes artifacts with caching and returns cache hit
// info.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key from layout data
	layoutData, err := layout.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ExportKey(layoutHash, opts.ExportKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "export")
		return artifacts, true, nil // All artifacts from cache
	}
	observability.Cache().OnCacheMiss(ctx, "export")

	encoded, err := Export(ctx, l, opts)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range encoded {
		cacheKey := r.Keyer.ExportKey(layoutHash, opts.ExportKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLExport)
		observability.Cache().OnCacheSet(ctx, "export", len(data))
	}

	return encoded, false, nil // Cache miss
}

// Export is a convenience wrapper that calls ExportWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Export(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.ExportWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// =============================================================================
// Aggregation Stage
// =============================================================================

// Aggregate buckets records into groups for the configured tool. Groups
// dropped during aggregation are reported through the skip hook; they stay
// in the result so the layout summary can surface them.
func Aggregate(ctx context.Context, src *Source, opts Options) *Grouping {
	start := time.Now()
	observability.Pipeline().OnAggregateStart(ctx, opts.Tool, len(src.Records))

	res := aggregate.Groups(src.Records, opts.MinGroupSize())
	for _, s := range res.Skips {
		observability.Pipeline().OnGroupSkipped(ctx, s.Group, string(s.Code))
	}

	observability.Pipeline().OnAggregateComplete(ctx, opts.Tool, len(res.Groups), time.Since(start), nil)
	return &Grouping{Report: src.Report, Result: res}
}

// =============================================================================
// Layout Stage
// =============================================================================

// ComputeLayout runs the configured tool over every aggregated group and
// assembles the features into a serializable layout.
//
// Group-scoped data and layout errors skip the group and record the reason
// in the summary; any other error aborts the run. Cancellation is checked
// at group boundaries only, so a finished group is never half-placed.
func ComputeLayout(ctx context.Context, g *Grouping, opts Options) (layout.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, err
	}

	start := time.Now()
	groups := g.Result.Groups
	observability.Pipeline().OnLayoutStart(ctx, opts.Tool, len(groups))

	l := layout.Layout{
		Tool:      opts.Tool,
		MinSize:   opts.MinSize,
		MaxSize:   opts.MaxSize,
		Sort:      opts.Sort,
		SortField: opts.SortField,
	}
	if opts.SortMode() == pack.SortRandom {
		l.Seed = opts.Seed
	}

	sum := &layout.Summary{
		Tool:             opts.Tool,
		Records:          g.Report.Records,
		DroppedNullValue: g.Result.DroppedNullValue,
		DroppedNullGroup: g.Result.DroppedNullGroup,
	}
	for _, s := range g.Result.Skips {
		sum.Skipped = append(sum.Skipped, layout.Skip{Group: s.Group, Code: string(s.Code), Reason: s.Reason})
	}

	if err := validateSortField(groups, opts); err != nil {
		observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), err)
		return layout.Layout{}, err
	}

	if len(groups) == 0 {
		l.Summary = sum
		observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), nil)
		return l, nil
	}

	sc, err := fitScaler(groups, opts)
	if err != nil {
		if !errors.IsData(err) {
			observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), err)
			return layout.Layout{}, err
		}
		// A domain-wide data problem (for example a non-finite value) skips
		// every group with the same reason.
		code := string(errors.GetCode(err))
		for i, grp := range groups {
			sum.Skipped = append(sum.Skipped, layout.Skip{Group: grp.Key, Code: code, Reason: errors.UserMessage(err)})
			observability.Pipeline().OnGroupSkipped(ctx, grp.Key, code)
			observability.Pipeline().OnGroupProcessed(ctx, grp.Key, i+1, len(groups))
		}
		l.Summary = sum
		observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), nil)
		return l, nil
	}

	rng := pack.NewRand(opts.Seed)
	for i, grp := range groups {
		if err := ctx.Err(); err != nil {
			observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), err)
			return layout.Layout{}, err
		}

		if err := layoutGroup(&l, sum, grp, sc, opts, rng); err != nil {
			if !errors.IsGroupScoped(err) {
				observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), err)
				return layout.Layout{}, err
			}
			code := string(errors.GetCode(err))
			sum.Skipped = append(sum.Skipped, layout.Skip{Group: grp.Key, Code: code, Reason: errors.UserMessage(err)})
			observability.Pipeline().OnGroupSkipped(ctx, grp.Key, code)
		} else {
			sum.Groups++
		}
		observability.Pipeline().OnGroupProcessed(ctx, grp.Key, i+1, len(groups))
	}

	sum.Features = l.FeatureCount()
	l.Summary = sum
	observability.Pipeline().OnLayoutComplete(ctx, opts.Tool, time.Since(start), nil)
	return l, nil
}

// layoutGroup runs one group through the configured tool and appends its
// features to the layout.
func layoutGroup(l *layout.Layout, sum *layout.Summary, grp aggregate.Group, sc *scale.Scaler, opts Options, rng *rand.Rand) error {
	switch {
	case opts.IsNested():
		feats, dropped, err := compose.NestedCircles(grp, sc)
		if err != nil {
			return err
		}
		sum.DroppedCombos += dropped
		l.Circles = append(l.Circles, feats...)

	case opts.IsTreemap():
		rects, dropped, err := compose.TreemapRects(grp, sc, opts.UseCase())
		if err != nil {
			return err
		}
		sum.DroppedItems += dropped
		l.Rects = append(l.Rects, rects...)

	default:
		feats, err := compose.FlatCircles(grp, sc, compose.Options{
			Sort:      opts.SortMode(),
			SortField: opts.SortField,
			Rand:      rng,
		})
		if err != nil {
			return err
		}
		l.Circles = append(l.Circles, feats...)
	}
	return nil
}

// fitScaler fits the size scale over the values the tool will actually
// draw: member values for the flat tool, group sums for the tools that size
// a per-group enclosure.
func fitScaler(groups []aggregate.Group, opts Options) (*scale.Scaler, error) {
	var domain []float64
	for _, g := range groups {
		if opts.IsCircles() {
			domain = append(domain, g.Values()...)
		} else {
			domain = append(domain, g.Sum)
		}
	}
	return scale.Fit(domain, opts.MinSize, opts.MaxSize)
}

// validateSortField checks a configured sort field against the source
// columns before any group is laid out. Only raw CSV rows carry columns to
// check; records built in code may omit them, and field ordering then falls
// back to stable input order.
func validateSortField(groups []aggregate.Group, opts Options) error {
	if opts.SortField == "" || !opts.IsCircles() {
		return nil
	}
	if mode := opts.SortMode(); mode != pack.SortAscending && mode != pack.SortDescending {
		return nil
	}
	for _, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		if raw := g.Members[0].Raw; len(raw) > 0 {
			if _, ok := raw[opts.SortField]; !ok {
				return errors.New(errors.ErrCodeMissingField, "sort column %q not in input", opts.SortField)
			}
		}
		return nil
	}
	return nil
}

// =============================================================================
// Export Stage
// =============================================================================

// Export encodes a layout in each requested format.
func Export(ctx context.Context, l layout.Layout, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		start := time.Now()
		observability.Pipeline().OnExportStart(ctx, format)

		data, err := layout.Encode(l, format, opts.Pretty)
		observability.Pipeline().OnExportComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
