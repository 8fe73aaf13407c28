package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/cartopack/cartopack/pkg/cache"
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/observability"
)

func rec(id string, v float64, group, cs string, x, y float64) feature.Record {
	return feature.Record{ID: id, Value: feature.Float(v), Group: group, Case: cs, X: x, Y: y}
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// twoFlatGroups is three members each in two groups, sized so the value
// extremes land exactly on the configured size range.
func twoFlatGroups() []feature.Record {
	return []feature.Record{
		rec("a1", 10, "north", "", 0, 0),
		rec("a2", 20, "north", "", 2, 0),
		rec("a3", 30, "north", "", 4, 6),
		rec("b1", 15, "south", "", 10, 10),
		rec("b2", 25, "south", "", 12, 10),
		rec("b3", 40, "south", "", 14, 16),
	}
}

func sourceFor(records []feature.Record) *Source {
	return &Source{
		Records: records,
		Report:  feature.ReadReport{Rows: len(records), Records: len(records)},
		Hash:    "test",
	}
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

const testCSV = `id,pop,region,lon,lat
a,10,north,0,0
b,20,north,2,0
c,30,north,4,6
d,15,south,10,10
e,25,south,12,10
f,40,south,14,16
`

func TestAggregateMinMembersPerTool(t *testing.T) {
	records := []feature.Record{
		rec("a", 1, "north", "", 0, 0),
		rec("b", 2, "north", "", 1, 0),
		rec("c", 3, "north", "", 2, 0),
		rec("d", 4, "south", "", 9, 9),
		rec("e", 5, "south", "", 11, 11),
	}
	src := sourceFor(records)

	// The flat tool drops groups below the packing threshold
	g := Aggregate(context.Background(), src, Options{Tool: ToolCircles})
	if len(g.Result.Groups) != 1 || g.Result.Groups[0].Key != "north" {
		t.Fatalf("circles kept %v, want [north]", g.Result.Kept())
	}
	if len(g.Result.Skips) != 1 || g.Result.Skips[0].Code != errors.ErrCodeTooFewMembers {
		t.Errorf("circles skips = %+v, want one %s", g.Result.Skips, errors.ErrCodeTooFewMembers)
	}

	// The hierarchical tools accept small groups
	g = Aggregate(context.Background(), src, Options{Tool: ToolNested})
	if len(g.Result.Groups) != 2 {
		t.Errorf("nested kept %v, want both groups", g.Result.Kept())
	}

	if g.Report.Records != 5 {
		t.Errorf("Report.Records = %d, want 5", g.Report.Records)
	}
}

func TestComputeLayoutFlat(t *testing.T) {
	opts := Options{MinSize: 4, MaxSize: 10}
	g := Aggregate(context.Background(), sourceFor(twoFlatGroups()), opts)

	l, err := ComputeLayout(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("ComputeLayout() error = %v", err)
	}

	if l.Tool != ToolCircles {
		t.Errorf("Tool = %q, want %q", l.Tool, ToolCircles)
	}
	if len(l.Circles) != 6 {
		t.Fatalf("got %d circles, want 6", len(l.Circles))
	}

	// The scale domain spans all member values [10, 40], so the extremes
	// map exactly onto the size range: diameter 4 and diameter 10.
	if l.Circles[0].ID != "a1" || l.Circles[0].Radius != 2 {
		t.Errorf("first circle = %s r=%v, want a1 r=2", l.Circles[0].ID, l.Circles[0].Radius)
	}
	if l.Circles[5].ID != "b3" || l.Circles[5].Radius != 5 {
		t.Errorf("last circle = %s r=%v, want b3 r=5", l.Circles[5].ID, l.Circles[5].Radius)
	}

	for _, c := range l.Circles {
		if c.Role != layout.RoleCircle {
			t.Errorf("circle %s role = %q, want %q", c.ID, c.Role, layout.RoleCircle)
		}
	}

	sum := l.Summary
	if sum == nil {
		t.Fatal("Summary is nil")
	}
	if sum.Records != 6 || sum.Groups != 2 || sum.Features != 6 {
		t.Errorf("summary = %d records / %d groups / %d features, want 6/2/6",
			sum.Records, sum.Groups, sum.Features)
	}
	if len(sum.Skipped) != 0 {
		t.Errorf("skipped = %+v, want none", sum.Skipped)
	}
}

func TestComputeLayoutSkipsShortGroups(t *testing.T) {
	records := append(twoFlatGroups(),
		rec("c1", 12, "west", "", 20, 20),
		rec("c2", 18, "west", "", 22, 20),
	)
	opts := Options{MinSize: 4, MaxSize: 10}
	g := Aggregate(context.Background(), sourceFor(records), opts)

	l, err := ComputeLayout(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("ComputeLayout() error = %v", err)
	}

	if len(l.Circles) != 6 {
		t.Errorf("got %d circles, want 6", len(l.Circles))
	}
	if l.Summary.Groups != 2 {
		t.Errorf("Groups = %d, want 2", l.Summary.Groups)
	}
	if len(l.Summary.Skipped) != 1 {
		t.Fatalf("Skipped = %+v, want one entry", l.Summary.Skipped)
	}
	skip := l.Summary.Skipped[0]
	if skip.Group != "west" || skip.Code != string(errors.ErrCodeTooFewMembers) {
		t.Errorf("skip = %+v, want west/%s", skip, errors.ErrCodeTooFewMembers)
	}
}

func TestComputeLayoutNested(t *testing.T) {
	records := []feature.Record{
		rec("a", 1, "n", "A", 0, 0),
		rec("b", 2, "n", "A", 2, 0),
		rec("c", 3, "n", "A", 2, 2),
		rec("d", 4, "n", "B", 0, 2),
		rec("e", 30, "s", "", 50, 50),
	}
	// Distinct categories keep every member its own leaf.
	for i, cat := range []string{"x", "y", "z", "x", "w"} {
		records[i].Category = cat
	}
	opts := Options{Tool: ToolNested, MinSize: 4, MaxSize: 40}
	g := Aggregate(context.Background(), sourceFor(records), opts)

	l, err := ComputeLayout(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("ComputeLayout() error = %v", err)
	}

	// Group n: root + cases A and B + four leaves. Group s: a root and a
	// caseless leaf attached directly to it.
	if len(l.Circles) != 9 {
		t.Fatalf("got %d circles, want 9", len(l.Circles))
	}

	byRole := map[layout.Role]int{}
	var rootN, rootS *layout.CircleFeature
	for i := range l.Circles {
		c := &l.Circles[i]
		byRole[c.Role]++
		if c.Role == layout.RoleRoot {
			switch c.Group {
			case "n":
				rootN = c
			case "s":
				rootS = c
			}
		}
	}
	if byRole[layout.RoleRoot] != 2 || byRole[layout.RoleGroup] != 2 || byRole[layout.RoleCircle] != 5 {
		t.Errorf("roles = %v, want 2 roots / 2 groups / 5 circles", byRole)
	}

	// Group sums 10 and 30 span the domain, so the enclosure diameters hit
	// the range ends: 4 and 40.
	if rootN == nil || rootN.Radius != 2 {
		t.Errorf("root n = %+v, want radius 2", rootN)
	}
	if rootS == nil || rootS.Radius != 20 {
		t.Errorf("root s = %+v, want radius 20", rootS)
	}

	if l.Summary.Groups != 2 || l.Summary.Features != 9 {
		t.Errorf("summary = %d groups / %d features, want 2/9", l.Summary.Groups, l.Summary.Features)
	}
}

func TestComputeLayoutTreemap(t *testing.T) {
	records := []feature.Record{
		rec("e1", 3, "east", "", 0, 0),
		rec("e2", 1, "east", "", 4, 0),
		rec("w1", 2, "west", "", 20, 0),
		rec("w2", 2, "west", "", 22, 0),
		rec("w3", 5, "west", "", 24, 0),
	}
	opts := Options{Tool: ToolTreemap, MinSize: 4, MaxSize: 8}
	g := Aggregate(context.Background(), sourceFor(records), opts)

	l, err := ComputeLayout(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("ComputeLayout() error = %v", err)
	}

	if len(l.Rects) != 5 {
		t.Fatalf("got %d rects, want 5", len(l.Rects))
	}

	// Group sums 4 and 9 map to square widths 4 and 8; each group's
	// rectangles partition its square.
	areas := map[string]float64{}
	for _, r := range l.Rects {
		if r.Width <= 0 || r.Height <= 0 {
			t.Errorf("rect %s has empty extent: %+v", r.ID, r)
		}
		areas[r.Group] += r.Width * r.Height
	}
	if d := areas["east"] - 16; d > 1e-9 || d < -1e-9 {
		t.Errorf("east area = %v, want 16", areas["east"])
	}
	if d := areas["west"] - 64; d > 1e-9 || d < -1e-9 {
		t.Errorf("west area = %v, want 64", areas["west"])
	}

	if l.Summary.Features != 5 {
		t.Errorf("Features = %d, want 5", l.Summary.Features)
	}
}

func TestComputeLayoutDegenerateDomain(t *testing.T) {
	// A single nested group fits the scale over one sum, so every value
	// hits the degenerate-domain error and the group is skipped rather
	// than silently clamped.
	records := []feature.Record{
		rec("a", 1, "only", "", 0, 0),
		rec("b", 2, "only", "", 2, 0),
	}
	opts := Options{Tool: ToolNested, MinSize: 4, MaxSize: 10}
	g := Aggregate(context.Background(), sourceFor(records), opts)

	l, err := ComputeLayout(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("ComputeLayout() error = %v", err)
	}

	if l.FeatureCount() != 0 {
		t.Errorf("FeatureCount = %d, want 0", l.FeatureCount())
	}
	if len(l.Summary.Skipped) != 1 {
		t.Fatalf("Skipped = %+v, want one entry", l.Summary.Skipped)
	}
	if code := l.Summary.Skipped[0].Code; code != string(errors.ErrCodeDegenerateRange) {
		t.Errorf("skip code = %s, want %s", code, errors.ErrCodeDegenerateRange)
	}
	if l.Summary.Groups != 0 {
		t.Errorf("Groups = %d, want 0", l.Summary.Groups)
	}
}

func TestComputeLayoutSortField(t *testing.T) {
	withRaw := twoFlatGroups()
	for i := range withRaw {
		withRaw[i].Raw = map[string]string{"rank": "1"}
	}

	tests := []struct {
		name     string
		records  []feature.Record
		field    string
		wantCode errors.Code
	}{
		{"known column", withRaw, "rank", ""},
		{"missing column", withRaw, "nope", errors.ErrCodeMissingField},
		{"records without raw rows", twoFlatGroups(), "nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{MinSize: 4, MaxSize: 10, Sort: "ascending", SortField: tt.field}
			g := Aggregate(context.Background(), sourceFor(tt.records), opts)

			_, err := ComputeLayout(context.Background(), g, opts)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("ComputeLayout() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("ComputeLayout() = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestComputeLayoutCancellation(t *testing.T) {
	opts := Options{MinSize: 4, MaxSize: 10}
	g := Aggregate(context.Background(), sourceFor(twoFlatGroups()), opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ComputeLayout(ctx, g, opts)
	if err != context.Canceled {
		t.Errorf("ComputeLayout() error = %v, want context.Canceled", err)
	}
}

// progressRecorder captures per-group progress callbacks.
type progressRecorder struct {
	observability.NoopPipelineHooks
	processed []string
	skipped   []string
}

func (p *progressRecorder) OnGroupProcessed(_ context.Context, key string, done, total int) {
	p.processed = append(p.processed, fmt.Sprintf("%s %d/%d", key, done, total))
}

func (p *progressRecorder) OnGroupSkipped(_ context.Context, key, code string) {
	p.skipped = append(p.skipped, key+":"+code)
}

func TestComputeLayoutReportsProgress(t *testing.T) {
	recorder := &progressRecorder{}
	observability.SetPipelineHooks(recorder)
	t.Cleanup(observability.Reset)

	opts := Options{MinSize: 4, MaxSize: 10}
	g := Aggregate(context.Background(), sourceFor(twoFlatGroups()), opts)

	if _, err := ComputeLayout(context.Background(), g, opts); err != nil {
		t.Fatalf("ComputeLayout() error = %v", err)
	}

	want := []string{"north 1/2", "south 2/2"}
	if len(recorder.processed) != len(want) {
		t.Fatalf("processed = %v, want %v", recorder.processed, want)
	}
	for i, w := range want {
		if recorder.processed[i] != w {
			t.Errorf("processed[%d] = %q, want %q", i, recorder.processed[i], w)
		}
	}
	if len(recorder.skipped) != 0 {
		t.Errorf("skipped = %v, want none", recorder.skipped)
	}
}

func TestRunnerReadSourceRecords(t *testing.T) {
	r := NewRunner(nil, nil, discardLogger())
	defer r.Close()

	src, hit, err := r.ReadSourceWithCacheInfo(context.Background(), Options{Records: twoFlatGroups()})
	if err != nil {
		t.Fatalf("ReadSourceWithCacheInfo() error = %v", err)
	}
	if hit {
		t.Error("direct records should not hit the cache")
	}
	if len(src.Records) != 6 || src.Report.Records != 6 {
		t.Errorf("got %d records (report %d), want 6", len(src.Records), src.Report.Records)
	}
	if src.Hash == "" {
		t.Error("Hash should be set")
	}
}

func TestRunnerReadSourceCSVCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	r := NewRunner(fc, nil, discardLogger())
	defer r.Close()

	opts := Options{
		Input:  writeCSV(t, testCSV),
		Fields: feature.Fields{Value: "pop", Group: "region"},
	}

	src, hit, err := r.ReadSourceWithCacheInfo(context.Background(), opts)
	if err != nil {
		t.Fatalf("first read error = %v", err)
	}
	if hit {
		t.Error("first read should miss")
	}
	if len(src.Records) != 6 {
		t.Fatalf("got %d records, want 6", len(src.Records))
	}

	again, hit, err := r.ReadSourceWithCacheInfo(context.Background(), opts)
	if err != nil {
		t.Fatalf("second read error = %v", err)
	}
	if !hit {
		t.Error("second read should hit")
	}
	if len(again.Records) != 6 || again.Hash != src.Hash {
		t.Errorf("cached read = %d records hash %q, want 6 records hash %q",
			len(again.Records), again.Hash, src.Hash)
	}

	// Refresh bypasses the cache
	opts.Refresh = true
	if _, hit, err = r.ReadSourceWithCacheInfo(context.Background(), opts); err != nil || hit {
		t.Errorf("refresh read = hit %v err %v, want miss and nil", hit, err)
	}
}

func TestRunnerExecuteEndToEnd(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	r := NewRunner(fc, nil, discardLogger())
	defer r.Close()

	opts := Options{
		Input:   writeCSV(t, testCSV),
		Fields:  feature.Fields{Value: "pop", Group: "region"},
		MinSize: 4,
		MaxSize: 10,
		Formats: []string{FormatJSON, FormatGeoJSON},
	}

	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID should be set")
	}
	if result.GroupsHash == "" {
		t.Error("GroupsHash should be set")
	}
	if result.Stats.RecordCount != 6 || result.Stats.GroupCount != 2 || result.Stats.FeatureCount != 6 {
		t.Errorf("stats = %d records / %d groups / %d features, want 6/2/6",
			result.Stats.RecordCount, result.Stats.GroupCount, result.Stats.FeatureCount)
	}
	if result.CacheInfo.SourceHit || result.CacheInfo.GroupsHit || result.CacheInfo.LayoutHit || result.CacheInfo.ExportHit {
		t.Errorf("first run cache info = %+v, want all misses", result.CacheInfo)
	}

	parsed, err := layout.UnmarshalLayout(result.Artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("json artifact does not parse: %v", err)
	}
	if parsed.Tool != ToolCircles || len(parsed.Circles) != 6 {
		t.Errorf("json artifact = %s with %d circles, want circles with 6", parsed.Tool, len(parsed.Circles))
	}
	if !strings.Contains(string(result.Artifacts[FormatGeoJSON]), "FeatureCollection") {
		t.Error("geojson artifact missing FeatureCollection")
	}

	// A second identical run is served from the cache at every stage
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	ci := second.CacheInfo
	if !ci.SourceHit || !ci.GroupsHit || !ci.LayoutHit || !ci.ExportHit {
		t.Errorf("second run cache info = %+v, want all hits", ci)
	}
	if second.RunID == result.RunID {
		t.Error("runs should get distinct IDs")
	}
}

func TestRunnerExecuteInvalidOptions(t *testing.T) {
	r := NewRunner(nil, nil, discardLogger())
	defer r.Close()

	_, err := r.Execute(context.Background(), Options{})
	if err == nil {
		t.Fatal("Execute() with empty options should fail")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("IsConfiguration(%v) = false, want true", err)
	}
}

func TestRunnerExportInvalidFormat(t *testing.T) {
	r := NewRunner(nil, nil, discardLogger())
	defer r.Close()

	l := layout.Layout{Tool: ToolCircles, Circles: []layout.CircleFeature{{Radius: 1, Role: layout.RoleCircle, Group: "g"}}}
	_, err := r.Export(context.Background(), l, Options{Formats: []string{"svg"}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Export() = %v, want %s", err, errors.ErrCodeInvalidConfig)
	}
}
