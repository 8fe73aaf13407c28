package store

import (
	"context"
	"testing"
	"time"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/pipeline"
)

func testRun(id, tool string) *Run {
	return &Run{
		ID:        id,
		Tool:      tool,
		CreatedAt: time.Now().UTC(),
		Summary:   &layout.Summary{Tool: tool, Groups: 1},
		Layout: layout.Layout{
			Tool:    tool,
			Circles: []layout.CircleFeature{{Radius: 1, Role: layout.RoleCircle, Group: "g"}},
		},
	}
}

func TestMemoryStoreSaveGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Save(ctx, testRun("r1", "circles")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	run, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if run.Tool != "circles" {
		t.Errorf("Tool = %q, want circles", run.Tool)
	}
	if run.Layout.FeatureCount() != 1 {
		t.Errorf("Get() should include the layout, got %d features", run.Layout.FeatureCount())
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSaveReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, testRun("r1", "circles"))
	s.Save(ctx, testRun("r1", "nested"))

	runs, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Tool != "nested" {
		t.Errorf("Tool = %q, want nested", runs[0].Tool)
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"r1", "r2", "r3"} {
		if err := s.Save(ctx, testRun(id, "circles")); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Errorf("order = [%s %s], want [r3 r2]", runs[0].ID, runs[1].ID)
	}
	for _, run := range runs {
		if run.Layout.FeatureCount() != 0 {
			t.Errorf("run %s: List() should omit layouts", run.ID)
		}
		if run.Summary == nil {
			t.Errorf("run %s: List() should keep summaries", run.ID)
		}
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, testRun("r1", "circles"))
	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "r1"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}

	// Deleting a missing run is a no-op
	if err := s.Delete(ctx, "r1"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}

	if runs, _ := s.List(ctx, 0); len(runs) != 0 {
		t.Errorf("got %d runs after delete, want 0", len(runs))
	}
}

func TestNewRun(t *testing.T) {
	opts := pipeline.Options{
		Records: []feature.Record{{ID: "a", Value: feature.Float(1), Group: "g"}},
		Tool:    "circles",
		MinSize: 4,
		MaxSize: 10,
	}
	result := &pipeline.Result{
		RunID: "run-1",
		Layout: layout.Layout{
			Tool:    "circles",
			Summary: &layout.Summary{Tool: "circles", Groups: 2},
		},
		Stats: pipeline.Stats{RecordCount: 6, GroupCount: 2},
	}

	run := NewRun(result, opts)

	if run.ID != "run-1" || run.Tool != "circles" {
		t.Errorf("run = %s/%s, want run-1/circles", run.ID, run.Tool)
	}
	if run.Options.Records != nil {
		t.Error("stored options should not carry input records")
	}
	if run.Options.MinSize != 4 || run.Options.MaxSize != 10 {
		t.Errorf("options = [%v, %v], want [4, 10]", run.Options.MinSize, run.Options.MaxSize)
	}
	if run.Summary == nil || run.Summary.Groups != 2 {
		t.Errorf("summary = %+v, want 2 groups", run.Summary)
	}
	if run.Stats.RecordCount != 6 {
		t.Errorf("stats records = %d, want 6", run.Stats.RecordCount)
	}
	if run.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}
