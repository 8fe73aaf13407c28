// Package store persists pipeline runs.
//
// A Run records one pipeline execution: the options it ran with, the
// summary it produced, its timing stats, and the computed layout. The
// Store interface has two implementations:
//   - memory: process-local storage for tests and single-instance servers
//   - mongo: MongoDB-backed storage for deployments that keep run history
//
// # Usage
//
// Create a store:
//
//	// Development
//	st := store.NewMemoryStore()
//
//	// Production
//	st, err := store.NewMongoStore(ctx, "mongodb://localhost:27017", "")
//
// Persist and query runs:
//
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	if err := st.Save(ctx, store.NewRun(result, opts)); err != nil {
//	    return err
//	}
//
//	runs, err := st.List(ctx, 20) // newest first, layouts omitted
//	run, err := st.Get(ctx, id)   // full run including layout
package store

import (
	"context"
	"time"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/pipeline"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "run not found")

// DefaultListLimit caps List results when the caller passes no limit.
const DefaultListLimit = 50

// Run is one persisted pipeline execution.
// Summary is duplicated outside the layout so list queries can project it
// without decoding the feature geometry.
type Run struct {
	ID        string           `json:"id" bson:"_id"`
	Tool      string           `json:"tool" bson:"tool"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Options   pipeline.Options `json:"options" bson:"options"`
	Summary   *layout.Summary  `json:"summary,omitempty" bson:"summary,omitempty"`
	Stats     pipeline.Stats   `json:"stats" bson:"stats"`
	Layout    layout.Layout    `json:"layout,omitempty" bson:"layout,omitempty"`
}

// NewRun builds a Run from a pipeline result. Input records and the logger
// are cleared from the stored options; the layout already captures every
// placement, so re-storing the source rows would only bloat the document.
func NewRun(result *pipeline.Result, opts pipeline.Options) *Run {
	opts.Records = nil
	opts.Logger = nil
	return &Run{
		ID:        result.RunID,
		Tool:      result.Layout.Tool,
		CreatedAt: time.Now().UTC(),
		Options:   opts,
		Summary:   result.Layout.Summary,
		Stats:     result.Stats,
		Layout:    result.Layout,
	}
}

// Store is the interface for run storage backends.
type Store interface {
	// Save persists a run, replacing any existing run with the same ID.
	Save(ctx context.Context, run *Run) error

	// Get retrieves a run by ID, including its layout.
	// Returns ErrNotFound if no run with that ID exists.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns the most recent runs, newest first, with layouts
	// omitted. A limit <= 0 means DefaultListLimit.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}
