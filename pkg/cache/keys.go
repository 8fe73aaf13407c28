package cache

import "fmt"

// Keyer generates cache keys for pipeline stage outputs.
// Implementations must be deterministic: the same inputs always produce the
// same key.
type Keyer interface {
	// SourceKey generates a key for parsed source tables.
	// The namespace separates sources by origin (for example "upload" or
	// "file"), key is the content hash of the raw bytes.
	SourceKey(namespace, key string) string

	// GroupsKey generates a key for aggregated group data.
	GroupsKey(sourceHash string, opts GroupsKeyOpts) string

	// LayoutKey generates a key for computed layouts.
	LayoutKey(groupsHash string, opts LayoutKeyOpts) string

	// ExportKey generates a key for exported artifacts.
	ExportKey(layoutHash string, opts ExportKeyOpts) string
}

// GroupsKeyOpts captures the options that affect aggregation output.
type GroupsKeyOpts struct {
	Tool          string `json:"tool"`
	IDField       string `json:"id_field"`
	GroupField    string `json:"group_field"`
	ValueField    string `json:"value_field"`
	CaseField     string `json:"case_field"`
	CategoryField string `json:"category_field"`
	XField        string `json:"x_field"`
	YField        string `json:"y_field"`
}

// LayoutKeyOpts captures the options that affect layout output.
type LayoutKeyOpts struct {
	Tool      string  `json:"tool"`
	MinSize   float64 `json:"min_size"`
	MaxSize   float64 `json:"max_size"`
	Sort      string  `json:"sort"`
	SortField string  `json:"sort_field"`
	Seed      uint64  `json:"seed"`
}

// ExportKeyOpts captures the options that affect exported artifacts.
type ExportKeyOpts struct {
	Format string `json:"format"`
	Pretty bool   `json:"pretty"`
}

// DefaultKeyer is the standard Keyer implementation.
// Keys embed a SHA-256 hash of the upstream content hash plus the options, so
// any change to either produces a distinct key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SourceKey generates a key for parsed source tables.
func (k *DefaultKeyer) SourceKey(namespace, key string) string {
	return fmt.Sprintf("source:%s:%s", namespace, key)
}

// GroupsKey generates a key for aggregated group data.
func (k *DefaultKeyer) GroupsKey(sourceHash string, opts GroupsKeyOpts) string {
	return hashKey("groups", sourceHash, opts)
}

// LayoutKey generates a key for computed layouts.
func (k *DefaultKeyer) LayoutKey(groupsHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", groupsHash, opts)
}

// ExportKey generates a key for exported artifacts.
func (k *DefaultKeyer) ExportKey(layoutHash string, opts ExportKeyOpts) string {
	return hashKey("export", layoutHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
