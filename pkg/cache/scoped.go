package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The API server uses this so that each project's cached stages live in a
// separate namespace and cannot collide across tenants.
//
// Example usage:
//
//	// Project-specific keys for uploaded tables
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "project:atlas:")
//
//	// Global keys for the local CLI
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SourceKey generates a prefixed key for parsed source tables.
func (k *ScopedKeyer) SourceKey(namespace, key string) string {
	return k.prefix + k.inner.SourceKey(namespace, key)
}

// GroupsKey generates a prefixed key for aggregated group data.
func (k *ScopedKeyer) GroupsKey(sourceHash string, opts GroupsKeyOpts) string {
	return k.prefix + k.inner.GroupsKey(sourceHash, opts)
}

// LayoutKey generates a prefixed key for computed layouts.
func (k *ScopedKeyer) LayoutKey(groupsHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(groupsHash, opts)
}

// ExportKey generates a prefixed key for exported artifacts.
func (k *ScopedKeyer) ExportKey(layoutHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(layoutHash, opts)
}
