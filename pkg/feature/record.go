// Package feature defines the tabular input model for the layout pipeline.
//
// A Record is one source row: an identifier, a nullable numeric value, the
// group key it aggregates under, optional case and category keys for the
// hierarchical tools, and a point coordinate. Readers in this package turn
// raw tables into []Record; everything downstream works on that slice.
package feature

// Record is a single input row.
// Value is a pointer so a null cell survives as nil rather than zero; the
// aggregator drops null-valued records before summing. Empty Case or
// Category strings mean the key is absent for that row. Raw keeps the full
// source row by column name so sort fields and attributes outside the
// typed fields stay reachable.
type Record struct {
	ID       string            `json:"id" bson:"id"`
	Value    *float64          `json:"value" bson:"value"`
	Group    string            `json:"group" bson:"group"`
	Case     string            `json:"case,omitempty" bson:"case,omitempty"`
	Category string            `json:"category,omitempty" bson:"category,omitempty"`
	X        float64           `json:"x" bson:"x"`
	Y        float64           `json:"y" bson:"y"`
	Raw      map[string]string `json:"raw,omitempty" bson:"raw,omitempty"`
}

// HasValue reports whether the record carries a non-null value.
func (r Record) HasValue() bool {
	return r.Value != nil
}

// Val returns the record's value, or 0 for null.
func (r Record) Val() float64 {
	if r.Value == nil {
		return 0
	}
	return *r.Value
}

// Float returns a pointer to v, for building records in code.
func Float(v float64) *float64 {
	return &v
}
