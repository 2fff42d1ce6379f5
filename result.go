package qmap

// Result carries the outcome of one query.
type Result struct {
	// Data is the mapped result set: a []map[string]any for plain reads or
	// a map[string]any for index keyed grouping specs. Nil for writes.
	Data any

	// Affected and LastID are set by writes.
	Affected int64
	LastID   int64
}

// List returns the result rows, or nil when the result is grouped.
func (r *Result) List() []map[string]any {
	rows, _ := r.Data.([]map[string]any)
	return rows
}

// Map returns the index keyed grouped result, or nil when the result is a
// plain list.
func (r *Result) Map() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}
