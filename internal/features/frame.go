// Package features turns monthly buckets and raw transactions into
// fixed-order numeric feature matrices for the forecast and fraud models.
package features

// Frame is a row-major feature matrix with named columns. Column order is
// the declaration order and must match between training and inference.
type Frame struct {
	Names []string
	Rows  [][]float64
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Rows) }

// Index returns the column position of name, or -1.
func (f Frame) Index(name string) int {
	for i, n := range f.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column, or nil if it does not exist.
func (f Frame) Column(name string) []float64 {
	j := f.Index(name)
	if j < 0 {
		return nil
	}
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out
}
