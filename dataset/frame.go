// Package dataset provides the column-oriented table passed between pipeline
// stages, together with CSV encoding for it.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// Frame is an ordered set of equal-length columns. A Frame is mutated in place
// by pipeline stages and must not be shared for concurrent mutation.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a frame from columns of equal length and unique names.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			f.rows = c.Len()
		}
		if err := f.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column or a SchemaError.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewSchemaError("Column", "missing column", name)
	}
	return f.cols[i], nil
}

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (f *Frame) Columns() []*Column {
	return append([]*Column(nil), f.cols...)
}

// Floats returns the backing slice of a float column.
func (f *Frame) Floats(name string) ([]float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Float {
		return nil, errors.NewSchemaError("Floats", "column is "+c.Kind.String()+", want float", name)
	}
	return c.Floats, nil
}

// AddColumn appends c, replacing any existing column of the same name in place.
func (f *Frame) AddColumn(c *Column) error {
	if len(f.cols) > 0 && c.Len() != f.rows {
		return errors.NewDimensionError("AddColumn "+c.Name, f.rows, c.Len(), 0)
	}
	if len(f.cols) == 0 {
		f.rows = c.Len()
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return nil
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// Drop removes the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) error {
	var missing []string
	for _, n := range names {
		if !f.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return errors.NewSchemaError("Drop", "columns not found", missing...)
	}

	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := f.cols[:0]
	for _, c := range f.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.reindex()
	return nil
}

// Select returns a frame sharing the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	var missing []string
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		i, ok := f.index[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		cols = append(cols, f.cols[i])
	}
	if len(missing) > 0 {
		return nil, errors.NewSchemaError("Select", "columns not found", missing...)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// Take returns a new frame holding copies of the rows at idx, in order.
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols)), rows: len(idx)}
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.take(idx))
	}
	return out
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	idx := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols)), rows: f.rows}
	for _, c := range f.cols {
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, c.Clone())
	}
	return out
}

// Matrix copies the named float columns into a rows x len(names) matrix.
func (f *Frame) Matrix(names []string) (*mat.Dense, error) {
	if f.rows == 0 || len(names) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Matrix")
	}
	cols := make([][]float64, len(names))
	for j, n := range names {
		v, err := f.Floats(n)
		if err != nil {
			return nil, err
		}
		cols[j] = v
	}
	m := mat.NewDense(f.rows, len(names), nil)
	for j, v := range cols {
		m.SetCol(j, v)
	}
	return m, nil
}

// Concat stacks frames with identical column names and kinds.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Concat")
	}
	out := frames[0].Clone()
	for _, fr := range frames[1:] {
		if fr.Width() != out.Width() {
			return nil, errors.NewSchemaError("Concat", "column sets differ", fr.Names()...)
		}
		for _, c := range out.cols {
			o, err := fr.Column(c.Name)
			if err != nil {
				return nil, err
			}
			o = o.Clone()
			switch {
			case o.Kind == c.Kind:
			case o.Kind == Float && o.NullCount() == o.Len():
				o = NullColumn(o.Name, c.Kind, o.Len())
			case c.Kind == Float && c.NullCount() == c.Len():
				*c = *NullColumn(c.Name, o.Kind, c.Len())
			default:
				return nil, errors.NewSchemaError("Concat", "kind "+o.Kind.String()+" != "+c.Kind.String(), c.Name)
			}
			c.appendColumn(o)
		}
		out.rows += fr.rows
	}
	return out, nil
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.index[c.Name] = i
	}
	if len(f.cols) == 0 {
		f.rows = 0
	}
}
