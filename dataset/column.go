package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the storage type of a Column.
type Kind int

const (
	// Float columns store float64 values; NaN marks a missing value.
	Float Kind = iota
	// String columns store strings with a validity mask.
	String
	// List columns store string lists; a nil list is missing.
	List
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// Column is a single named, typed column. Only the slice matching Kind is used.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Valid   []bool
	Lists   [][]string
}

// NewFloatColumn creates a float column backed by values.
func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Float, Floats: values}
}

// NewStringColumn creates a string column. A nil valid mask marks every value present.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	return &Column{Name: name, Kind: String, Strings: values, Valid: valid}
}

// NewListColumn creates a list column backed by values.
func NewListColumn(name string, values [][]string) *Column {
	return &Column{Name: name, Kind: List, Lists: values}
}

// NullColumn creates a column of n missing values.
func NullColumn(name string, kind Kind, n int) *Column {
	switch kind {
	case Float:
		v := make([]float64, n)
		for i := range v {
			v[i] = math.NaN()
		}
		return NewFloatColumn(name, v)
	case String:
		return NewStringColumn(name, make([]string, n), make([]bool, n))
	default:
		return NewListColumn(name, make([][]string, n))
	}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.Floats)
	case String:
		return len(c.Strings)
	default:
		return len(c.Lists)
	}
}

// IsNull reports whether row i holds a missing value.
func (c *Column) IsNull(i int) bool {
	switch c.Kind {
	case Float:
		return math.IsNaN(c.Floats[i])
	case String:
		return !c.Valid[i]
	default:
		return c.Lists[i] == nil
	}
}

// NullCount returns the number of missing values.
func (c *Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

// StringAt returns the string at row i and whether it is present.
func (c *Column) StringAt(i int) (string, bool) {
	if c.Kind != String || !c.Valid[i] {
		return "", false
	}
	return c.Strings[i], true
}

// SetString stores a present string value at row i.
func (c *Column) SetString(i int, s string) {
	c.Strings[i] = s
	c.Valid[i] = true
}

// SetNull marks row i missing.
func (c *Column) SetNull(i int) {
	switch c.Kind {
	case Float:
		c.Floats[i] = math.NaN()
	case String:
		c.Strings[i] = ""
		c.Valid[i] = false
	default:
		c.Lists[i] = nil
	}
}

// Format renders row i as CSV text. Missing values render as "".
func (c *Column) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.Kind {
	case Float:
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	case String:
		return c.Strings[i]
	default:
		return strings.Join(c.Lists[i], ",")
	}
}

// Clone returns a deep copy.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		out.Floats = append([]float64(nil), c.Floats...)
	case String:
		out.Strings = append([]string(nil), c.Strings...)
		out.Valid = append([]bool(nil), c.Valid...)
	default:
		out.Lists = make([][]string, len(c.Lists))
		for i, l := range c.Lists {
			if l != nil {
				out.Lists[i] = append([]string{}, l...)
			}
		}
	}
	return out
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = c.Floats[i]
		}
	case String:
		out.Strings = make([]string, len(idx))
		out.Valid = make([]bool, len(idx))
		for j, i := range idx {
			out.Strings[j] = c.Strings[i]
			out.Valid[j] = c.Valid[i]
		}
	default:
		out.Lists = make([][]string, len(idx))
		for j, i := range idx {
			if c.Lists[i] != nil {
				out.Lists[j] = append([]string{}, c.Lists[i]...)
			}
		}
	}
	return out
}

func (c *Column) appendColumn(o *Column) {
	switch c.Kind {
	case Float:
		c.Floats = append(c.Floats, o.Floats...)
	case String:
		c.Strings = append(c.Strings, o.Strings...)
		c.Valid = append(c.Valid, o.Valid...)
	default:
		c.Lists = append(c.Lists, o.Lists...)
	}
}
