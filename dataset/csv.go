package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// Charsets accepted by ReadOptions.Charset.
const (
	CharsetUTF8   = "utf-8"
	CharsetLatin1 = "iso-8859-1"
)

// DefaultNA lists the cell values read as missing.
var DefaultNA = []string{"", "null", "NULL", "NA", "N/A", "n/a", "NaN", "nan", "None", "<NA>"}

// ReadOptions controls CSV decoding and column typing.
type ReadOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Charset is CharsetUTF8 (default) or CharsetLatin1.
	Charset string
	// StringColumns are kept as strings even when every value parses as a number.
	StringColumns []string
	// ListColumns are split on ListSep into string lists; a missing cell is an empty list.
	ListColumns []string
	// ListSep defaults to ",".
	ListSep string
	// NA overrides DefaultNA.
	NA []string
}

// ReadCSV decodes a CSV table with a header row. Columns whose present values
// all parse as numbers become Float columns, everything else String columns.
func ReadCSV(r io.Reader, opts ReadOptions) (*Frame, error) {
	switch strings.ToLower(opts.Charset) {
	case "", CharsetUTF8, "utf8":
	case CharsetLatin1, "latin1", "latin-1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return nil, errors.NewValueError("ReadCSV", "unsupported charset "+opts.Charset)
	}

	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.ErrEmptyData, "ReadCSV: no header")
		}
		return nil, errors.Wrap(err, "ReadCSV: header")
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	na := opts.NA
	if na == nil {
		na = DefaultNA
	}
	naSet := toSet(na)

	raw := make([][]string, len(header))
	null := make([][]bool, len(header))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "ReadCSV: line %d", line)
		}
		for j := range header {
			v := rec[j]
			raw[j] = append(raw[j], v)
			null[j] = append(null[j], naSet[v])
		}
	}

	strCols := toSet(opts.StringColumns)
	listCols := toSet(opts.ListColumns)
	sep := opts.ListSep
	if sep == "" {
		sep = ","
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		switch {
		case listCols[name]:
			cols[j] = parseList(name, raw[j], null[j], sep)
		case strCols[name]:
			cols[j] = NewStringColumn(name, raw[j], invert(null[j]))
		default:
			if fc, ok := parseFloats(name, raw[j], null[j]); ok {
				cols[j] = fc
			} else {
				cols[j] = NewStringColumn(name, raw[j], invert(null[j]))
			}
		}
	}

	f, err := New(cols...)
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV")
	}
	return f, nil
}

// DecodeCSV reads a frame from bytes.
func DecodeCSV(data []byte, opts ReadOptions) (*Frame, error) {
	return ReadCSV(bytes.NewReader(data), opts)
}

// WriteCSV writes f with a header row. Lists are joined with "," and missing
// values are written as empty cells.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return errors.Wrap(err, "WriteCSV: header")
	}
	rec := make([]string, f.Width())
	for i := 0; i < f.Len(); i++ {
		for j, c := range f.cols {
			rec[j] = c.Format(i)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "WriteCSV: row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "WriteCSV")
}

// EncodeCSV renders f as CSV bytes.
func EncodeCSV(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseFloats(name string, raw []string, null []bool) (*Column, bool) {
	out := make([]float64, len(raw))
	for i, v := range raw {
		if null[i] {
			out[i] = math.NaN()
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		out[i] = x
	}
	return NewFloatColumn(name, out), true
}

func parseList(name string, raw []string, null []bool, sep string) *Column {
	out := make([][]string, len(raw))
	for i, v := range raw {
		if null[i] {
			out[i] = []string{}
			continue
		}
		out[i] = strings.Split(v, sep)
	}
	return NewListColumn(name, out)
}

func invert(null []bool) []bool {
	valid := make([]bool, len(null))
	for i, n := range null {
		valid[i] = !n
	}
	return valid
}

func toSet(values []string) map[string]bool {
	s := make(map[string]bool, len(values))
	for _, v := range values {
		s[v] = true
	}
	return s
}
