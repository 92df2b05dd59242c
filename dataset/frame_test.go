package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		NewFloatColumn("price", []float64{700, math.NaN(), 3000}),
		NewStringColumn("state", []string{"CA", "", "NY"}, []bool{true, false, true}),
		NewListColumn("amenities", [][]string{{"gym", "pool"}, {}, nil}),
	)
	require.NoError(t, err)
	return f
}

func TestFrameBasics(t *testing.T) {
	f := sampleFrame(t)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"price", "state", "amenities"}, f.Names())

	state, err := f.Column("state")
	require.NoError(t, err)
	assert.True(t, state.IsNull(1))
	assert.Equal(t, 1, state.NullCount())

	_, err = f.Column("nope")
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	_, err = f.Floats("state")
	assert.True(t, errors.As(err, &schemaErr))
}

func TestFrameAddColumnLengthMismatch(t *testing.T) {
	f := sampleFrame(t)
	err := f.AddColumn(NewFloatColumn("x", []float64{1}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestFrameDrop(t *testing.T) {
	f := sampleFrame(t)

	err := f.Drop("state", "missing")
	var schemaErr *errors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"missing"}, schemaErr.Columns)
	assert.True(t, f.Has("state"), "failed drop must not remove anything")

	require.NoError(t, f.Drop("state"))
	assert.Equal(t, []string{"price", "amenities"}, f.Names())
	amen, err := f.Column("amenities")
	require.NoError(t, err)
	assert.Equal(t, List, amen.Kind)
}

func TestFrameFilterAndTake(t *testing.T) {
	f := sampleFrame(t)
	price, _ := f.Floats("price")

	kept := f.Filter(func(i int) bool { return !math.IsNaN(price[i]) })
	assert.Equal(t, 2, kept.Len())
	keptPrice, _ := kept.Floats("price")
	assert.Equal(t, []float64{700, 3000}, keptPrice)

	taken := f.Take([]int{2, 0})
	st, _ := taken.Column("state")
	assert.Equal(t, []string{"NY", "CA"}, st.Strings)

	// Take copies; the source is untouched.
	st.SetString(0, "TX")
	orig, _ := f.Column("state")
	assert.Equal(t, "NY", orig.Strings[2])
}

func TestConcatPromotesAllNullColumns(t *testing.T) {
	a, err := New(
		NewFloatColumn("price", []float64{1}),
		NewStringColumn("address", []string{"1 main st"}, nil),
	)
	require.NoError(t, err)
	b, err := New(
		NewFloatColumn("price", []float64{2}),
		NullColumn("address", Float, 1),
	)
	require.NoError(t, err)

	out, err := Concat(a, b)
	require.NoError(t, err)
	addr, _ := out.Column("address")
	assert.Equal(t, String, addr.Kind)
	assert.False(t, addr.IsNull(0))
	assert.True(t, addr.IsNull(1))

	c, err := New(
		NewFloatColumn("price", []float64{3}),
		NewFloatColumn("address", []float64{42}),
	)
	require.NoError(t, err)
	_, err = Concat(a, c)
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	f, err := New(
		NewFloatColumn("a", []float64{1, 2}),
		NewFloatColumn("b", []float64{3, 4}),
	)
	require.NoError(t, err)

	m, err := f.Matrix([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.At(0, 0))
	assert.Equal(t, 2.0, m.At(1, 1))
}

func TestReadCSV(t *testing.T) {
	raw := "id;price;address;cityname;amenities\n" +
		"1;700;12;Austin;Gym,Pool\n" +
		"2;;;;\n"

	f, err := ReadCSV(strings.NewReader(raw), ReadOptions{
		Comma:         ';',
		StringColumns: []string{"address"},
		ListColumns:   []string{"amenities"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())

	price, err := f.Floats("price")
	require.NoError(t, err)
	assert.Equal(t, 700.0, price[0])
	assert.True(t, math.IsNaN(price[1]))

	addr, _ := f.Column("address")
	assert.Equal(t, String, addr.Kind)
	assert.Equal(t, "12", addr.Strings[0])

	amen, _ := f.Column("amenities")
	assert.Equal(t, []string{"Gym", "Pool"}, amen.Lists[0])
	assert.Equal(t, []string{}, amen.Lists[1])
}

func TestReadCSVLatin1(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String("cityname\nSão Paulo\n")
	require.NoError(t, err)

	f, err := ReadCSV(strings.NewReader(encoded), ReadOptions{Charset: CharsetLatin1})
	require.NoError(t, err)
	c, _ := f.Column("cityname")
	assert.Equal(t, "São Paulo", c.Strings[0])
}

func TestCSVRoundTrip(t *testing.T) {
	f := sampleFrame(t)

	data, err := EncodeCSV(f)
	require.NoError(t, err)
	assert.Equal(t, "price,state,amenities\n700,CA,\"gym,pool\"\n,,\n3000,NY,\n", string(data))

	back, err := DecodeCSV(data, ReadOptions{ListColumns: []string{"amenities"}})
	require.NoError(t, err)
	state, _ := back.Column("state")
	assert.True(t, state.IsNull(1))
	amen, _ := back.Column("amenities")
	assert.Equal(t, []string{"gym", "pool"}, amen.Lists[0])
}
