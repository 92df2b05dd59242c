package cleaning

import (
	"context"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/geocode"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
)

const rawListings = `id;category;title;body;amenities;bathrooms;bedrooms;currency;fee;has_photo;pets_allowed;price;price_display;price_type;square_feet;address;cityname;state;latitude;longitude;source;time
1;housing/rent/apartment;T1;B1;Gym,Pool;1;1;USD;No;Thumbnail;Cats,Dogs;700;$700;Weekly;650;1 Main St;Austin;TX;30.2;-97.7;RentLingo;1577359415
2;housing/rent/apartment;T2;B2;;2;2;USD;No;Yes;Cats,Dogs,None;3000;$3000;Monthly;900;;;;40.7;-74.0;RentLingo;1577359415
3;housing/rent/apartment;T3;B3;;1;1;USD;No;No;;1000;$1000;Monthly;500;;Boise;ID;;;RentLingo;1577359415
4;housing/rent/apartment;T4;B4;;1;1;USD;No;No;;;;Monthly;500;;Boise;ID;43.6;-116.2;RentLingo;1577359415
5;housing/rent/apartment;T5;B5;;1;1;USD;No;No;;1200;$1200;Monthly|Weekly;500;;Boise;ID;43.6;-116.2;RentLingo;1577359415
6;housing/rent/apartment;T6;B6;Parking;1;;USD;No;No;Dogs;900;$900;Monthly;620;;Boise;ID;43.6;-116.2;RentLingo;1577359415
7;housing/rent/apartment;T7;B7;;;2;USD;No;No;;1800;$1800;Monthly;1500;;Boise;ID;43.6;-116.2;RentLingo;1577359415
`

func readRaw(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(strings.NewReader(rawListings), dataset.ReadOptions{
		Comma:         ';',
		StringColumns: []string{"address"},
	})
	require.NoError(t, err)
	return f
}

type stubGeocoder struct {
	calls atomic.Int32
	place geocode.Place
	err   error
	panic bool
}

func (s *stubGeocoder) Reverse(ctx context.Context, lat, lon float64) (geocode.Place, error) {
	s.calls.Add(1)
	if s.panic {
		panic("geocoder exploded")
	}
	return s.place, s.err
}

func newCleaner(t *testing.T, g geocode.Reverser) (*Cleaner, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return New(config.Default().Clean, WithGeocoder(g), WithLogger(logger)), logger
}

func stringsOf(t *testing.T, f *dataset.Frame, name string) []string {
	t.Helper()
	col, err := f.Column(name)
	require.NoError(t, err)
	out := make([]string, col.Len())
	for i := range out {
		out[i] = col.Format(i)
	}
	return out
}

func TestCleanerClean(t *testing.T) {
	geo := &stubGeocoder{place: geocode.Place{City: "Kings County", State: "NY"}}
	c, _ := newCleaner(t, geo)

	out, rep, err := c.CleanWithReport(context.Background(), readRaw(t))
	require.NoError(t, err)

	assert.Equal(t, 7, rep.InputRows)
	assert.Equal(t, 4, rep.OutputRows)
	assert.Equal(t, 1, rep.Dropped[ReasonNoLocation])
	assert.Equal(t, 1, rep.Dropped[ReasonNoPrice])
	assert.Equal(t, 1, rep.Dropped[ReasonPriceType])
	assert.False(t, out.Has("id"))
	assert.False(t, out.Has("address"))

	t.Run("weekly prices become monthly", func(t *testing.T) {
		price, err := out.Floats(ColPrice)
		require.NoError(t, err)
		assert.Equal(t, []float64{2800, 3000, 900, 1800}, price)
		assert.Equal(t, []string{"monthly", "monthly", "monthly", "monthly"}, stringsOf(t, out, ColPriceType))
	})

	t.Run("lowercased strings", func(t *testing.T) {
		assert.Equal(t, []string{"austin", "kings county", "boise", "boise"}, stringsOf(t, out, ColCityName))
		assert.Equal(t, []string{"tx", "ny", "id", "id"}, stringsOf(t, out, ColState))
		assert.Equal(t, []string{"no", "no", "no", "no"}, stringsOf(t, out, "fee"))
	})

	t.Run("amenities parsed", func(t *testing.T) {
		col, err := out.Column(ColAmenities)
		require.NoError(t, err)
		assert.Equal(t, dataset.List, col.Kind)
		assert.Equal(t, [][]string{{"gym", "pool"}, {}, {"parking"}, {}}, col.Lists)
	})

	t.Run("has_photo thumbnail becomes yes", func(t *testing.T) {
		assert.Equal(t, []string{"yes", "yes", "no", "no"}, stringsOf(t, out, ColHasPhoto))
	})

	t.Run("pets", func(t *testing.T) {
		col, err := out.Column(ColPetsAllowed)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"cats", "dogs"}, {"none"}, {"dogs"}, {}}, col.Lists)
		assert.Equal(t, []string{"yes", "no", "no", "no"}, stringsOf(t, out, ColCatsAllowed))
		assert.Equal(t, []string{"yes", "no", "yes", "no"}, stringsOf(t, out, ColDogsAllowed))
	})

	t.Run("imputation", func(t *testing.T) {
		beds, err := out.Floats(ColBedrooms)
		require.NoError(t, err)
		baths, err := out.Floats(ColBathrooms)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 1, 2}, beds)
		assert.Equal(t, []float64{1, 2, 1, 2}, baths)
		assert.Equal(t, 1, rep.ImputedBedrooms)
		assert.Equal(t, 1, rep.ImputedBathrooms)
	})

	assert.Equal(t, int32(1), geo.calls.Load())
	assert.Equal(t, 1, rep.Geocoded)
}

func TestCleanerIdempotent(t *testing.T) {
	geo := &stubGeocoder{place: geocode.Place{City: "Kings County", State: "NY"}}
	c, _ := newCleaner(t, geo)
	first, err := c.Clean(context.Background(), readRaw(t))
	require.NoError(t, err)
	want, err := dataset.EncodeCSV(first)
	require.NoError(t, err)

	// The configured columns are already gone, so the second pass drops nothing.
	cfg := config.Default().Clean
	cfg.DropColumns = nil
	again := New(cfg, WithGeocoder(geo))
	second, rep, err := again.CleanWithReport(context.Background(), first.Clone())
	require.NoError(t, err)

	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, rep.InputRows, rep.OutputRows)
	got, err := dataset.EncodeCSV(second)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
	assert.Equal(t, int32(1), geo.calls.Load(), "no rows left to geocode")
}

func TestCleanerMonthlyInvariant(t *testing.T) {
	c, _ := newCleaner(t, nil)
	out, err := c.Clean(context.Background(), readRaw(t))
	require.NoError(t, err)

	price, err := out.Floats(ColPrice)
	require.NoError(t, err)
	ptype, err := out.Column(ColPriceType)
	require.NoError(t, err)
	for i := range price {
		assert.False(t, math.IsNaN(price[i]), "row %d price", i)
		s, ok := ptype.StringAt(i)
		assert.True(t, ok)
		assert.Equal(t, "monthly", s)
	}
}

func TestCleanerImputationBounded(t *testing.T) {
	raw := readRaw(t)
	bedsRaw, err := raw.Floats(ColBedrooms)
	require.NoError(t, err)
	bathsRaw, err := raw.Floats(ColBathrooms)
	require.NoError(t, err)
	bedLo, bedHi, _ := observedRange(bedsRaw)
	bathLo, bathHi, _ := observedRange(bathsRaw)

	c, _ := newCleaner(t, nil)
	out, err := c.Clean(context.Background(), raw)
	require.NoError(t, err)

	beds, _ := out.Floats(ColBedrooms)
	baths, _ := out.Floats(ColBathrooms)
	for i := range beds {
		assert.GreaterOrEqual(t, beds[i], bedLo)
		assert.LessOrEqual(t, beds[i], bedHi)
		assert.GreaterOrEqual(t, baths[i], bathLo)
		assert.LessOrEqual(t, baths[i], bathHi)
	}
}

func TestImputeRoundsHalfToEven(t *testing.T) {
	f, err := dataset.New(
		dataset.NewFloatColumn(ColSquareFeet, []float64{100, 200, 300, math.NaN()}),
		dataset.NewFloatColumn(ColBedrooms, []float64{3, 3, 3, 3}),
		dataset.NewFloatColumn(ColBathrooms, []float64{2, 3, math.NaN(), math.NaN()}),
	)
	require.NoError(t, err)
	rep := &Report{Dropped: map[string]int{}}
	require.NoError(t, impute(f, rep))

	baths, _ := f.Floats(ColBathrooms)
	// mean 2.5 rounds to 2
	assert.Equal(t, []float64{2, 3, 2, 2}, baths)
	assert.Equal(t, 2, rep.ImputedBathrooms)
}

func TestCleanerGeocodeFailureKeepsRow(t *testing.T) {
	tests := []struct {
		name string
		geo  *stubGeocoder
	}{
		{"error", &stubGeocoder{err: errors.ErrBreakerOpen}},
		{"panic", &stubGeocoder{panic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, logger := newCleaner(t, tt.geo)
			out, rep, err := c.CleanWithReport(context.Background(), readRaw(t))
			require.NoError(t, err)
			assert.Equal(t, 4, out.Len())
			assert.Equal(t, 1, rep.GeocodeFailed)
			assert.Equal(t, 1, rep.RowWarnings)

			city, _ := out.Column(ColCityName)
			assert.True(t, city.IsNull(1))
			assert.True(t, logger.ContainsMessage("row transform failed"))
		})
	}
}

func TestCleanerGeocodeDisabled(t *testing.T) {
	geo := &stubGeocoder{place: geocode.Place{City: "x", State: "NY"}}
	cfg := config.Default().Clean
	cfg.Geocode = false
	out, err := New(cfg, WithGeocoder(geo)).Clean(context.Background(), readRaw(t))
	require.NoError(t, err)
	assert.Equal(t, int32(0), geo.calls.Load())
	state, _ := out.Column(ColState)
	assert.True(t, state.IsNull(1))
}

func TestCleanerGeocodeFillsOnlyMissingField(t *testing.T) {
	f, err := dataset.New(
		dataset.NewFloatColumn(ColLatitude, []float64{1}),
		dataset.NewFloatColumn(ColLongitude, []float64{2}),
		dataset.NewStringColumn(ColCityName, []string{"springfield"}, nil),
		dataset.NullColumn(ColState, dataset.String, 1),
	)
	require.NoError(t, err)
	c, _ := newCleaner(t, &stubGeocoder{place: geocode.Place{City: "Sangamon County", State: "IL"}})
	rep := &Report{Dropped: map[string]int{}}
	require.NoError(t, c.fillLocation(context.Background(), f, rep))

	assert.Equal(t, []string{"springfield"}, stringsOf(t, f, ColCityName))
	assert.Equal(t, []string{"il"}, stringsOf(t, f, ColState))
}

func TestCleanerGeocodeUnmappedStateStaysNull(t *testing.T) {
	f, err := dataset.New(
		dataset.NewFloatColumn(ColLatitude, []float64{1}),
		dataset.NewFloatColumn(ColLongitude, []float64{2}),
		dataset.NullColumn(ColCityName, dataset.String, 1),
		dataset.NullColumn(ColState, dataset.String, 1),
	)
	require.NoError(t, err)
	// Abbreviate returns "" for names outside the USPS table
	c, _ := newCleaner(t, &stubGeocoder{place: geocode.Place{City: "Ontario", State: geocode.Abbreviate("Ontario")}})
	rep := &Report{Dropped: map[string]int{}}
	require.NoError(t, c.fillLocation(context.Background(), f, rep))

	assert.Equal(t, []string{"ontario"}, stringsOf(t, f, ColCityName))
	state, _ := f.Column(ColState)
	assert.True(t, state.IsNull(0))
}

func TestCleanerSchemaErrors(t *testing.T) {
	t.Run("missing drop column", func(t *testing.T) {
		cfg := config.Default().Clean
		cfg.DropColumns = append(cfg.DropColumns, "not_there")
		_, err := New(cfg).Clean(context.Background(), readRaw(t))
		var schemaErr *errors.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"not_there"}, schemaErr.Columns)
	})

	t.Run("missing required column", func(t *testing.T) {
		cfg := config.Default().Clean
		cfg.DropColumns = append(cfg.DropColumns, ColPetsAllowed)
		_, err := New(cfg).Clean(context.Background(), readRaw(t))
		var schemaErr *errors.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Contains(t, schemaErr.Columns, ColPetsAllowed)
	})
}
