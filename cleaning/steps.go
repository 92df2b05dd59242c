package cleaning

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
)

const (
	priceMonthly    = "monthly"
	priceWeekly     = "weekly"
	weeksPerMonth   = 4
	photoThumbnail  = "thumbnail"
	petsAllDeclared = "cats,dogs,none"
)

// stringColumn returns the named String column. A Float column holding only
// missing values is what the CSV reader yields for an empty text column, so it
// is replaced by a null String column.
func stringColumn(f *dataset.Frame, name string) (*dataset.Column, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	switch {
	case col.Kind == dataset.String:
		return col, nil
	case col.Kind == dataset.Float && col.NullCount() == col.Len():
		col = dataset.NullColumn(name, dataset.String, f.Len())
		if err := f.AddColumn(col); err != nil {
			return nil, err
		}
		return col, nil
	default:
		return nil, errors.NewSchemaError("Clean", "expected string column, got "+col.Kind.String(), name)
	}
}

func dropMissing(f *dataset.Frame, rep *Report) (*dataset.Frame, error) {
	lat, err := f.Floats(ColLatitude)
	if err != nil {
		return nil, err
	}
	lon, err := f.Floats(ColLongitude)
	if err != nil {
		return nil, err
	}
	price, err := f.Floats(ColPrice)
	if err != nil {
		return nil, err
	}

	out := f.Filter(func(i int) bool {
		if math.IsNaN(lat[i]) && math.IsNaN(lon[i]) {
			rep.Dropped[ReasonNoLocation]++
			return false
		}
		if math.IsNaN(price[i]) {
			rep.Dropped[ReasonNoPrice]++
			return false
		}
		return true
	})
	return out, nil
}

func lowercase(f *dataset.Frame) {
	for _, col := range f.Columns() {
		if col.Kind != dataset.String {
			continue
		}
		for i, s := range col.Strings {
			if col.Valid[i] {
				col.Strings[i] = strings.ToLower(s)
			}
		}
	}
}

// splitTokens parses a comma separated column into lists, lowercasing an
// existing list column in place. Missing values become empty lists.
func (c *Cleaner) splitTokens(f *dataset.Frame, name string, rep *Report, fix func(string) string) (*dataset.Column, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	lists := make([][]string, f.Len())

	switch {
	case col.Kind == dataset.List:
		for i, l := range col.Lists {
			if w := errors.SafeRow(i, name, func() error {
				out := make([]string, len(l))
				for j, s := range l {
					out[j] = strings.ToLower(s)
				}
				lists[i] = out
				return nil
			}); w != nil {
				lists[i] = l
				c.rowWarning(rep, w)
			}
		}
	case col.Kind == dataset.String:
		for i := range lists {
			s, ok := col.StringAt(i)
			if !ok {
				lists[i] = []string{}
				continue
			}
			if w := errors.SafeRow(i, name, func() error {
				if fix != nil {
					s = fix(s)
				}
				lists[i] = strings.Split(s, ",")
				return nil
			}); w != nil {
				lists[i] = nil
				c.rowWarning(rep, w)
			}
		}
	case col.NullCount() == col.Len():
		for i := range lists {
			lists[i] = []string{}
		}
	default:
		return nil, errors.NewSchemaError("Clean", "cannot parse "+col.Kind.String()+" column as list", name)
	}

	out := dataset.NewListColumn(name, lists)
	if err := f.AddColumn(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Cleaner) parseAmenities(f *dataset.Frame, rep *Report) error {
	_, err := c.splitTokens(f, ColAmenities, rep, nil)
	return err
}

// fillLocation reverse geocodes rows missing a city or a state. Only the
// missing field is written. Failures leave the row as it was.
func (c *Cleaner) fillLocation(ctx context.Context, f *dataset.Frame, rep *Report) error {
	city, err := stringColumn(f, ColCityName)
	if err != nil {
		return err
	}
	state, err := stringColumn(f, ColState)
	if err != nil {
		return err
	}
	lat, err := f.Floats(ColLatitude)
	if err != nil {
		return err
	}
	lon, err := f.Floats(ColLongitude)
	if err != nil {
		return err
	}

	for i := 0; i < f.Len(); i++ {
		if !city.IsNull(i) && !state.IsNull(i) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "geocode")
		}
		if math.IsNaN(lat[i]) || math.IsNaN(lon[i]) {
			rep.GeocodeFailed++
			c.logger.Debug("skipping geocode for partial coordinates", log.RowKey, i)
			continue
		}

		w := errors.SafeRow(i, ColCityName, func() error {
			place, err := c.geocoder.Reverse(ctx, lat[i], lon[i])
			if err != nil {
				return err
			}
			if city.IsNull(i) && place.City != "" {
				city.SetString(i, strings.ToLower(place.City))
			}
			if state.IsNull(i) && place.State != "" {
				state.SetString(i, strings.ToLower(place.State))
			}
			return nil
		})
		if w != nil {
			rep.GeocodeFailed++
			c.rowWarning(rep, w)
			continue
		}
		rep.Geocoded++
	}
	return nil
}

func normalizePrices(f *dataset.Frame, rep *Report) (*dataset.Frame, error) {
	price, err := f.Floats(ColPrice)
	if err != nil {
		return nil, err
	}
	ptype, err := stringColumn(f, ColPriceType)
	if err != nil {
		return nil, err
	}

	for i := range price {
		if s, ok := ptype.StringAt(i); ok && s == priceWeekly {
			price[i] *= weeksPerMonth
			ptype.SetString(i, priceMonthly)
		}
	}

	out := f.Filter(func(i int) bool {
		s, ok := ptype.StringAt(i)
		if ok && s == priceMonthly {
			return true
		}
		rep.Dropped[ReasonPriceType]++
		return false
	})
	return out, nil
}

func binarizePhoto(f *dataset.Frame) error {
	col, err := stringColumn(f, ColHasPhoto)
	if err != nil {
		return err
	}
	for i := 0; i < col.Len(); i++ {
		if s, ok := col.StringAt(i); ok && s == photoThumbnail {
			col.SetString(i, "yes")
		}
	}
	return nil
}

func (c *Cleaner) parsePets(f *dataset.Frame, rep *Report) error {
	pets, err := c.splitTokens(f, ColPetsAllowed, rep, func(s string) string {
		if s == petsAllDeclared {
			return "none"
		}
		return s
	})
	if err != nil {
		return err
	}

	n := f.Len()
	cats := make([]string, n)
	dogs := make([]string, n)
	for i, l := range pets.Lists {
		cats[i] = yesNo(slices.Contains(l, "cats"))
		dogs[i] = yesNo(slices.Contains(l, "dogs"))
	}
	if err := f.AddColumn(dataset.NewStringColumn(ColCatsAllowed, cats, nil)); err != nil {
		return err
	}
	return f.AddColumn(dataset.NewStringColumn(ColDogsAllowed, dogs, nil))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
