// Package cleaning turns raw listing tables into the cleaned dataset used for
// training: column drops, row filters, lowercasing, amenity and pet parsing,
// geocode and group-mean imputation, and monthly price normalization.
package cleaning

import (
	"context"
	"time"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/geocode"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/telemetry"
)

// Column names the Cleaner reads or writes.
const (
	ColLatitude    = "latitude"
	ColLongitude   = "longitude"
	ColPrice       = "price"
	ColPriceType   = "price_type"
	ColCityName    = "cityname"
	ColState       = "state"
	ColAmenities   = "amenities"
	ColSquareFeet  = "square_feet"
	ColBedrooms    = "bedrooms"
	ColBathrooms   = "bathrooms"
	ColHasPhoto    = "has_photo"
	ColPetsAllowed = "pets_allowed"
	ColCatsAllowed = "cats_allowed"
	ColDogsAllowed = "dogs_allowed"
)

// RequiredColumns must be present after the configured drops.
var RequiredColumns = []string{
	ColLatitude, ColLongitude, ColPrice, ColPriceType, ColCityName, ColState,
	ColAmenities, ColSquareFeet, ColBedrooms, ColBathrooms, ColHasPhoto, ColPetsAllowed,
}

// Drop reasons reported in Report and the rows-dropped counter.
const (
	ReasonNoLocation = "no_location"
	ReasonNoPrice    = "no_price"
	ReasonPriceType  = "price_type"
)

// Report summarizes one Clean call.
type Report struct {
	InputRows        int
	OutputRows       int
	Dropped          map[string]int
	Geocoded         int
	GeocodeFailed    int
	ImputedBedrooms  int
	ImputedBathrooms int
	RowWarnings      int
}

// Cleaner applies the cleaning steps to a Frame. The zero value is not usable;
// create one with New.
type Cleaner struct {
	cfg      config.CleanConfig
	geocoder geocode.Reverser
	logger   log.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithGeocoder sets the Reverser used to fill missing city and state.
// Without one, or with geocoding disabled in the config, the step is skipped.
func WithGeocoder(g geocode.Reverser) Option {
	return func(c *Cleaner) { c.geocoder = g }
}

// WithLogger sets the logger. Defaults to the named global logger.
func WithLogger(l log.Logger) Option {
	return func(c *Cleaner) { c.logger = l }
}

// New creates a Cleaner for cfg.
func New(cfg config.CleanConfig, opts ...Option) *Cleaner {
	c := &Cleaner{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("cleaning")
	}
	c.logger = c.logger.With(log.StageKey, log.StageClean)
	return c
}

// Clean runs every cleaning step on f and returns the cleaned frame.
// f is modified and must not be reused by the caller.
func (c *Cleaner) Clean(ctx context.Context, f *dataset.Frame) (*dataset.Frame, error) {
	out, _, err := c.CleanWithReport(ctx, f)
	return out, err
}

// CleanWithReport is Clean plus a summary of what was dropped and imputed.
func (c *Cleaner) CleanWithReport(ctx context.Context, f *dataset.Frame) (*dataset.Frame, *Report, error) {
	start := time.Now()
	rep := &Report{InputRows: f.Len(), Dropped: make(map[string]int)}

	if err := f.Drop(c.cfg.DropColumns...); err != nil {
		return nil, nil, err
	}
	if err := requireColumns(f); err != nil {
		return nil, nil, err
	}

	f, err := dropMissing(f, rep)
	if err != nil {
		return nil, nil, err
	}

	lowercase(f)

	if err := c.parseAmenities(f, rep); err != nil {
		return nil, nil, err
	}

	if c.cfg.Geocode && c.geocoder != nil {
		if err := c.fillLocation(ctx, f, rep); err != nil {
			return nil, nil, err
		}
	}

	if err := impute(f, rep); err != nil {
		return nil, nil, err
	}

	f, err = normalizePrices(f, rep)
	if err != nil {
		return nil, nil, err
	}

	if err := binarizePhoto(f); err != nil {
		return nil, nil, err
	}

	if err := c.parsePets(f, rep); err != nil {
		return nil, nil, err
	}

	rep.OutputRows = f.Len()
	for reason, n := range rep.Dropped {
		telemetry.RecordRowsDropped(reason, n)
	}
	c.logger.Info("cleaning complete",
		log.SamplesKey, rep.OutputRows,
		log.RowsDroppedKey, rep.InputRows-rep.OutputRows,
		"dropped_no_location", rep.Dropped[ReasonNoLocation],
		"dropped_no_price", rep.Dropped[ReasonNoPrice],
		"dropped_price_type", rep.Dropped[ReasonPriceType],
		"geocoded", rep.Geocoded,
		"geocode_failed", rep.GeocodeFailed,
		log.RowsImputedKey, rep.ImputedBedrooms+rep.ImputedBathrooms,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return f, rep, nil
}

func requireColumns(f *dataset.Frame) error {
	var missing []string
	for _, name := range RequiredColumns {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.NewSchemaError("Clean", "required columns not found", missing...)
	}
	return nil
}

// rowWarning logs a failed row transform. The row keeps its previous value.
func (c *Cleaner) rowWarning(rep *Report, w *errors.DataConversionWarning) {
	rep.RowWarnings++
	telemetry.RowWarnings.WithLabelValues(w.Column).Inc()
	c.logger.Warn("row transform failed",
		log.RowKey, w.Row,
		log.ColumnKey, w.Column,
		"reason", w.Reason,
	)
}
