// Package features derives model inputs from a cleaned listing table.
package features

import (
	"strings"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/preprocessing"
)

// Derived column names.
const (
	ColNAmenities     = "n_amenities"
	ColPricePerSqFeet = "price_per_sq_feet"

	colAmenities  = "amenities"
	colPrice      = "price"
	colSquareFeet = "square_feet"
)

// Builder derives numeric features and one-hot encodes the declared
// categorical columns. The encoder is fit once, on training data, and reused
// for every later Transform.
type Builder struct {
	encoder *preprocessing.OneHotEncoder
	logger  log.Logger
}

// NewBuilder creates a Builder for the categorical columns in cfg.
func NewBuilder(cfg config.FeaturesConfig, logger log.Logger) *Builder {
	return FromEncoder(preprocessing.NewOneHotEncoder(cfg.CategoricalColumns), logger)
}

// FromEncoder wraps an encoder, typically one loaded from an artifact.
func FromEncoder(enc *preprocessing.OneHotEncoder, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.GetLoggerWithName("features")
	}
	return &Builder{encoder: enc, logger: logger.With(log.StageKey, log.StageFeatures)}
}

// Encoder returns the underlying encoder for persistence.
func (b *Builder) Encoder() *preprocessing.OneHotEncoder {
	return b.encoder
}

// Derive adds n_amenities and, when price is present, price_per_sq_feet.
// price_per_sq_feet is +Inf or NaN when square_feet is 0.
func Derive(f *dataset.Frame) error {
	if f.Has(colAmenities) {
		col, err := f.Column(colAmenities)
		if err != nil {
			return err
		}
		counts := make([]float64, f.Len())
		for i := range counts {
			counts[i] = float64(amenityCount(col, i))
		}
		if err := f.AddColumn(dataset.NewFloatColumn(ColNAmenities, counts)); err != nil {
			return err
		}
	}

	if !f.Has(colPrice) || !f.Has(colSquareFeet) {
		return nil
	}
	price, err := f.Floats(colPrice)
	if err != nil {
		return err
	}
	sqft, err := f.Floats(colSquareFeet)
	if err != nil {
		return err
	}
	ratio := make([]float64, len(price))
	for i := range price {
		ratio[i] = price[i] / sqft[i]
	}
	return f.AddColumn(dataset.NewFloatColumn(ColPricePerSqFeet, ratio))
}

func amenityCount(col *dataset.Column, i int) int {
	switch col.Kind {
	case dataset.List:
		return len(col.Lists[i])
	case dataset.String:
		if s, ok := col.StringAt(i); ok && s != "" {
			return len(strings.Split(s, ","))
		}
	}
	return 0
}

// Fit derives features on train and fits the encoder.
func (b *Builder) Fit(train *dataset.Frame) error {
	if err := Derive(train); err != nil {
		return err
	}
	if err := b.encoder.Fit(train); err != nil {
		return errors.Wrap(err, "fit encoder")
	}
	names, _ := b.encoder.FeatureNamesOut()
	b.logger.Info("encoder fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, train.Len(),
		log.FeaturesKey, len(names),
	)
	return nil
}

// Transform derives features and replaces the categorical columns with
// their indicator columns.
func (b *Builder) Transform(f *dataset.Frame) (*dataset.Frame, error) {
	if err := Derive(f); err != nil {
		return nil, err
	}
	return b.encoder.Transform(f)
}

// FitTransform is Fit followed by Transform on the same frame.
func (b *Builder) FitTransform(train *dataset.Frame) (*dataset.Frame, error) {
	if err := b.Fit(train); err != nil {
		return nil, err
	}
	return b.encoder.Transform(train)
}

// FeatureColumns returns the model inputs: the numeric features followed by
// the encoder's indicator columns.
func (b *Builder) FeatureColumns(numeric []string) ([]string, error) {
	encoded, err := b.encoder.FeatureNamesOut()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(numeric)+len(encoded))
	out = append(out, numeric...)
	return append(out, encoded...), nil
}
