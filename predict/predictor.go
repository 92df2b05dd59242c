// Package predict serves price predictions from the newest trained model in
// the blob store.
package predict

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/features"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/preprocessing"
	"github.com/YuminosukeSato/rentprice/sklearn/ensemble"
	"github.com/YuminosukeSato/rentprice/storage"
)

// Artifact file names inside a run directory.
const (
	ModelFileName   = "tmo.gob"
	EncoderFileName = "encoder.gob"
)

// Input is one listing to price. Numeric fields must be integers.
type Input struct {
	Bathrooms   int      `json:"bathrooms" validate:"min=0"`
	Bedrooms    int      `json:"bedrooms" validate:"min=0"`
	SquareFeet  int      `json:"square_feet" validate:"min=1"`
	Amenities   []string `json:"amenities"`
	HasPhoto    string   `json:"has_photo"`
	DogsAllowed string   `json:"dogs_allowed"`
	CatsAllowed string   `json:"cats_allowed"`
	Fee         string   `json:"fee"`
	CityName    string   `json:"cityname"`
	State       string   `json:"state"`
	Address     string   `json:"address"`
}

// Bundle is a loaded model with the encoder fit in the same run.
type Bundle struct {
	Key     string
	Model   *ensemble.RandomForestRegressor
	Builder *features.Builder
}

// LoadBundle reads the model at modelKey and the encoder beside it.
func LoadBundle(ctx context.Context, store storage.BlobStore, modelKey string, logger log.Logger) (*Bundle, error) {
	data, err := store.Get(ctx, modelKey)
	if err != nil {
		return nil, errors.NewArtifactError("get", modelKey, true, err)
	}
	var rf ensemble.RandomForestRegressor
	if _, err := model.UnmarshalArtifact(data, ensemble.ArtifactKind, &rf); err != nil {
		return nil, errors.NewArtifactError("load", modelKey, true, err)
	}

	encKey := storage.JoinKey(storage.Dir(modelKey), EncoderFileName)
	data, err = store.Get(ctx, encKey)
	if err != nil {
		return nil, errors.NewArtifactError("get", encKey, true, err)
	}
	var enc preprocessing.OneHotEncoder
	if _, err := model.UnmarshalArtifact(data, preprocessing.ArtifactKind, &enc); err != nil {
		return nil, errors.NewArtifactError("load", encKey, true, err)
	}

	return &Bundle{Key: modelKey, Model: &rf, Builder: features.FromEncoder(&enc, logger)}, nil
}

// Predictor prices listings with the newest model under a prefix. The loaded
// bundle is reused until a newer model appears.
type Predictor struct {
	store    storage.BlobStore
	prefix   string
	validate *validator.Validate
	logger   log.Logger

	mu      sync.Mutex
	current *Bundle
}

// NewPredictor creates a Predictor for models under prefix.
func NewPredictor(store storage.BlobStore, prefix string, logger log.Logger) *Predictor {
	if logger == nil {
		logger = log.GetLoggerWithName("predict")
	}
	return &Predictor{
		store:    store,
		prefix:   strings.TrimSuffix(prefix, "/") + "/",
		validate: validator.New(),
		logger:   logger,
	}
}

// bundle returns the newest model, loading it when it changed.
func (p *Predictor) bundle(ctx context.Context) (*Bundle, error) {
	latest, err := storage.Latest(ctx, p.store, p.prefix, "/"+ModelFileName)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.Key == latest.Key {
		return p.current, nil
	}
	b, err := LoadBundle(ctx, p.store, latest.Key, p.logger)
	if err != nil {
		return nil, err
	}
	p.logger.Info("loaded model", log.ArtifactKey, latest.Key, log.FeaturesKey, len(b.Model.FeatureNames()))
	p.current = b
	return b, nil
}

// Predict returns the predicted monthly price rounded to cents.
func (p *Predictor) Predict(ctx context.Context, in Input) (float64, error) {
	if err := p.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return 0, errors.NewValidationError(fe.Field(), "failed '"+fe.Tag()+"' constraint", fe.Value())
		}
		return 0, errors.Wrap(err, "validate input")
	}

	b, err := p.bundle(ctx)
	if err != nil {
		return 0, err
	}
	return PredictWith(b, in)
}

// PredictWith prices in with a loaded bundle.
func PredictWith(b *Bundle, in Input) (float64, error) {
	f, err := inputFrame(in)
	if err != nil {
		return 0, err
	}
	encoded, err := b.Builder.Transform(f)
	if err != nil {
		return 0, err
	}
	X, err := encoded.Matrix(b.Model.FeatureNames())
	if err != nil {
		return 0, err
	}
	pred, err := b.Model.Predict(X)
	if err != nil {
		return 0, err
	}
	return math.Round(pred.At(0, 0)*100) / 100, nil
}

func inputFrame(in Input) (*dataset.Frame, error) {
	str := func(name, v string) *dataset.Column {
		v = strings.ToLower(strings.TrimSpace(v))
		return dataset.NewStringColumn(name, []string{v}, []bool{v != ""})
	}
	amenities := make([]string, len(in.Amenities))
	for i, a := range in.Amenities {
		amenities[i] = strings.ToLower(a)
	}
	return dataset.New(
		dataset.NewFloatColumn("bathrooms", []float64{float64(in.Bathrooms)}),
		dataset.NewFloatColumn("bedrooms", []float64{float64(in.Bedrooms)}),
		dataset.NewFloatColumn("square_feet", []float64{float64(in.SquareFeet)}),
		dataset.NewListColumn("amenities", [][]string{amenities}),
		str("has_photo", in.HasPhoto),
		str("dogs_allowed", in.DogsAllowed),
		str("cats_allowed", in.CatsAllowed),
		str("fee", in.Fee),
		str("cityname", in.CityName),
		str("state", in.State),
		str("address", in.Address),
	)
}
