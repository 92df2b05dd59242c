// Package ingestion fetches the raw listing tables from the blob store and
// prepares the shuffled train/test subsets that are cleaned separately.
package ingestion

import (
	"context"
	"math/rand/v2"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/storage"
)

// Loader reads the raw tables named in the ingest config.
type Loader struct {
	store  storage.BlobStore
	cfg    config.IngestConfig
	logger log.Logger
}

// NewLoader creates a Loader reading from store.
func NewLoader(store storage.BlobStore, cfg config.IngestConfig, logger log.Logger) *Loader {
	if logger == nil {
		logger = log.GetLoggerWithName("ingestion")
	}
	return &Loader{store: store, cfg: cfg, logger: logger.With(log.StageKey, log.StageIngest)}
}

// ReadOptions returns the CSV options for the raw tables.
func (l *Loader) ReadOptions() dataset.ReadOptions {
	opts := dataset.ReadOptions{
		Charset:       l.cfg.Charset,
		StringColumns: l.cfg.StringColumns,
	}
	if l.cfg.Delimiter != "" {
		opts.Comma = []rune(l.cfg.Delimiter)[0]
	}
	return opts
}

// Fetch downloads every raw key and concatenates the tables in order.
// A failed read is an essential artifact error.
func (l *Loader) Fetch(ctx context.Context) (*dataset.Frame, error) {
	if len(l.cfg.RawKeys) == 0 {
		return nil, errors.NewValueError("Loader.Fetch", "no raw keys configured")
	}
	frames := make([]*dataset.Frame, 0, len(l.cfg.RawKeys))
	for _, key := range l.cfg.RawKeys {
		data, err := l.store.Get(ctx, key)
		if err != nil {
			return nil, errors.NewArtifactError("get", key, true, err)
		}
		f, err := dataset.DecodeCSV(data, l.ReadOptions())
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", key)
		}
		l.logger.Info("fetched raw table",
			log.ArtifactKey, key,
			log.SamplesKey, f.Len(),
			log.FeaturesKey, f.Width(),
		)
		frames = append(frames, f)
	}
	return dataset.Concat(frames...)
}

// Shuffle returns the rows of f in a PCG permutation seeded by seed.
func Shuffle(f *dataset.Frame, seed uint64) *dataset.Frame {
	r := rand.New(rand.NewPCG(seed, seed))
	return f.Take(r.Perm(f.Len()))
}

// Split shuffles f and cuts it at int(n*trainFraction): the first part is
// the train subset, the rest the test subset.
func Split(f *dataset.Frame, trainFraction float64, seed uint64) (train, test *dataset.Frame, err error) {
	if !(trainFraction > 0 && trainFraction < 1) {
		return nil, nil, errors.NewValidationError("train_fraction", "must be in (0, 1)", trainFraction)
	}
	shuffled := Shuffle(f, seed)
	cut := int(float64(shuffled.Len()) * trainFraction)
	idx := make([]int, shuffled.Len())
	for i := range idx {
		idx[i] = i
	}
	return shuffled.Take(idx[:cut]), shuffled.Take(idx[cut:]), nil
}

// Load fetches, concatenates and splits the raw tables.
func (l *Loader) Load(ctx context.Context) (train, test *dataset.Frame, err error) {
	raw, err := l.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	train, test, err = Split(raw, l.cfg.TrainFraction, l.cfg.ShuffleSeed)
	if err != nil {
		return nil, nil, err
	}
	l.logger.Info("split raw data",
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		log.RandomSeedKey, l.cfg.ShuffleSeed,
	)
	return train, test, nil
}
