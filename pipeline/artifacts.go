package pipeline

import (
	"context"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/storage"
)

// Artifact file names written under {output}/{run_id}/.
const (
	ConfigFile    = "config.yaml"
	TrainFile     = "train.csv"
	TestFile      = "test.csv"
	CVResultsFile = "cv_results.csv"
	ScoresFile    = "scores.csv"
	MetricsFile   = "metrics.yaml"
	PlotFile      = "pred_vs_actual.png"
)

// artifact is one object to write. A failed essential write aborts the run;
// any other failure is logged and skipped.
type artifact struct {
	name      string
	essential bool
	render    func() ([]byte, error)
}

// artifactWriter stores run artifacts and collects their URIs.
type artifactWriter struct {
	store  storage.BlobStore
	prefix string
	logger log.Logger
	uris   map[string]string
}

func newArtifactWriter(store storage.BlobStore, prefix string, logger log.Logger) *artifactWriter {
	return &artifactWriter{store: store, prefix: prefix, logger: logger, uris: make(map[string]string)}
}

func (w *artifactWriter) write(ctx context.Context, a artifact) error {
	key := storage.JoinKey(w.prefix, a.name)
	err := errors.SafeExecute("render "+a.name, func() error {
		data, err := a.render()
		if err != nil {
			return err
		}
		uri, err := w.store.Put(ctx, key, data)
		if err != nil {
			return err
		}
		w.uris[a.name] = uri
		return nil
	})
	if err == nil {
		w.logger.Debug("artifact written", log.ArtifactKey, key)
		return nil
	}

	err = errors.NewArtifactError("put", key, a.essential, err)
	if a.essential {
		return err
	}
	w.logger.Warn("skipping non-essential artifact",
		log.ArtifactKey, key,
		log.EssentialKey, false,
		"error", err,
	)
	return nil
}

func (w *artifactWriter) writeAll(ctx context.Context, artifacts ...artifact) error {
	for _, a := range artifacts {
		if err := w.write(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
