package pipeline

import (
	"context"
	"net/http"
	"sort"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/storage"
)

// TriggerRequest names the run configuration object to train with.
type TriggerRequest struct {
	ModelConfigKey string `json:"modelConfigKey" validate:"required"`
}

// TriggerBody is the payload of a TriggerResponse.
type TriggerBody struct {
	RunID  string        `json:"run_id,omitempty"`
	URIs   []string      `json:"s3_uris"`
	Stages []StageResult `json:"stages,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// TriggerResponse mirrors an HTTP response: 200 with the stored artifact URIs,
// 404 when the config object is missing, 400 for an invalid config and 500
// when the run fails.
type TriggerResponse struct {
	StatusCode int         `json:"statusCode"`
	Body       TriggerBody `json:"body"`
}

// Trigger resolves req.ModelConfigKey under configPrefix in store, loads the
// run configuration it holds and executes a training run.
func Trigger(ctx context.Context, store storage.BlobStore, configPrefix string, req TriggerRequest, opts ...Option) TriggerResponse {
	if req.ModelConfigKey == "" {
		return failure(http.StatusBadRequest, errors.NewValidationError("modelConfigKey", "required", ""))
	}
	key := storage.JoinKey(configPrefix, req.ModelConfigKey)
	data, err := store.Get(ctx, key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrNotFound) {
			status = http.StatusNotFound
		}
		return failure(status, errors.Wrapf(err, "load run config %s", key))
	}

	cfg, err := config.LoadBytes(data)
	if err != nil {
		return failure(http.StatusBadRequest, err)
	}

	res, err := NewRunner(cfg, store, opts...).Run(ctx)
	body := TriggerBody{URIs: []string{}}
	if res != nil {
		body.RunID = res.RunID
		body.Stages = res.Stages
		body.URIs = sortedURIs(res.URIs)
	}
	if err != nil {
		body.Error = err.Error()
		return TriggerResponse{StatusCode: http.StatusInternalServerError, Body: body}
	}
	return TriggerResponse{StatusCode: http.StatusOK, Body: body}
}

func failure(status int, err error) TriggerResponse {
	return TriggerResponse{StatusCode: status, Body: TriggerBody{URIs: []string{}, Error: err.Error()}}
}

func sortedURIs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, uri := range m {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}
