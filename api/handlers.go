package api

import (
	"net/http"

	"github.com/YuminosukeSato/rentprice/describe"
	"github.com/YuminosukeSato/rentprice/pipeline"
	"github.com/YuminosukeSato/rentprice/predict"
)

// PredictResponse is the body returned by POST /predict.
type PredictResponse struct {
	PredPrice float64 `json:"pred_price"`
}

// DescribeResponse is the body returned by POST /describe.
type DescribeResponse struct {
	Description string `json:"description"`
}

// Predict handles POST /predict.
func (s *Service) Predict(r *http.Request) (any, error) {
	if s.pricer == nil {
		return nil, CodedErrorf(http.StatusServiceUnavailable, "prediction is not configured")
	}
	in, err := ParseRequest[predict.Input](r)
	if err != nil {
		return nil, err
	}
	price, err := s.pricer.Predict(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return PredictResponse{PredPrice: price}, nil
}

// Describe handles POST /describe.
func (s *Service) Describe(r *http.Request) (any, error) {
	if s.describer == nil {
		return nil, CodedErrorf(http.StatusServiceUnavailable, "description is not configured")
	}
	l, err := ParseRequest[describe.Listing](r)
	if err != nil {
		return nil, err
	}
	text, err := s.describer.Describe(r.Context(), l)
	if err != nil {
		return nil, err
	}
	return DescribeResponse{Description: text}, nil
}

// Train runs a training job synchronously and replies with the trigger's
// status code and body.
func (s *Service) Train(w http.ResponseWriter, r *http.Request) {
	if s.train == nil {
		writeError(w, s.logger, CodedErrorf(http.StatusServiceUnavailable, "training is not configured"))
		return
	}
	req, err := ParseRequest[pipeline.TriggerRequest](r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	resp := s.train(r.Context(), req)
	if resp.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("training run failed", "status", resp.StatusCode, "error", resp.Body.Error)
	}
	WriteJSON(w, resp.StatusCode, resp)
}
