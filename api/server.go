// Package api exposes prediction, description and training over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/rentprice/describe"
	"github.com/YuminosukeSato/rentprice/pipeline"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/predict"
)

// Pricer predicts a listing's monthly price.
type Pricer interface {
	Predict(ctx context.Context, in predict.Input) (float64, error)
}

// Describer writes a rental posting for a listing.
type Describer interface {
	Describe(ctx context.Context, l describe.Listing) (string, error)
}

// TrainFunc runs a training job for a trigger request.
type TrainFunc func(ctx context.Context, req pipeline.TriggerRequest) pipeline.TriggerResponse

// Config tunes the router.
type Config struct {
	// RateLimit is the per-IP request budget per minute. Zero disables it.
	RateLimit int
	Timeout   time.Duration
}

// Service holds the handlers' dependencies. A nil dependency disables its
// route with 503.
type Service struct {
	pricer    Pricer
	describer Describer
	train     TrainFunc
	logger    log.Logger
}

// NewService creates a Service.
func NewService(pricer Pricer, describer Describer, train TrainFunc, logger log.Logger) *Service {
	if logger == nil {
		logger = log.GetLoggerWithName("api")
	}
	return &Service{pricer: pricer, describer: describer, train: train, logger: logger}
}

// Router builds the chi router with middleware and routes.
func (s *Service) Router(cfg Config) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", RestHandler(s.logger, func(r *http.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	}))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		r.Use(middleware.Timeout(cfg.Timeout))
		s.AddRoutes(r)
	})
	return r
}

// AddRoutes registers the JSON endpoints on r.
func (s *Service) AddRoutes(r chi.Router) {
	r.Post("/predict", RestHandler(s.logger, s.Predict))
	r.Post("/describe", RestHandler(s.logger, s.Describe))
	r.Post("/train", s.Train)
}
