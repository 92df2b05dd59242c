package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/telemetry"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

// CodedError attaches an HTTP status to err.
func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

// CodedErrorf formats a new error carrying an HTTP status.
func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ParseRequest decodes the JSON body into T. Unknown fields and values of
// the wrong type are rejected with 400.
func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return data, CodedError(http.StatusBadRequest, errors.Wrap(err, "unable to parse request body"))
	}
	return data, nil
}

// statusOf maps domain errors onto HTTP statuses.
func statusOf(err error) int {
	var cerr *codedError
	var verr *errors.ValidationError
	switch {
	case errors.As(err, &cerr):
		return cerr.code
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrBreakerOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		logger.Error("internal server error received in endpoint", "error", err)
	}
	WriteJSON(w, code, ErrorResponse{Error: err.Error()})
}

// RestHandler adapts a JSON handler: a nil error writes res with 200, an
// error is written as an ErrorResponse with its mapped status.
func RestHandler(logger log.Logger, handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if res == nil {
			res = struct{}{}
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// instrument logs each request and records it in the request histogram under
// its route pattern.
func (s *Service) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		d := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		telemetry.RecordAPIRequest(r.Method, route, strconv.Itoa(status), d)
		s.logger.Info("request served",
			"method", r.Method,
			"route", route,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			log.DurationMsKey, d.Milliseconds(),
		)
	})
}
