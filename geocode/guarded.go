package geocode

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/telemetry"
)

// Guarded wraps a Reverser with an LRU cache, a rate limiter, a per-call
// timeout and a circuit breaker. Only successful lookups are cached.
type Guarded struct {
	next    Reverser
	cache   *LRU
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[Place]
	timeout time.Duration
	logger  log.Logger
}

// NewGuarded wraps next using the limits in cfg.
func NewGuarded(next Reverser, cfg config.GeocodeConfig, logger log.Logger) *Guarded {
	if logger == nil {
		logger = log.GetLoggerWithName("geocode")
	}
	settings := gobreaker.Settings{
		Name:        "geocode",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				log.ComponentKey, name, "from", from.String(), "to", to.String())
		},
	}
	return &Guarded{
		next:    next,
		cache:   NewLRU(cfg.CacheSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker[Place](settings),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// NewFromConfig builds a guarded Nominatim client.
func NewFromConfig(cfg config.GeocodeConfig, logger log.Logger) *Guarded {
	return NewGuarded(NewNominatim(cfg.BaseURL, cfg.UserAgent, cfg.Timeout), cfg, logger)
}

// Reverse returns the cached Place for (lat, lon) or asks the wrapped Reverser.
// While the breaker is open the call fails fast with ErrBreakerOpen.
func (g *Guarded) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	key := Coord{Lat: lat, Lon: lon}
	if p, ok := g.cache.Get(key); ok {
		telemetry.RecordGeocode(telemetry.LookupHit)
		return p, nil
	}

	if g.breaker.State() == gobreaker.StateOpen {
		telemetry.RecordGeocode(telemetry.LookupSkipped)
		return Place{}, errors.ErrBreakerOpen
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return Place{}, errors.Wrap(err, "geocode rate limiter")
	}

	p, err := g.breaker.Execute(func() (Place, error) {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.next.Reverse(cctx, lat, lon)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			telemetry.RecordGeocode(telemetry.LookupSkipped)
			return Place{}, errors.ErrBreakerOpen
		}
		telemetry.RecordGeocode(telemetry.LookupError)
		return Place{}, err
	}

	telemetry.RecordGeocode(telemetry.LookupMiss)
	g.cache.Add(key, p)
	return p, nil
}

// CacheStats reports cache hits and misses.
func (g *Guarded) CacheStats() (hits, misses int64) {
	return g.cache.Stats()
}

// BreakerState returns the breaker state name.
func (g *Guarded) BreakerState() string {
	return g.breaker.State().String()
}
