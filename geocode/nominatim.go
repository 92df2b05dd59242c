// Package geocode resolves coordinates to a city and state. Lookups against
// the remote service are cached, rate limited, and guarded by a circuit breaker.
package geocode

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// Place is the result of a reverse lookup. State is a USPS abbreviation.
// Empty fields mean the service did not know the value.
type Place struct {
	City  string
	State string
}

// Empty reports whether neither field was resolved.
func (p Place) Empty() bool {
	return p.City == "" && p.State == ""
}

// Reverser resolves a coordinate pair to a Place.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// Nominatim is a Reverser backed by the OpenStreetMap Nominatim API.
type Nominatim struct {
	client *resty.Client
}

// NewNominatim creates a client for baseURL sending userAgent on every request.
// Nominatim rejects requests without a user agent.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Nominatim{client: client}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		County string `json:"county"`
		City   string `json:"city"`
		State  string `json:"state"`
	} `json:"address"`
}

// Reverse calls /reverse. A coordinate the service cannot resolve yields an
// empty Place and no error.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	res, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "jsonv2",
			"lat":            strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":            strconv.FormatFloat(lon, 'f', -1, 64),
			"addressdetails": "1",
		}).
		Get("/reverse")
	if err != nil {
		return Place{}, errors.Wrapf(err, "reverse geocode %v,%v", lat, lon)
	}
	if !res.IsSuccess() {
		return Place{}, errors.Newf("reverse geocode %v,%v: status %d", lat, lon, res.StatusCode())
	}

	var body reverseResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return Place{}, errors.Wrap(err, "decode reverse geocode response")
	}
	if body.Error != "" {
		return Place{}, nil
	}

	city := body.Address.County
	if city == "" {
		city = body.Address.City
	}
	return Place{City: city, State: Abbreviate(body.Address.State)}, nil
}
