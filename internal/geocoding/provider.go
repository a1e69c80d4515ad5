package geocoding

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
)

var (
	// ErrNoMatch means the provider returned no result for any query tried.
	ErrNoMatch = errors.New("no matching location found")

	// ErrEmptyQuery means the free-text location was empty or whitespace.
	ErrEmptyQuery = errors.New("location query is empty")

	// ErrIncompleteAddress means a structured address is missing one of the
	// five required fields.
	ErrIncompleteAddress = errors.New("incomplete address: street, city, state, country and postal code are required")
)

// Coordinate is a geocoded point. Latitude in [-90,90], longitude in [-180,180].
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point returns the coordinate in orb's lon/lat order.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// Place is a single provider match.
type Place struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

// Provider geocodes a free-text query. Implementations may return an empty
// slice when nothing matches, or an error on transport failure.
type Provider interface {
	Search(ctx context.Context, query string) ([]Place, error)
}
