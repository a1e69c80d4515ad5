package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"nestquest/server/internal/geocoding"
	"nestquest/server/internal/models"
)

var (
	// ErrMissingLocation means the search request carried no location text.
	ErrMissingLocation = errors.New("location is required")

	// ErrNoListings means the pipeline ran to completion but nothing matched.
	// This is an expected outcome, not a system failure.
	ErrNoListings = errors.New("no properties found matching your criteria")
)

// LocationResolver resolves free-text locations to coordinates.
type LocationResolver interface {
	ResolveText(ctx context.Context, text string) (geocoding.Coordinate, error)
}

// ListingStore is the spatial-query capability the pipeline depends on.
// Implementations must return listings ordered by ascending distance from
// the center.
type ListingStore interface {
	NearbyWithFilter(ctx context.Context, center orb.Point, maxDistanceMeters float64, criteria models.SearchCriteria, limit int) ([]models.Listing, error)
}

// Pipeline runs one search request end to end: resolve the location, compose
// the filter criteria, query the store, shape the result. Each invocation is
// stateless and independent of concurrent ones.
type Pipeline struct {
	resolver     LocationResolver
	store        ListingStore
	logger       *logrus.Logger
	maxDistance  float64
	limit        int
	queryTimeout time.Duration
}

func NewPipeline(resolver LocationResolver, store ListingStore, logger *logrus.Logger, maxDistanceMeters float64, limit int, queryTimeout time.Duration) *Pipeline {
	return &Pipeline{
		resolver:     resolver,
		store:        store,
		logger:       logger,
		maxDistance:  maxDistanceMeters,
		limit:        limit,
		queryTimeout: queryTimeout,
	}
}

type resolution struct {
	coord geocoding.Coordinate
	err   error
}

// Search resolves location, applies filters and returns the nearest matching
// listings. Criteria composition runs while the resolver is on the network;
// the store query waits on both. A resolver failure short-circuits the rest.
func (p *Pipeline) Search(ctx context.Context, location string, params RawParams) (models.SearchResult, error) {
	if strings.TrimSpace(location) == "" {
		return models.SearchResult{}, ErrMissingLocation
	}

	resolved := make(chan resolution, 1)
	go func() {
		coord, err := p.resolver.ResolveText(ctx, location)
		resolved <- resolution{coord, err}
	}()

	criteria := ComposeCriteria(params)

	res := <-resolved
	if res.err != nil {
		return models.SearchResult{}, fmt.Errorf("failed to resolve location %q: %w", location, res.err)
	}

	p.logger.WithFields(logrus.Fields{
		"location":  location,
		"latitude":  res.coord.Latitude,
		"longitude": res.coord.Longitude,
	}).Info("Resolved search location")

	// The request context alone carries no deadline; the store query gets
	// its own bound so a stuck store surfaces as a timeout.
	queryCtx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	listings, err := p.store.NearbyWithFilter(queryCtx, res.coord.Point(), p.maxDistance, criteria, p.limit)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("proximity query failed: %w", err)
	}
	if len(listings) == 0 {
		return models.SearchResult{}, ErrNoListings
	}

	return assemble(listings), nil
}

// assemble shapes the final result. Ordering is the store's contract and is
// left untouched here.
func assemble(listings []models.Listing) models.SearchResult {
	return models.SearchResult{Count: len(listings), Listings: listings}
}
