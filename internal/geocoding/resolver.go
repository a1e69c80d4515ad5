package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"nestquest/server/internal/models"
)

// Resolver turns free-text locations and structured addresses into
// coordinates using an injected Provider. Results are cached on disk keyed by
// the raw query string, and concurrent identical lookups are collapsed into a
// single provider call.
type Resolver struct {
	provider  Provider
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string]Coordinate
	cacheLock sync.RWMutex
	flight    singleflight.Group
}

func NewResolver(provider Provider, logger *logrus.Logger, cacheDir string) *Resolver {
	os.MkdirAll(cacheDir, 0755)

	r := &Resolver{
		provider: provider,
		logger:   logger,
		cacheDir: cacheDir,
		cache:    make(map[string]Coordinate),
	}
	r.loadCache()
	return r
}

// ResolveText resolves a free-text location with a single provider query.
func (r *Resolver) ResolveText(ctx context.Context, text string) (Coordinate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Coordinate{}, ErrEmptyQuery
	}

	coord, err := r.lookup(ctx, text)
	if err != nil {
		return Coordinate{}, err
	}
	return coord, nil
}

// ResolveAddress resolves a structured address by trying progressively less
// specific queries until one matches. All five required fields must be
// present before any network call is made. Levels run strictly one at a time:
// a match at a more specific level must win, and geocoding providers penalize
// concurrent bursts. A transient provider failure counts as a miss for that
// level and the cascade moves on.
func (r *Resolver) ResolveAddress(ctx context.Context, addr models.Address) (Coordinate, error) {
	if addr.Street == "" || addr.City == "" || addr.State == "" || addr.Country == "" || addr.PostalCode == "" {
		return Coordinate{}, ErrIncompleteAddress
	}

	queries := cascadeQueries(addr)
	for level, query := range queries {
		coord, err := r.lookup(ctx, query)
		if err == nil {
			r.logger.WithFields(logrus.Fields{
				"query":     query,
				"level":     level + 1,
				"latitude":  coord.Latitude,
				"longitude": coord.Longitude,
			}).Info("Resolved address")
			return coord, nil
		}
		if ctx.Err() != nil {
			return Coordinate{}, fmt.Errorf("address resolution aborted: %w", ctx.Err())
		}
		r.logger.WithError(err).WithFields(logrus.Fields{
			"query": query,
			"level": level + 1,
		}).Warn("Cascade level yielded no coordinate")
	}

	return Coordinate{}, ErrNoMatch
}

// cascadeQueries builds the resolution attempts from most to least specific.
func cascadeQueries(addr models.Address) []string {
	return []string{
		fmt.Sprintf("%s, %s, %s, %s, %s", addr.Street, addr.City, addr.State, addr.Country, addr.PostalCode),
		fmt.Sprintf("%s, %s, %s", addr.City, addr.State, addr.Country),
		fmt.Sprintf("%s, %s", addr.PostalCode, addr.Country),
		addr.PostalCode,
	}
}

// lookup resolves one query: cache, then a deduplicated provider call. An
// empty provider result is ErrNoMatch.
func (r *Resolver) lookup(ctx context.Context, query string) (Coordinate, error) {
	r.cacheLock.RLock()
	coord, ok := r.cache[query]
	r.cacheLock.RUnlock()
	if ok {
		r.logger.WithFields(logrus.Fields{
			"query":  query,
			"source": "cache",
		}).Debug("Found coordinate in cache")
		return coord, nil
	}

	result, err, _ := r.flight.Do(query, func() (interface{}, error) {
		// The flight is shared by every concurrent caller, so it must not
		// die with whichever one happened to start it. The provider's own
		// request timeout still bounds the call.
		places, err := r.provider.Search(context.WithoutCancel(ctx), query)
		if err != nil {
			return Coordinate{}, err
		}
		if len(places) == 0 {
			return Coordinate{}, ErrNoMatch
		}

		coord := Coordinate{Latitude: places[0].Latitude, Longitude: places[0].Longitude}

		r.cacheLock.Lock()
		r.cache[query] = coord
		r.cacheLock.Unlock()
		go r.saveCache()

		return coord, nil
	})
	if err != nil {
		return Coordinate{}, err
	}
	return result.(Coordinate), nil
}

func (r *Resolver) loadCache() {
	cacheFile := filepath.Join(r.cacheDir, "geocode_cache.json")
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		r.logger.Warnf("Could not load geocode cache: %v", err)
		return
	}

	if err := json.Unmarshal(data, &r.cache); err != nil {
		r.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	r.logger.Infof("Loaded %d cached locations", len(r.cache))
}

func (r *Resolver) saveCache() {
	r.cacheLock.RLock()
	data, err := json.Marshal(r.cache)
	r.cacheLock.RUnlock()
	if err != nil {
		r.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	cacheFile := filepath.Join(r.cacheDir, "geocode_cache.json")
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		r.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}
