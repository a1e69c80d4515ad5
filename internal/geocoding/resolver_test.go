package geocoding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestquest/server/internal/models"
)

type fakeProvider struct {
	mu      sync.Mutex
	queries []string
	places  map[string][]Place
	errs    map[string]error
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]Place, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.places[query], nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func newTestResolver(t *testing.T, provider Provider) *Resolver {
	t.Helper()
	return NewResolver(provider, logrus.New(), t.TempDir())
}

func fullAddress() models.Address {
	return models.Address{
		Street:     "12 MG Road",
		City:       "New Delhi",
		State:      "Delhi",
		Country:    "India",
		PostalCode: "110001",
	}
}

func TestResolveAddress_FullMatchStopsCascade(t *testing.T) {
	addr := fullAddress()
	provider := &fakeProvider{
		places: map[string][]Place{
			"12 MG Road, New Delhi, Delhi, India, 110001": {{Latitude: 28.6334, Longitude: 77.2197}},
		},
	}
	r := newTestResolver(t, provider)

	coord, err := r.ResolveAddress(context.Background(), addr)

	require.NoError(t, err)
	assert.Equal(t, Coordinate{Latitude: 28.6334, Longitude: 77.2197}, coord)
	assert.Equal(t, 1, provider.callCount())
}

func TestResolveAddress_FallsBackToPostalCountry(t *testing.T) {
	provider := &fakeProvider{
		places: map[string][]Place{
			"110001, India": {{Latitude: 28.63, Longitude: 77.22}},
		},
	}
	r := newTestResolver(t, provider)

	coord, err := r.ResolveAddress(context.Background(), fullAddress())

	require.NoError(t, err)
	assert.Equal(t, Coordinate{Latitude: 28.63, Longitude: 77.22}, coord)
	// Levels 1 and 2 missed, level 3 matched, level 4 never attempted.
	assert.Equal(t, 3, provider.callCount())
	assert.Equal(t, "110001, India", provider.queries[2])
}

func TestResolveAddress_AllLevelsExhausted(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(t, provider)

	_, err := r.ResolveAddress(context.Background(), fullAddress())

	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, 4, provider.callCount())
}

func TestResolveAddress_TransientFailureCountsAsMiss(t *testing.T) {
	provider := &fakeProvider{
		errs: map[string]error{
			"12 MG Road, New Delhi, Delhi, India, 110001": errors.New("status 503"),
		},
		places: map[string][]Place{
			"New Delhi, Delhi, India": {{Latitude: 28.61, Longitude: 77.21}},
		},
	}
	r := newTestResolver(t, provider)

	coord, err := r.ResolveAddress(context.Background(), fullAddress())

	require.NoError(t, err)
	assert.Equal(t, Coordinate{Latitude: 28.61, Longitude: 77.21}, coord)
	assert.Equal(t, 2, provider.callCount())
}

func TestResolveAddress_IncompleteAddressSkipsNetwork(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(t, provider)

	addr := fullAddress()
	addr.PostalCode = ""
	_, err := r.ResolveAddress(context.Background(), addr)

	assert.ErrorIs(t, err, ErrIncompleteAddress)
	assert.Zero(t, provider.callCount())
}

func TestResolveAddress_CancellationStopsCascade(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{
		errs: map[string]error{
			"12 MG Road, New Delhi, Delhi, India, 110001": context.Canceled,
		},
	}
	r := newTestResolver(t, provider)

	cancel()
	_, err := r.ResolveAddress(ctx, fullAddress())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.callCount())
}

func TestResolveText_SingleQuery(t *testing.T) {
	provider := &fakeProvider{
		places: map[string][]Place{
			"110001, India": {{Latitude: 28.63, Longitude: 77.22}},
		},
	}
	r := newTestResolver(t, provider)

	coord, err := r.ResolveText(context.Background(), "110001, India")

	require.NoError(t, err)
	assert.Equal(t, Coordinate{Latitude: 28.63, Longitude: 77.22}, coord)
	assert.Equal(t, 1, provider.callCount())
}

func TestResolveText_Empty(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(t, provider)

	_, err := r.ResolveText(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, provider.callCount())
}

func TestResolveText_NoMatch(t *testing.T) {
	provider := &fakeProvider{}
	r := newTestResolver(t, provider)

	_, err := r.ResolveText(context.Background(), "nowhere at all")

	assert.ErrorIs(t, err, ErrNoMatch)
}

type blockingProvider struct {
	release chan struct{}
	calls   atomic.Int32
}

func (p *blockingProvider) Search(ctx context.Context, query string) ([]Place, error) {
	p.calls.Add(1)
	<-p.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Place{{Latitude: 19.076, Longitude: 72.8777}}, nil
}

func TestResolveText_SharedLookupSurvivesCallerCancel(t *testing.T) {
	provider := &blockingProvider{release: make(chan struct{})}
	r := newTestResolver(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.ResolveText(ctx, "Mumbai")
		first <- err
	}()

	require.Eventually(t, func() bool {
		return provider.calls.Load() == 1
	}, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		coord, err := r.ResolveText(context.Background(), "Mumbai")
		if err == nil {
			assert.Equal(t, Coordinate{Latitude: 19.076, Longitude: 72.8777}, coord)
		}
		second <- err
	}()

	// Let the second caller join the in-flight lookup, then cancel the
	// first caller before the provider responds.
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(provider.release)

	assert.NoError(t, <-second)
	<-first
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestResolveText_SecondLookupHitsCache(t *testing.T) {
	provider := &fakeProvider{
		places: map[string][]Place{
			"Mumbai": {{Latitude: 19.076, Longitude: 72.8777}},
		},
	}
	r := newTestResolver(t, provider)

	first, err := r.ResolveText(context.Background(), "Mumbai")
	require.NoError(t, err)

	second, err := r.ResolveText(context.Background(), "Mumbai")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.callCount())
}
