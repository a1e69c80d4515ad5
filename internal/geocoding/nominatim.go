package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// NominatimClient talks to a Nominatim-compatible geocoding endpoint.
type NominatimClient struct {
	logger       *logrus.Logger
	baseURL      string
	countryCodes string
	delay        time.Duration
	client       *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

// NewNominatimClient returns a client for the given endpoint. delay is the
// minimum gap between requests (Nominatim's usage policy asks for at most one
// request per second); timeout bounds each individual request.
func NewNominatimClient(logger *logrus.Logger, baseURL, countryCodes string, timeout, delay time.Duration) *NominatimClient {
	return &NominatimClient{
		logger:       logger,
		baseURL:      baseURL,
		countryCodes: countryCodes,
		delay:        delay,
		client:       &http.Client{Timeout: timeout},
	}
}

type nominatimResponse []struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *NominatimClient) Search(ctx context.Context, query string) ([]Place, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"q":              []string{query},
		"format":         []string{"json"},
		"limit":          []string{"1"},
		"addressdetails": []string{"1"},
	}
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "NestQuest Listing Server/1.0")

	c.logger.WithField("query", query).Debug("Geocoding query with Nominatim")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("query", query).Error("Geocoding request failed")
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	places := make([]Place, 0, len(result))
	for _, r := range result {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		places = append(places, Place{Latitude: lat, Longitude: lon, DisplayName: r.DisplayName})
	}
	return places, nil
}

// throttle enforces the minimum delay between provider calls without holding
// the mutex while waiting.
func (c *NominatimClient) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.delay - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
