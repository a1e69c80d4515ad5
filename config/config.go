package config

import "github.com/caarlos0/env/v6"

type Config struct {
	Server struct {
		Port int `env:"SERVER_PORT" envDefault:"8080"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/listings.db"`
	}

	Geocoding struct {
		// Base URL of the Nominatim-compatible provider
		BaseURL string `env:"GEOCODE_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`

		// ISO country codes passed to the provider to bias results
		CountryCodes string `env:"GEOCODE_COUNTRY_CODES" envDefault:"in"`

		// Per-request timeout in seconds
		RequestTimeout int `env:"GEOCODE_TIMEOUT" envDefault:"10"`

		// Minimum delay between provider requests in milliseconds
		// (Nominatim usage policy)
		RequestDelay int `env:"GEOCODE_REQUEST_DELAY" envDefault:"1000"`
	}

	Search struct {
		// Maximum distance from the resolved coordinate in meters.
		// Deliberately generous: low cascade levels resolve to coarse
		// coordinates (a postal code centroid can sit far from the
		// listings it should match).
		MaxDistanceMeters float64 `env:"SEARCH_MAX_DISTANCE" envDefault:"10000000"`

		// Maximum number of listings returned per search
		ResultLimit int `env:"SEARCH_RESULT_LIMIT" envDefault:"500"`

		// Per-request timeout for the spatial store query in seconds
		QueryTimeout int `env:"SEARCH_QUERY_TIMEOUT" envDefault:"10"`
	}

	// BatchImport configuration
	BatchImport struct {
		// Maximum number of listing batches buffered before import rejects
		QueueSize int `env:"IMPORT_QUEUE_SIZE" envDefault:"50"`

		// Number of concurrent batch workers
		WorkerCount int `env:"IMPORT_WORKER_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"IMPORT_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"IMPORT_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
