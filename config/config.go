package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Port the API server listens on
	Port string `env:"PORT" envDefault:"5250"`

	// Path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database/comparables.db"`

	// Allowed CORS origins, comma separated
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Sync configuration
	Sync struct {
		// Debounce window before a dirty selection is saved (in milliseconds).
		// Must comfortably cover a rapid sequence of clicks.
		DebounceMillis int `env:"SYNC_DEBOUNCE_MS" envDefault:"800"`

		// Interval between retry sweeps for contexts left dirty by a
		// failed save (in seconds)
		RetryIntervalSeconds int `env:"SYNC_RETRY_INTERVAL" envDefault:"30"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of queued ingestion batches
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
