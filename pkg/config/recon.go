package config

import "time"

// ReconConfig configures the reconciliation workers that re-run partially
// applied cascades.
type ReconConfig struct {
	Enabled         bool          `env:"RECON_ENABLED" envDefault:"true"`
	Concurrency     int           `env:"RECON_CONCURRENCY" envDefault:"2"`
	MaxAttempts     int           `env:"RECON_MAX_ATTEMPTS" envDefault:"5"`
	PollInterval    time.Duration `env:"RECON_POLL_INTERVAL" envDefault:"1s"`
	RetryDelay      time.Duration `env:"RECON_RETRY_DELAY" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"RECON_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}
