package backend

import (
	"fmt"
)

// Config configures a Server.
type Config struct {
	// SplitThreshold is the largest number of documents a bounded page may hold
	// before it is answered with a split directive. Zero means twice the
	// requested page size.
	SplitThreshold int `yaml:"splitThreshold"`

	// MaxPageSize caps numItems of pagination requests.
	MaxPageSize int `yaml:"maxPageSize"`

	// StorageBucket is the JetStream KV bucket used by kvstorage.
	StorageBucket string `yaml:"storageBucket"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPageSize:   1000,
		StorageBucket: "livesub-documents",
	}
}

// SetDefaults fills in missing configuration values with defaults.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = defaults.MaxPageSize
	}
	if cfg.StorageBucket == "" {
		cfg.StorageBucket = defaults.StorageBucket
	}
}

// Validate checks configuration constraints.
//
// Returns:
//   - error: wraps ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.SplitThreshold < 0 {
		return fmt.Errorf("%w: SplitThreshold must be >= 0, got %d", ErrInvalidConfig, cfg.SplitThreshold)
	}
	if cfg.MaxPageSize <= 0 {
		return fmt.Errorf("%w: MaxPageSize must be > 0, got %d", ErrInvalidConfig, cfg.MaxPageSize)
	}
	if cfg.SplitThreshold > 0 && cfg.SplitThreshold < 2 {
		return fmt.Errorf("%w: SplitThreshold must be >= 2 to leave two non-empty halves, got %d", ErrInvalidConfig, cfg.SplitThreshold)
	}

	return nil
}

// threshold returns the split threshold for a request of numItems.
func (cfg *Config) threshold(numItems int) int {
	if cfg.SplitThreshold > 0 {
		return cfg.SplitThreshold
	}

	return 2 * numItems
}
