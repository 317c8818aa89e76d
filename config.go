package livesub

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/livesub/types"
)

// URLEnv is the environment variable Dial reads when Transport.URL is empty.
const URLEnv = "LIVESUB_URL"

// TransportConfig configures the NATS transport.
type TransportConfig struct {
	// URL is the NATS server URL (for example "nats://127.0.0.1:4222").
	// When empty, Dial reads URLEnv.
	URL string `yaml:"url"`

	// SubjectPrefix prefixes every protocol subject ("<prefix>.subscribe", ...).
	SubjectPrefix string `yaml:"subjectPrefix"`

	// MutationTimeout bounds a mutation round trip when the caller's context
	// has no deadline.
	MutationTimeout time.Duration `yaml:"mutationTimeout"`

	// ConnectTimeout bounds the initial NATS connection attempt.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`

	// MaxReconnects is the number of NATS reconnect attempts; -1 retries forever.
	MaxReconnects int `yaml:"maxReconnects"`

	// HeartbeatInterval is the interval of the liveness heartbeat the server
	// uses to release the subscriptions of vanished clients. Negative disables it.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
}

// MetricsConfig configures the built-in Prometheus collector.
type MetricsConfig struct {
	// Namespace is the Prometheus metric namespace.
	Namespace string `yaml:"namespace"`
}

// Config is the client configuration.
//
// All duration fields accept standard Go duration strings like "10s" or "500ms".
type Config struct {
	// PageSize is the default number of items per page of paginated queries.
	PageSize int `yaml:"pageSize"`

	// Transport configures the NATS transport.
	Transport TransportConfig `yaml:"transport"`

	// Metrics configures metric naming.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Transport.URL is left empty so that Dial falls back to URLEnv.
func DefaultConfig() Config {
	return Config{
		PageSize: 20,
		Transport: TransportConfig{
			SubjectPrefix:     "livesub",
			MutationTimeout:   10 * time.Second,
			ConnectTimeout:    5 * time.Second,
			MaxReconnects:     -1,
			HeartbeatInterval: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "livesub",
		},
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.PageSize == 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.Transport.SubjectPrefix == "" {
		cfg.Transport.SubjectPrefix = defaults.Transport.SubjectPrefix
	}
	if cfg.Transport.MutationTimeout == 0 {
		cfg.Transport.MutationTimeout = defaults.Transport.MutationTimeout
	}
	if cfg.Transport.ConnectTimeout == 0 {
		cfg.Transport.ConnectTimeout = defaults.Transport.ConnectTimeout
	}
	if cfg.Transport.HeartbeatInterval == 0 {
		cfg.Transport.HeartbeatInterval = defaults.Transport.HeartbeatInterval
	}
	// MaxReconnects of 0 is valid (no reconnects), so no default is applied.
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}
}

// Validate checks configuration constraints.
//
// Hard Validation Rules:
//   - PageSize > 0
//   - SubjectPrefix is non-empty and contains no wildcards or spaces
//   - MutationTimeout > 0 and ConnectTimeout > 0
//   - MaxReconnects >= -1
//
// Returns:
//   - error: wraps ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.PageSize <= 0 {
		return fmt.Errorf("%w: PageSize must be > 0, got %d", ErrInvalidConfig, cfg.PageSize)
	}

	prefix := cfg.Transport.SubjectPrefix
	if prefix == "" {
		return fmt.Errorf("%w: SubjectPrefix must not be empty", ErrInvalidConfig)
	}
	if strings.ContainsAny(prefix, "*> \t") || strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("%w: SubjectPrefix %q is not a valid subject token", ErrInvalidConfig, prefix)
	}

	if cfg.Transport.MutationTimeout <= 0 {
		return fmt.Errorf("%w: MutationTimeout must be > 0, got %v", ErrInvalidConfig, cfg.Transport.MutationTimeout)
	}
	if cfg.Transport.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: ConnectTimeout must be > 0, got %v", ErrInvalidConfig, cfg.Transport.ConnectTimeout)
	}
	if cfg.Transport.MaxReconnects < -1 {
		return fmt.Errorf("%w: MaxReconnects must be >= -1, got %d", ErrInvalidConfig, cfg.Transport.MaxReconnects)
	}

	return nil
}

// ValidateWithWarnings logs warnings for valid but unusual values.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.PageSize > 1000 {
		logger.Warn(
			"PageSize is very large, pages may be split frequently",
			"pageSize", cfg.PageSize,
			"recommended", "1000 or lower",
		)
	}

	if cfg.Transport.MutationTimeout < 100*time.Millisecond {
		logger.Warn(
			"MutationTimeout is very short, mutations may time out under load",
			"mutationTimeout", cfg.Transport.MutationTimeout,
			"recommended", "1s or higher",
		)
	}

	if cfg.Transport.MaxReconnects == 0 {
		logger.Warn("MaxReconnects is 0, live queries stop after the first disconnect")
	}
}

// LoadConfig reads a YAML configuration file, applies defaults and validates it.
//
// Parameters:
//   - path: Path of the YAML file
//
// Returns:
//   - Config: Loaded configuration
//   - error: Read, parse or validation error
//
// Example:
//
//	cfg, err := livesub.LoadConfig("livesub.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := livesub.Dial(&cfg)
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML data, applies defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// TestConfig returns a configuration tuned for fast tests: small pages and
// short timeouts.
//
// Example:
//
//	cfg := livesub.TestConfig()
//	cfg.Transport.URL = ns.ClientURL()
//	client, err := livesub.Dial(&cfg)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.PageSize = 5
	cfg.Transport.MutationTimeout = 2 * time.Second
	cfg.Transport.ConnectTimeout = 1 * time.Second

	return cfg
}
