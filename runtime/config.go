package runtime

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/platform"
)

// Config tunes one runtime instance. LoadConfig reads it from the
// environment under the HOSTBRIDGE_ prefix.
type Config struct {
	// RequestTimeout bounds one logical request end to end. An
	// unresolved request is forcibly settled when it expires.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	// StackSize is the asyncify save area allocated per request.
	StackSize uint32 `envconfig:"STACK_SIZE" default:"4096"`

	// MaxHandles bounds live values in the shared handle table.
	MaxHandles int `envconfig:"MAX_HANDLES" default:"100000"`

	// QueueDepth bounds requests waiting for the dispatcher.
	QueueDepth int `envconfig:"QUEUE_DEPTH" default:"64"`

	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	RateLimitRPS   float64       `envconfig:"RATELIMIT_RPS" default:"10"`
	RateLimitBurst int           `envconfig:"RATELIMIT_BURST" default:"20"`
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"60s"`
}

const envPrefix = "hostbridge"

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "process environment")
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.StackSize == 0 {
		c.StackSize = 4096
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 64
	}
	return c
}

func (c Config) platform() platform.Config {
	return platform.Config{
		FetchTimeout:   c.FetchTimeout,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		CacheTTL:       c.CacheTTL,
	}
}
