package platform

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/errors"
)

// Config tunes the shared services. Zero values fall back to defaults so
// callers can construct one field at a time.
type Config struct {
	FetchTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration
}

const (
	defaultFetchTimeout = 30 * time.Second
	defaultRateRPS      = 10
	defaultRateBurst    = 20
	defaultCacheTTL     = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = defaultRateRPS
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultRateBurst
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	return c
}

// Services aggregates every host-side facility the bridge exposes to
// guests.
type Services struct {
	log      *zap.Logger
	fetcher  *Fetcher
	limiters *LimiterSet
	caches   *CacheSet
	crypto   *CryptoEngine
}

func New(cfg Config, log *zap.Logger) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Services{
		log:      log,
		fetcher:  NewFetcher(cfg.FetchTimeout, log),
		limiters: NewLimiterSet(cfg.RateLimitRPS, cfg.RateLimitBurst, log),
		caches:   NewCacheSet(cfg.CacheTTL),
		crypto:   NewCryptoEngine(),
	}
}

func (s *Services) Fetcher() *Fetcher      { return s.fetcher }
func (s *Services) Limiters() *LimiterSet  { return s.limiters }
func (s *Services) Caches() *CacheSet      { return s.caches }
func (s *Services) Crypto() *CryptoEngine  { return s.crypto }

// RandomBytes fills a fresh buffer from the OS entropy source.
func (s *Services) RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.InvalidInput(errors.PhaseHost, "negative random length")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindAllocation, err, "entropy source")
	}
	return buf, nil
}

// NewUUID returns a random (v4) UUID string.
func (s *Services) NewUUID() string {
	return uuid.NewString()
}
