package platform

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter is a named collection of per-key token buckets. Every key seen
// gets its own bucket with the limiter's rate and burst.
type Limiter struct {
	name  string
	rps   rate.Limit
	burst int
	log   *zap.Logger

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// Check reports whether one token is available for key right now. Any
// failure inside the check, including a panic, denies the request.
func (l *Limiter) Check(key string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Warn("rate limiter check panicked, denying",
				zap.String("limiter", l.name),
				zap.Any("panic", r))
			ok = false
		}
	}()
	if l == nil {
		return false
	}

	l.mu.Lock()
	bucket := l.buckets[key]
	if bucket == nil {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Keys returns how many distinct keys the limiter has seen.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// LimiterSet hands out named limiters, creating each on first use with
// the configured defaults.
type LimiterSet struct {
	rps   rate.Limit
	burst int
	log   *zap.Logger

	mu       sync.Mutex
	limiters map[string]*Limiter
}

func NewLimiterSet(rps float64, burst int, log *zap.Logger) *LimiterSet {
	return &LimiterSet{
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log,
		limiters: make(map[string]*Limiter),
	}
}

func (s *LimiterSet) Get(name string) *Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.limiters[name]
	if l == nil {
		l = &Limiter{
			name:    name,
			rps:     s.rps,
			burst:   s.burst,
			log:     s.log,
			buckets: make(map[string]*rate.Limiter),
		}
		s.limiters[name] = l
	}
	return l
}
