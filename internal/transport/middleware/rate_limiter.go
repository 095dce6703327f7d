// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRatePerSecond = 50
	DefaultBurst         = 100

	defaultIdleAfter = 10 * time.Minute
)

type Decision struct {
	Allowed           bool
	Limit             float64
	Remaining         int
	RetryAfterSeconds int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per routing key. Buckets idle for
// longer than the idle window are dropped on the next sweep.
type KeyedLimiter struct {
	perSecond float64
	burst     int
	idleAfter time.Duration
	now       func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewKeyedLimiter(perSecond float64, burst int) *KeyedLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &KeyedLimiter{
		perSecond: perSecond,
		burst:     burst,
		idleAfter: defaultIdleAfter,
		now:       time.Now,
		buckets:   make(map[string]*bucket, 32),
	}
}

func (l *KeyedLimiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > l.idleAfter {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleAfter {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	decision := Decision{Limit: l.perSecond}
	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		decision.RetryAfterSeconds = 1
		return decision
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		decision.RetryAfterSeconds = int(math.Ceil(delay.Seconds()))
		if decision.RetryAfterSeconds < 1 {
			decision.RetryAfterSeconds = 1
		}
		return decision
	}
	decision.Allowed = true
	decision.Remaining = int(math.Max(0, math.Floor(b.limiter.TokensAt(now))))
	return decision
}

// RateLimit rejects requests over the per-key budget with 429. Requests for
// which key returns "" pass through.
func RateLimit(l *KeyedLimiter, key func(*http.Request) string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			d := l.Allow(k)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(d.Limit, 'f', -1, 64))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds))
				logger.Warn("ingest rate limit exceeded", "routing_key", k, "path", r.URL.Path)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
