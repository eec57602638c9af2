package middleware

import (
	"net/http"
	"sync"
	"time"
)

// Token buckets refill lazily on access, so an idle client costs nothing
// between requests. Entries for clients not seen within staleAfter are swept
// periodically to bound memory on the public assistant endpoint.
const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

type tokenBucket struct {
	remaining float64
	seenAt    time.Time
}

func (b *tokenBucket) take(now time.Time, perSecond float64, burst int) bool {
	b.remaining += now.Sub(b.seenAt).Seconds() * perSecond
	if limit := float64(burst); b.remaining > limit {
		b.remaining = limit
	}
	b.seenAt = now

	if b.remaining < 1 {
		return false
	}
	b.remaining--
	return true
}

type clientLimiter struct {
	mu        sync.Mutex
	byClient  map[string]*tokenBucket
	perSecond float64
	burst     int
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	l := &clientLimiter{
		byClient:  make(map[string]*tokenBucket),
		perSecond: perSecond,
		burst:     burst,
	}
	go l.sweep()
	return l
}

func (l *clientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.byClient[client]
	if !ok {
		b = &tokenBucket{remaining: float64(l.burst), seenAt: now}
		l.byClient[client] = b
	}
	return b.take(now, l.perSecond, l.burst)
}

func (l *clientLimiter) sweep() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-staleAfter)
		l.mu.Lock()
		for client, b := range l.byClient {
			if b.seenAt.Before(cutoff) {
				delete(l.byClient, client)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit throttles each client to rate requests per second with the given
// burst, answering 429 beyond that. Clients are keyed by the X-Real-Ip header
// that chi's RealIP middleware sets, falling back to the connection address.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newClientLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.RemoteAddr
			if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
				client = realIP
			}
			if !limiter.allow(client) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
