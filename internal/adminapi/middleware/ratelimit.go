package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/mrivas/taskpool/internal/logger"
)

// tokenBucket is a minimal token-bucket limiter, one per client.
type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(rps int) *tokenBucket {
	if rps <= 0 {
		rps = 1000
	}
	return &tokenBucket{
		tokens:     float64(rps),
		maxTokens:  float64(rps),
		refillRate: float64(rps),
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// ClientRateLimiter maintains one token bucket per client identifier and
// periodically resets the whole map, matching the teacher's cleanup loop.
type ClientRateLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*tokenBucket
	rps      int
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewClientRateLimiter builds a limiter allowing rps requests/sec per
// client, reset every 5 minutes.
func NewClientRateLimiter(rps int) *ClientRateLimiter {
	crl := &ClientRateLimiter{
		buckets: make(map[string]*tokenBucket),
		rps:     rps,
		stopCh:  make(chan struct{}),
	}
	go crl.cleanupLoop()
	return crl
}

func (crl *ClientRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			crl.mu.Lock()
			crl.buckets = make(map[string]*tokenBucket)
			crl.mu.Unlock()
		case <-crl.stopCh:
			return
		}
	}
}

// Stop ends the cleanup loop.
func (crl *ClientRateLimiter) Stop() {
	crl.stopOnce.Do(func() { close(crl.stopCh) })
}

func (crl *ClientRateLimiter) bucketFor(clientID string) *tokenBucket {
	crl.mu.RLock()
	b, ok := crl.buckets[clientID]
	crl.mu.RUnlock()
	if ok {
		return b
	}

	crl.mu.Lock()
	defer crl.mu.Unlock()
	if b, ok = crl.buckets[clientID]; ok {
		return b
	}
	b = newTokenBucket(crl.rps)
	crl.buckets[clientID] = b
	return b
}

// ClientRateLimit returns a middleware enforcing rps requests/sec per
// client, identified by X-Forwarded-For or RemoteAddr.
func ClientRateLimit(rps int) func(http.Handler) http.Handler {
	limiter := NewClientRateLimiter(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.Header.Get("X-Forwarded-For")
			if clientID == "" {
				clientID = r.RemoteAddr
			}

			if !limiter.bucketFor(clientID).allow() {
				logger.Warn().Str("client", clientID).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
