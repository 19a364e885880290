package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxTrackedIPs caps the bucket map so an address-rotating client
// cannot grow it without bound.
const maxTrackedIPs = 100000

// bucket is one client's token balance. last doubles as the refill
// anchor and the idle marker for cleanup.
type bucket struct {
	tokens float64
	last   time.Time
}

// take refills the balance for the time elapsed since last, then tries
// to spend one token. On refusal it reports the seconds until a token
// is available.
func (b *bucket) take(now time.Time, rate float64, burst int) (ok bool, wait float64) {
	b.tokens = min(b.tokens+now.Sub(b.last).Seconds()*rate, float64(burst))
	b.last = now

	if b.tokens < 1 {
		return false, (1 - b.tokens) / rate
	}
	b.tokens--
	return true, 0
}

// RateLimiter enforces a per-IP token bucket over all routes.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
}

// NewRateLimiter creates a limiter sustaining rate requests per second
// with the given burst headroom per client IP.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
	}
}

// Handler returns middleware that answers 429 once a client exhausts
// its bucket, with Retry-After indicating when to come back.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := rl.allow(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) (remaining int, wait float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b := rl.buckets[ip]
	if b == nil {
		if len(rl.buckets) >= maxTrackedIPs {
			// At capacity every unknown IP is refused outright.
			return 0, 1 / rl.rate, false
		}
		b = &bucket{tokens: float64(rl.burst), last: now}
		rl.buckets[ip] = b
	}

	ok, wait = b.take(now, rl.rate, rl.burst)
	return int(b.tokens), wait, ok
}

// StartCleanup evicts buckets idle longer than maxIdle on the given
// interval. The returned function stops the sweeper.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) sweep(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for ip, b := range rl.buckets {
		if b.last.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// Len reports how many client IPs currently hold a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// clientIP takes the connection's remote address. Forwarding headers
// are deliberately ignored here; anything chi's RealIP rewrote upstream
// is what we see.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
