package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/changeorders/internal/logging"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket per client IP. A client may spend its whole
// per-minute allowance at once; tokens then refill evenly over the minute.
type RateLimiter struct {
	name      string
	perMinute int
	limit     rate.Limit
	now       func() time.Time

	// OnReject is called for every refused request when set.
	OnReject func(name string)

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client IP. name identifies
// the limiter in logs and in OnReject.
func NewRateLimiter(name string, perMinute int) *RateLimiter {
	return &RateLimiter{
		name:      name,
		perMinute: perMinute,
		limit:     rate.Limit(float64(perMinute) / 60),
		now:       time.Now,
		visitors:  make(map[string]*visitor),
	}
}

// Allow consumes one token for ip and reports whether the request may go on.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.perMinute)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Len returns the number of clients currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// prune forgets clients idle long enough for their bucket to be full again.
// It runs at most once a minute, from Allow, so no goroutine is needed.
func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) < time.Minute {
		return
	}
	rl.lastPrune = now
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > 2*time.Minute {
			delete(rl.visitors, ip)
		}
	}
}

// Middleware refuses requests over the limit with 429 and a Retry-After
// header. Clients are keyed on the address ClientIP resolved, falling back
// to the connection address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := logging.ClientIP(r.Context())
		if ip == "" {
			ip = r.RemoteAddr
		}

		if !rl.Allow(ip) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				"limiter", rl.name,
				"path", r.URL.Path,
			)
			if rl.OnReject != nil {
				rl.OnReject(rl.name)
			}
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			reject(w, http.StatusTooManyRequests, "Too many requests. Please slow down and try again shortly.", "REQ001")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter is the number of whole seconds until one token refills.
func (rl *RateLimiter) retryAfter() int {
	if rl.perMinute <= 0 {
		return 60
	}
	return (60 + rl.perMinute - 1) / rl.perMinute
}
