package app

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"acadlms/internal/app/apiresp"
)

const (
	csrfCookieName = "acadlms_csrf"
	csrfHeaderName = "X-CSRF-Token"
)

// IPRateLimiter counts requests per key over a fixed window. Keys combine
// client IP, method and path, so the login route is throttled per caller.
type IPRateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	store  map[string]*rateBucket
}

type rateBucket struct {
	count int
	reset time.Time
}

func NewIPRateLimiter(max int, window time.Duration) *IPRateLimiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		max:    max,
		window: window,
		store:  make(map[string]*rateBucket),
	}
}

func (l *IPRateLimiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.store[key]
	if !ok || now.After(b.reset) {
		l.sweep(now)
		b = &rateBucket{reset: now.Add(l.window)}
		l.store[key] = b
	}
	if b.count >= l.max {
		return false
	}
	b.count++
	return true
}

// sweep drops expired buckets so the map does not grow with one-off keys.
// Called with l.mu held.
func (l *IPRateLimiter) sweep(now time.Time) {
	for k, b := range l.store {
		if now.After(b.reset) {
			delete(l.store, k)
		}
	}
}

func RateLimitMiddleware(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.RemoteAddr) + "|" + r.Method + "|" + r.URL.Path
			if !l.Allow(key) {
				apiresp.WriteError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware requires the double-submit token on mutating requests.
// Safe methods and the non-enforced mode pass through.
func CSRFMiddleware(enforced bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforced || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(csrfCookieName)
			if err != nil || strings.TrimSpace(c.Value) == "" {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token missing")
				return
			}
			if h := strings.TrimSpace(r.Header.Get(csrfHeaderName)); h == "" || h != c.Value {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
