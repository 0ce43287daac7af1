package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	callers   = make(map[string]*caller)
	callersMu sync.Mutex
)

// RateLimitMiddleware throttles per caller. Authenticated requests are keyed
// by user id so one aggressive client behind a shared NAT cannot starve the
// rest; anonymous requests fall back to the source IP.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-User-ID")
		if key == "" {
			key = r.Header.Get("X-Forwarded-For")
		}
		if key == "" {
			key, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		limiter := getLimiter(key)

		if !limiter.Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getLimiter(key string) *rate.Limiter {
	callersMu.Lock()
	defer callersMu.Unlock()

	c, exists := callers[key]
	if !exists {
		// Burst of 30 absorbs a board refresh plus a batch of progress
		// submissions without tripping.
		limiter := rate.NewLimiter(5, 30)

		callers[key] = &caller{limiter, time.Now()}
		return limiter
	}

	c.lastSeen = time.Now()
	return c.limiter
}

func CleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		callersMu.Lock()
		for key, c := range callers {
			if time.Since(c.lastSeen) > 3*time.Minute {
				delete(callers, key)
			}
		}
		callersMu.Unlock()
	}
}
