package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter bounds the number of requests a client may make per window.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	requests  map[string][]time.Time // client -> request times inside the window
	lastSweep time.Time
}

// NewRateLimiter allows max requests per client in every window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Allow records one request from client and reports whether it is within
// the limit.
func (l *RateLimiter) Allow(client string) bool {
	now := l.now()
	start := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(start)
		l.lastSweep = now
	}

	kept := l.requests[client][:0]
	for _, ts := range l.requests[client] {
		if ts.After(start) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.requests[client] = kept
		return false
	}
	l.requests[client] = append(kept, now)
	return true
}

// sweep drops clients with no request after start. Caller holds mu.
func (l *RateLimiter) sweep(start time.Time) {
	for client, times := range l.requests {
		if len(times) == 0 || !times[len(times)-1].After(start) {
			delete(l.requests, client)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(getClientIP(r)) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
