package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// Throttle is a per-client token bucket placed in front of every API route.
// It only absorbs bursts; the hourly submission limit is enforced by the
// contact service.
type Throttle struct {
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	clientKey ClientKeyFunc

	mu      sync.Mutex
	clients map[string]*throttleEntry
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewThrottle creates a Throttle allowing rps requests per second per client
// with bursts of up to burst requests.
func NewThrottle(rps float64, burst int, clientKey ClientKeyFunc) *Throttle {
	return &Throttle{
		rps:       rate.Limit(rps),
		burst:     burst,
		idleTTL:   10 * time.Minute,
		clientKey: clientKey,
		clients:   make(map[string]*throttleEntry),
	}
}

func (t *Throttle) limiter(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.clients[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	lim := rate.NewLimiter(t.rps, t.burst)
	t.clients[key] = &throttleEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup removes clients not seen within the idle TTL.
func (t *Throttle) Cleanup(now time.Time) {
	cutoff := now.Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.clients {
		if e.lastSeen.Before(cutoff) {
			delete(t.clients, k)
		}
	}
}

// RunJanitor calls Cleanup periodically until ctx is done. It blocks.
func (t *Throttle) RunJanitor(ctx context.Context, every time.Duration) error {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			t.Cleanup(now)
		}
	}
}

// Middleware returns an http.Handler that enforces the throttle.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		key := t.clientKey(r)
		res := t.limiter(key, now).ReserveN(now, 1)
		if !res.OK() {
			writeThrottled(w, r, key, time.Second)
			return
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			writeThrottled(w, r, key, delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeThrottled(w http.ResponseWriter, r *http.Request, key string, retryAfter time.Duration) {
	slog.WarnContext(r.Context(), "request throttled", "client", key, "path", r.URL.Path)
	w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
	writeError(w, http.StatusTooManyRequests, errRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
