// Package ratelimit implements the fixed-window request limit applied to
// contact submissions. The window state lives behind Store so it can be kept
// in process memory or shared through Redis without touching callers.
package ratelimit

import (
	"context"
	"time"
)

// Policy is a fixed-window limit: at most Max requests per key within Window,
// counted from the first request of the window.
type Policy struct {
	Max    int
	Window time.Duration
}

// DefaultPolicy allows five submissions per client per hour.
var DefaultPolicy = Policy{Max: 5, Window: time.Hour}

// Entry is the stored window state for one client key.
type Entry struct {
	Count       int
	WindowStart time.Time
}

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed     bool
	Count       int
	WindowStart time.Time
	// RetryAfter is how long until the window rolls over. Zero when allowed.
	RetryAfter time.Duration
}

// Store records one request for key at now and decides whether it fits the
// policy. Implementations must make the read-modify-write atomic per key.
// A rejected request must leave the entry unchanged.
type Store interface {
	Allow(ctx context.Context, key string, now time.Time) (Result, error)
}

// expired reports whether a window that started at start has rolled over.
// The window only resets once it has been strictly exceeded.
func (p Policy) expired(start, now time.Time) bool {
	return now.Sub(start) > p.Window
}

// retryAfter is the time left until a window that started at start rolls over.
func (p Policy) retryAfter(start, now time.Time) time.Duration {
	d := start.Add(p.Window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
