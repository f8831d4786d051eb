package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore keeps window state in process memory. It is correct for a
// single server process only.
type MemoryStore struct {
	policy Policy

	mu      sync.Mutex
	entries map[string]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store enforcing policy.
func NewMemoryStore(policy Policy) *MemoryStore {
	return &MemoryStore{
		policy:  policy,
		entries: make(map[string]*Entry),
	}
}

// Allow implements Store.
func (s *MemoryStore) Allow(_ context.Context, key string, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.policy.expired(e.WindowStart, now) {
		s.entries[key] = &Entry{Count: 1, WindowStart: now}
		return Result{Allowed: true, Count: 1, WindowStart: now}, nil
	}

	if e.Count >= s.policy.Max {
		return Result{
			Allowed:     false,
			Count:       e.Count,
			WindowStart: e.WindowStart,
			RetryAfter:  s.policy.retryAfter(e.WindowStart, now),
		}, nil
	}

	e.Count++
	return Result{Allowed: true, Count: e.Count, WindowStart: e.WindowStart}, nil
}

// Get returns a copy of the entry for key.
func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup deletes entries whose window has rolled over as of now.
// It returns the number of entries removed.
func (s *MemoryStore) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if s.policy.expired(e.WindowStart, now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// RunJanitor calls Cleanup every interval until ctx is done. It blocks.
func (s *MemoryStore) RunJanitor(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		<-ctx.Done()
		return nil
	}

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			if n := s.Cleanup(now); n > 0 {
				slog.Debug("rate limit entries expired", "removed", n, "remaining", s.Len())
			}
		}
	}
}
