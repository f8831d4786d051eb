package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryStore_FiveAllowedSixthRejected(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res, err := s.Allow(ctx, "1.2.3.4", t0.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if res.Count != i {
			t.Errorf("request %d: expected count=%d, got %d", i, i, res.Count)
		}
	}

	before, _ := s.Get("1.2.3.4")
	res, err := s.Allow(ctx, "1.2.3.4", t0.Add(10*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected 6th request to be rejected")
	}
	after, _ := s.Get("1.2.3.4")
	if before != after {
		t.Errorf("rejected request mutated entry: before=%+v after=%+v", before, after)
	}
}

func TestMemoryStore_RetryAfter(t *testing.T) {
	s := NewMemoryStore(Policy{Max: 1, Window: time.Hour})
	ctx := context.Background()

	_, _ = s.Allow(ctx, "k", t0)
	res, _ := s.Allow(ctx, "k", t0.Add(15*time.Minute))
	if res.Allowed {
		t.Fatal("expected rejection")
	}
	if res.RetryAfter != 45*time.Minute {
		t.Errorf("expected RetryAfter=45m, got %v", res.RetryAfter)
	}
}

func TestMemoryStore_ResetsAfterWindow(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = s.Allow(ctx, "k", t0)
	}

	// exactly one window later has not exceeded the window yet
	res, _ := s.Allow(ctx, "k", t0.Add(time.Hour))
	if res.Allowed {
		t.Fatal("expected rejection at exactly one window")
	}

	later := t0.Add(time.Hour + time.Millisecond)
	res, _ = s.Allow(ctx, "k", later)
	if !res.Allowed {
		t.Fatal("expected request after window to be allowed")
	}
	if res.Count != 1 {
		t.Errorf("expected count reset to 1, got %d", res.Count)
	}
	if !res.WindowStart.Equal(later) {
		t.Errorf("expected window start %v, got %v", later, res.WindowStart)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryStore(Policy{Max: 1, Window: time.Hour})
	ctx := context.Background()

	if res, _ := s.Allow(ctx, "a", t0); !res.Allowed {
		t.Fatal("expected a to be allowed")
	}
	if res, _ := s.Allow(ctx, "b", t0); !res.Allowed {
		t.Fatal("expected b to be allowed")
	}
	if res, _ := s.Allow(ctx, "a", t0); res.Allowed {
		t.Fatal("expected second a to be rejected")
	}
}

func TestMemoryStore_ConcurrentAllowNeverExceedsMax(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := s.Allow(ctx, "same", t0)
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != DefaultPolicy.Max {
		t.Errorf("expected exactly %d allowed, got %d", DefaultPolicy.Max, allowed)
	}
}

func TestMemoryStore_CleanupRemovesExpiredEntries(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy)
	ctx := context.Background()

	_, _ = s.Allow(ctx, "old", t0)
	_, _ = s.Allow(ctx, "fresh", t0.Add(50*time.Minute))

	removed := s.Cleanup(t0.Add(time.Hour + time.Second))
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := s.Get("old"); ok {
		t.Error("expected old entry to be removed")
	}
	if _, ok := s.Get("fresh"); !ok {
		t.Error("expected fresh entry to remain")
	}
}

func TestMemoryStore_RunJanitorStopsOnCancel(t *testing.T) {
	s := NewMemoryStore(DefaultPolicy)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.RunJanitor(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
