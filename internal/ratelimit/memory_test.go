package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiterCeiling(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiterWithClock(func() time.Time { return now })
	key := Key("ops", "staff", "1", "42")

	for i := 0; i < 3; i++ {
		limited, err := limiter.CheckAndIncrement(context.Background(), key, 3)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if limited {
			t.Fatalf("hit %d limited below ceiling", i)
		}
	}

	limited, err := limiter.CheckAndIncrement(context.Background(), key, 3)
	if err != nil {
		t.Fatalf("check at ceiling: %v", err)
	}
	if !limited {
		t.Fatal("expected limited at ceiling")
	}
	// A hard ceiling must not keep counting rejected hits.
	if got := limiter.buckets[key].count; got != 3 {
		t.Fatalf("counter advanced past ceiling: %d", got)
	}
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiterWithClock(func() time.Time { return now })
	key := Key("login", "1", "a@example.com")

	if limited, _ := limiter.CheckAndIncrement(context.Background(), key, 1); limited {
		t.Fatal("first hit limited")
	}
	if limited, _ := limiter.CheckAndIncrement(context.Background(), key, 1); !limited {
		t.Fatal("second hit not limited")
	}

	now = now.Add(Window + time.Second)
	if limited, _ := limiter.CheckAndIncrement(context.Background(), key, 1); limited {
		t.Fatal("hit after window still limited")
	}
}

func TestMemoryLimiterZeroLimitDisabled(t *testing.T) {
	limiter := NewMemoryLimiter()
	for i := 0; i < 100; i++ {
		limited, err := limiter.CheckAndIncrement(context.Background(), "rl:any", 0)
		if err != nil || limited {
			t.Fatalf("zero limit must disable the ceiling (limited=%v err=%v)", limited, err)
		}
	}
}

func TestMemoryLimiterConcurrentHardCeiling(t *testing.T) {
	limiter := NewMemoryLimiter()
	key := Key("ops", "staff", "1", "7")
	const limit = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limited, err := limiter.CheckAndIncrement(context.Background(), key, limit)
			if err != nil {
				t.Errorf("check: %v", err)
				return
			}
			if !limited {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if passed != limit {
		t.Fatalf("passed %d hits, want exactly %d", passed, limit)
	}
}
