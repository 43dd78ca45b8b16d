package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// Without a Redis client the counters fall back to the in-process
// map; the monotonicity contract must hold there too.
func TestVersionsLocalFallback(t *testing.T) {
	v := NewVersions(nil, zerolog.Nop())
	ctx := context.Background()

	if got := v.Current(ctx, 1); got != 0 {
		t.Fatalf("fresh tenant version = %d, want 0", got)
	}
	if got := v.Bump(ctx, 1); got != 1 {
		t.Fatalf("first bump = %d, want 1", got)
	}
	if got := v.Bump(ctx, 1); got != 2 {
		t.Fatalf("second bump = %d, want 2", got)
	}
	if got := v.Current(ctx, 1); got != 2 {
		t.Fatalf("current after bumps = %d, want 2", got)
	}

	// Tenants do not share counters.
	if got := v.Current(ctx, 2); got != 0 {
		t.Fatalf("other tenant version = %d, want 0", got)
	}
}

func TestVersionsBumpIsMonotonicUnderConcurrency(t *testing.T) {
	v := NewVersions(nil, zerolog.Nop())
	ctx := context.Background()

	const bumps = 100
	var wg sync.WaitGroup
	for i := 0; i < bumps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Bump(ctx, 1)
		}()
	}
	wg.Wait()

	if got := v.Current(ctx, 1); got != bumps {
		t.Fatalf("version after %d concurrent bumps = %d", bumps, got)
	}
}
