package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWriteLimiter_AcquireRelease(t *testing.T) {
	limiter := NewWriteLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("initial ActiveCount = %d, want 0", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := limiter.Status(); got.Active != 2 || got.Available != 0 {
		t.Errorf("Status = %+v, want 2 active, 0 available", got)
	}

	limiter.Release()
	limiter.Release()

	if got := limiter.Status(); got.Active != 0 || got.Available != 2 {
		t.Errorf("Status after Release = %+v", got)
	}
}

func TestWriteLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewWriteLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyWrites) {
		t.Errorf("expected ErrTooManyWrites, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("timeout too fast: %v", elapsed)
	}
}

func TestWriteLimiter_ContextCancellation(t *testing.T) {
	limiter := NewWriteLimiter(1, 5*time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Acquire did not return after context cancellation")
	}
}

func TestWriteLimiter_Do(t *testing.T) {
	limiter := NewWriteLimiter(3, time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Do(context.Background(), func() error {
				mu.Lock()
				if n := limiter.ActiveCount(); n > maxSeen {
					maxSeen = n
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxSeen > 3 {
		t.Errorf("max concurrent = %d, want <= 3", maxSeen)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after Do = %d, want 0", got)
	}
}

func TestWriteLimiter_DoPropagatesError(t *testing.T) {
	limiter := NewWriteLimiter(1, time.Second)
	want := errors.New("boom")

	if err := limiter.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Do error = %v, want %v", err, want)
	}
	if limiter.ActiveCount() != 0 {
		t.Error("slot not released after failing fn")
	}
}

func TestWriteLimiter_WaitForDrain(t *testing.T) {
	limiter := NewWriteLimiter(2, time.Second)
	ctx := context.Background()

	_ = limiter.Acquire(ctx)

	drainDone := make(chan error, 1)
	go func() { drainDone <- limiter.WaitForDrain(context.Background()) }()

	select {
	case <-drainDone:
		t.Fatal("WaitForDrain returned with a write in flight")
	case <-time.After(60 * time.Millisecond):
	}

	limiter.Release()

	select {
	case err := <-drainDone:
		if err != nil {
			t.Errorf("WaitForDrain returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("WaitForDrain did not complete after release")
	}
}

func TestWriteLimiter_WaitForDrain_ContextCancelled(t *testing.T) {
	limiter := NewWriteLimiter(1, time.Second)
	_ = limiter.Acquire(context.Background())
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestWriteLimiter_DefaultValues(t *testing.T) {
	limiter := NewWriteLimiter(0, 0)

	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentWrites {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentWrites)
	}
}
