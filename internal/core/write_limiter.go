package core

// write_limiter.go bounds how many sheet mutations run at once.
//
// Every mutation rewrites a whole sheet, so a burst of saves against a slow
// backend can pile up goroutines holding full table copies. The limiter is a
// semaphore: when all slots are taken, callers wait up to maxWait and then
// fail with ErrTooManyWrites. WaitForDrain lets shutdown finish in-flight
// writes before the store is closed.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyWrites is returned when all write slots stay occupied for the
// whole wait timeout.
var ErrTooManyWrites = errors.New("too many concurrent writes, please try again later")

// DefaultMaxConcurrentWrites is the default limit for parallel mutations.
const DefaultMaxConcurrentWrites = 4

// DefaultMaxWriteWait is how long to wait for a slot before rejecting.
const DefaultMaxWriteWait = 10 * time.Second

// WriteLimiter controls concurrent sheet mutations.
type WriteLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewWriteLimiter creates a limiter allowing at most maxConcurrent mutations.
func NewWriteLimiter(maxConcurrent int, maxWait time.Duration) *WriteLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentWrites
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWriteWait
	}

	return &WriteLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire takes a write slot. The caller must Release it.
func (l *WriteLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyWrites
	}
}

// Release returns a slot taken by Acquire.
func (l *WriteLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// Do runs fn while holding a slot.
func (l *WriteLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// ActiveCount returns the number of mutations in flight.
func (l *WriteLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *WriteLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// WaitForDrain blocks until no mutation is in flight or ctx ends.
func (l *WriteLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WriteLimiterStatus is a snapshot of the limiter state.
type WriteLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for health checks.
func (l *WriteLimiter) Status() WriteLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return WriteLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
