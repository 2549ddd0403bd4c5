package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Retrying wraps a Backend with a bounded, fixed-backoff retry around reads.
// Writes are passed through untouched: a failed or conflicting write is the
// caller's decision to retry, never this layer's.
type Retrying struct {
	next     Backend
	attempts int
	backoff  time.Duration
}

// NewRetrying returns a Backend retrying failed reads up to attempts times,
// sleeping backoff between attempts.
func NewRetrying(next Backend, attempts int, backoff time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, backoff: backoff}
}

// Read calls the wrapped Read until it succeeds, the context ends, or the
// attempts are exhausted.
func (r *Retrying) Read(ctx context.Context, sheet string) (Snapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		snap, err := r.next.Read(ctx, sheet)
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Snapshot{}, err
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}
		slog.Warn("sheet read failed, retrying",
			"sheet", sheet,
			"attempt", attempt,
			"max_attempts", r.attempts,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	return Snapshot{}, fmt.Errorf("read %s failed after %d attempts: %w", sheet, r.attempts, lastErr)
}

// Write delegates to the wrapped backend.
func (r *Retrying) Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error) {
	return r.next.Write(ctx, sheet, t, expected)
}

// Close closes the wrapped backend.
func (r *Retrying) Close() error {
	return Close(r.next)
}
