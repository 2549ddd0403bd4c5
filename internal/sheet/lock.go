package sheet

import (
	"context"
	"errors"
	"sync"
)

// ErrLockNotObtained is returned when a sheet lock is held by someone else.
var ErrLockNotObtained = errors.New("sheet is busy: lock not obtained")

// Locker serialises read-modify-write cycles on a sheet.
type Locker interface {
	// Lock blocks until the sheet is locked and returns the unlock function.
	Lock(ctx context.Context, sheet string) (unlock func(), err error)
}

// LocalLocker locks sheets within one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker returns a Locker backed by per-sheet channels.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, sheet string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[sheet]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[sheet] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
