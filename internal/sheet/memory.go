package sheet

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. It is used by tests and by the
// "memory" store mode, where data lives only as long as the process.
type Memory struct {
	mu     sync.Mutex
	sheets map[string]Snapshot
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string]Snapshot)}
}

// Read returns a copy of the stored sheet.
func (m *Memory) Read(ctx context.Context, sheet string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.sheets[sheet]
	if !ok {
		return Snapshot{Sheet: sheet}, nil
	}
	snap.Table = Clone(snap.Table)
	return snap, nil
}

// Write stores a copy of t, rows fitted to the header width, if expected
// matches the current version.
func (m *Memory) Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.sheets[sheet].Version
	if current != expected {
		return 0, ErrVersionConflict
	}

	next := current + 1
	m.sheets[sheet] = Snapshot{Sheet: sheet, Table: fitTable(t), Version: next}
	return next, nil
}
