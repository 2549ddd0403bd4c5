package core

// service_delete.go implements two-step row deletion.
//
// RequestDelete captures the row the user is looking at and returns a
// confirmation token. ConfirmDelete removes that row only if it can still be
// found: first at its original index, then anywhere in the sheet by content.
// Tokens are single use and expire after the configured TTL.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

var (
	// ErrPendingNotFound is returned for unknown, used or expired tokens.
	ErrPendingNotFound = errors.New("delete confirmation not found or expired")

	// ErrRowChanged is returned when the row to delete can no longer be found.
	ErrRowChanged = errors.New("row changed since the deletion was requested")
)

// PendingDelete is a deletion awaiting confirmation.
type PendingDelete struct {
	Token       string            `json:"token"`
	Sheet       string            `json:"sheet"`
	Row         int               `json:"row"`
	Version     int64             `json:"version"`
	Columns     []string          `json:"columns"`
	Preview     map[string]string `json:"preview"`
	ExpiresAt   time.Time         `json:"expires_at"`
	fingerprint string
}

// RequestDelete starts the deletion of row in the sheet the user saw at
// version and returns the token to confirm it with.
func (s *Service) RequestDelete(ctx context.Context, sheetKey string, version int64, row int) (PendingDelete, error) {
	def, err := Lookup(sheetKey)
	if err != nil {
		return PendingDelete{}, err
	}
	snap, err := s.store.Read(ctx, def.Info.Key)
	if err != nil {
		return PendingDelete{}, fmt.Errorf("read %s: %w", def.Info.Key, err)
	}
	if snap.Version != version {
		return PendingDelete{}, fmt.Errorf("%s is at version %d, row %d was chosen on %d: %w",
			def.Info.Key, snap.Version, row, version, sheet.ErrVersionConflict)
	}

	t := Normalize(def, snap.Table)
	preview, err := t.Row(row)
	if err != nil {
		return PendingDelete{}, err
	}

	p := PendingDelete{
		Token:       uuid.NewString(),
		Sheet:       def.Info.Key,
		Row:         row,
		Version:     snap.Version,
		Columns:     t.Columns,
		Preview:     preview,
		ExpiresAt:   s.now().Add(s.deleteTTL),
		fingerprint: fingerprint(t.Rows[row]),
	}

	s.mu.Lock()
	s.pending[p.Token] = p
	s.mu.Unlock()

	return p, nil
}

// GetPendingDelete returns the unexpired pending deletion for token.
func (s *Service) GetPendingDelete(token string) (PendingDelete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[token]
	if !ok || !s.now().Before(p.ExpiresAt) {
		return PendingDelete{}, ErrPendingNotFound
	}
	return p, nil
}

// ConfirmDelete removes the row captured by token and persists the sheet.
func (s *Service) ConfirmDelete(ctx context.Context, token string) (sheet.Snapshot, error) {
	p, err := s.takePending(token)
	if err != nil {
		return sheet.Snapshot{}, err
	}
	def, err := Lookup(p.Sheet)
	if err != nil {
		return sheet.Snapshot{}, err
	}

	deleted := noRow
	snap, err := s.mutate(ctx, def, anyVersion, func(t sheet.Table) (sheet.Table, error) {
		deleted = locateRow(t, p.Row, p.fingerprint)
		if deleted < 0 {
			return sheet.Table{}, fmt.Errorf("%s row %d: %w", p.Sheet, p.Row+1, ErrRowChanged)
		}
		return sheet.Delete(t, deleted)
	})
	if err != nil {
		return sheet.Snapshot{}, err
	}

	s.recordRowDelete(ctx, p.Sheet, deleted, p.Preview)
	return snap, nil
}

// CancelDelete discards the pending deletion for token.
func (s *Service) CancelDelete(token string) error {
	_, err := s.takePending(token)
	return err
}

// PurgeExpiredDeletes drops pending deletions past their expiry and
// returns how many were dropped.
func (s *Service) PurgeExpiredDeletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var purged int
	for token, p := range s.pending {
		if !now.Before(p.ExpiresAt) {
			delete(s.pending, token)
			purged++
		}
	}
	if purged > 0 {
		slog.Debug("purged expired delete confirmations", "count", purged)
	}
	return purged
}

func (s *Service) takePending(token string) (PendingDelete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[token]
	if !ok {
		return PendingDelete{}, ErrPendingNotFound
	}
	delete(s.pending, token)
	if !s.now().Before(p.ExpiresAt) {
		return PendingDelete{}, ErrPendingNotFound
	}
	return p, nil
}

// locateRow returns want if the row there still matches fp, otherwise the
// first row that does, or -1.
func locateRow(t sheet.Table, want int, fp string) int {
	if want >= 0 && want < t.Len() && fingerprint(t.Rows[want]) == fp {
		return want
	}
	for i, r := range t.Rows {
		if fingerprint(r) == fp {
			return i
		}
	}
	return -1
}

func fingerprint(row []string) string {
	return strings.Join(row, "\x1f")
}
