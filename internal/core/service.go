package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ArmandoRuiz13/registro/internal/exchange"
	"github.com/ArmandoRuiz13/registro/internal/pricing"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

var (
	// ErrUnknownSheet is returned for sheet keys that are not registered.
	ErrUnknownSheet = errors.New("unknown sheet")

	// ErrInvalidStatus is returned for payment status text that is not recognised.
	ErrInvalidStatus = errors.New("invalid payment status")
)

// DefaultWriteAttempts is how often an append is re-applied after a conflict.
const DefaultWriteAttempts = 3

// DefaultDeleteTTL is how long a delete confirmation stays valid.
const DefaultDeleteTTL = 5 * time.Minute

// anyVersion asks write to apply its change to whatever version is current,
// re-reading and re-applying on conflict. Only changes that commute (appends,
// deletes located by content) may use it.
const anyVersion int64 = -1

// PaidSnapTarget selects the amount MONTO_RECIBIDO is set to when an order
// enters Paid.
type PaidSnapTarget string

const (
	SnapToSale  PaidSnapTarget = "sale"
	SnapToTotal PaidSnapTarget = "total"
)

// ParsePaidSnapTarget parses "sale" or "total".
func ParsePaidSnapTarget(s string) (PaidSnapTarget, error) {
	switch PaidSnapTarget(strings.ToLower(strings.TrimSpace(s))) {
	case SnapToSale, "":
		return SnapToSale, nil
	case SnapToTotal:
		return SnapToTotal, nil
	}
	return "", fmt.Errorf("paid snap target must be %q or %q, got %q", SnapToSale, SnapToTotal, s)
}

// RateSource supplies USD to MXN quotes.
type RateSource interface {
	Rate(ctx context.Context) exchange.Quote
	Refresh(ctx context.Context) exchange.Quote
}

// Config holds the collaborators and policies of a Service.
// Zero values take defaults; Rates is required.
type Config struct {
	Calculator    *pricing.Calculator
	Rates         RateSource
	Locker        sheet.Locker
	Limiter       *WriteLimiter
	PaidSnap      PaidSnapTarget
	WriteAttempts int
	DeleteTTL     time.Duration
	Now           func() time.Time
}

// Service provides the ledger operations over a sheet backend.
type Service struct {
	store         sheet.Backend
	calc          *pricing.Calculator
	rates         RateSource
	locker        sheet.Locker
	limiter       *WriteLimiter
	paidSnap      PaidSnapTarget
	writeAttempts int
	deleteTTL     time.Duration
	now           func() time.Time

	mu      sync.Mutex
	pending map[string]PendingDelete
}

// NewService creates a new Service instance.
func NewService(store sheet.Backend, cfg Config) *Service {
	if cfg.Calculator == nil {
		cfg.Calculator = pricing.New()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewWriteLimiter(DefaultMaxConcurrentWrites, DefaultMaxWriteWait)
	}
	if cfg.PaidSnap == "" {
		cfg.PaidSnap = SnapToSale
	}
	if cfg.WriteAttempts < 1 {
		cfg.WriteAttempts = DefaultWriteAttempts
	}
	if cfg.DeleteTTL <= 0 {
		cfg.DeleteTTL = DefaultDeleteTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:         store,
		calc:          cfg.Calculator,
		rates:         cfg.Rates,
		locker:        cfg.Locker,
		limiter:       cfg.Limiter,
		paidSnap:      cfg.PaidSnap,
		writeAttempts: cfg.WriteAttempts,
		deleteTTL:     cfg.DeleteTTL,
		now:           cfg.Now,
		pending:       make(map[string]PendingDelete),
	}
}

// ListSheets returns information about all registered sheets.
func (s *Service) ListSheets() []SheetInfo {
	defs := All()
	infos := make([]SheetInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// Rate returns the current exchange quote.
func (s *Service) Rate(ctx context.Context) exchange.Quote {
	return s.rates.Rate(ctx)
}

// RefreshRate drops the cached quote and fetches a new one.
func (s *Service) RefreshRate(ctx context.Context) exchange.Quote {
	return s.rates.Refresh(ctx)
}

// Snapshot reads a sheet exactly as stored.
func (s *Service) Snapshot(ctx context.Context, key string) (sheet.Snapshot, error) {
	if _, err := Lookup(key); err != nil {
		return sheet.Snapshot{}, err
	}
	snap, err := s.store.Read(ctx, key)
	if err != nil {
		return sheet.Snapshot{}, fmt.Errorf("read %s: %w", key, err)
	}
	return snap, nil
}

// Persist writes snap back to the sheet key as-is. It fails with
// sheet.ErrVersionConflict if the sheet changed since snap was read.
// Persisting an unmodified snapshot leaves the sheet identical.
func (s *Service) Persist(ctx context.Context, key string, snap sheet.Snapshot) (sheet.Snapshot, error) {
	if _, err := Lookup(key); err != nil {
		return sheet.Snapshot{}, err
	}
	snap.Sheet = key

	var out sheet.Snapshot
	err := s.limiter.Do(ctx, func() error {
		unlock, err := s.lock(ctx, snap.Sheet)
		if err != nil {
			return err
		}
		defer unlock()

		v, err := s.store.Write(ctx, snap.Sheet, snap.Table, snap.Version)
		if err != nil {
			return fmt.Errorf("persist %s: %w", snap.Sheet, err)
		}
		out = sheet.Snapshot{Sheet: snap.Sheet, Table: sheet.Clone(snap.Table), Version: v}
		return nil
	})
	if err != nil {
		return sheet.Snapshot{}, err
	}

	s.logAudit(ctx, AuditLogParams{
		Action: ActionSheetPersist,
		Sheet:  snap.Sheet,
		Row:    noRow,
		Detail: fmt.Sprintf("%d rows", snap.Table.Len()),
	})
	return out, nil
}

// ExportWorkbook writes the named sheets (all registered sheets if none are
// named) to w as one .xlsx workbook.
func (s *Service) ExportWorkbook(ctx context.Context, w io.Writer, keys ...string) error {
	if len(keys) == 0 {
		for _, def := range All() {
			keys = append(keys, def.Info.Key)
		}
	}

	snaps := make([]sheet.Snapshot, 0, len(keys))
	for _, key := range keys {
		def, err := Lookup(key)
		if err != nil {
			return err
		}
		snap, err := s.store.Read(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		snap.Table = Normalize(def, snap.Table)
		snaps = append(snaps, snap)
	}

	if err := sheet.WriteXLSX(w, snaps...); err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}
	return nil
}

// WaitForWrites blocks until in-flight mutations finish or ctx ends.
func (s *Service) WaitForWrites(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// WriteStatus reports the write limiter state.
func (s *Service) WriteStatus() WriteLimiterStatus {
	return s.limiter.Status()
}

// mutate runs write while holding a write slot.
func (s *Service) mutate(ctx context.Context, def SheetDefinition, expected int64, fn func(sheet.Table) (sheet.Table, error)) (sheet.Snapshot, error) {
	var out sheet.Snapshot
	err := s.limiter.Do(ctx, func() error {
		var err error
		out, err = s.write(ctx, def, expected, fn)
		return err
	})
	return out, err
}

// write is the read-modify-write cycle every mutation goes through.
//
// fn receives a normalized copy of the current table and returns the table
// to store. With an explicit expected version the cycle fails with
// sheet.ErrVersionConflict when the sheet moved on; with anyVersion a
// conflicting write is re-applied to a fresh read up to writeAttempts times.
func (s *Service) write(ctx context.Context, def SheetDefinition, expected int64, fn func(sheet.Table) (sheet.Table, error)) (sheet.Snapshot, error) {
	key := def.Info.Key

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return sheet.Snapshot{}, err
	}
	defer unlock()

	attempts := 1
	if expected == anyVersion {
		attempts = s.writeAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := s.store.Read(ctx, key)
		if err != nil {
			return sheet.Snapshot{}, fmt.Errorf("read %s: %w", key, err)
		}
		if expected != anyVersion && snap.Version != expected {
			return sheet.Snapshot{}, fmt.Errorf("%s is at version %d, edits were made on %d: %w",
				key, snap.Version, expected, sheet.ErrVersionConflict)
		}

		table, err := fn(Normalize(def, snap.Table))
		if err != nil {
			return sheet.Snapshot{}, err
		}

		v, err := s.store.Write(ctx, key, table, snap.Version)
		if err == nil {
			return sheet.Snapshot{Sheet: key, Table: table, Version: v}, nil
		}
		if expected != anyVersion || !errors.Is(err, sheet.ErrVersionConflict) {
			return sheet.Snapshot{}, fmt.Errorf("persist %s: %w", key, err)
		}

		lastErr = err
		slog.Warn("sheet changed during write, re-applying",
			"sheet", key,
			"attempt", attempt,
			"max_attempts", attempts,
		)
	}
	return sheet.Snapshot{}, fmt.Errorf("persist %s after %d attempts: %w", key, attempts, lastErr)
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return unlock, nil
}
