package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionOrderCreate  AuditAction = "order_create"
	ActionCellEdit     AuditAction = "cell_edit"
	ActionStatusChange AuditAction = "status_change"
	ActionItemCreate   AuditAction = "item_create"
	ActionGridSave     AuditAction = "grid_save"
	ActionRowDelete    AuditAction = "row_delete"
	ActionSheetPersist AuditAction = "sheet_persist"
	ActionImport       AuditAction = "import"
)

// AuditActions lists every action, for filters.
var AuditActions = []AuditAction{
	ActionOrderCreate, ActionCellEdit, ActionStatusChange, ActionItemCreate,
	ActionGridSave, ActionRowDelete, ActionSheetPersist, ActionImport,
}

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// noRow marks entries that do not refer to a single row.
const noRow = -1

// AuditEntry represents one row of the history sheet.
type AuditEntry struct {
	ID        string        `json:"id"`
	Action    AuditAction   `json:"action"`
	Severity  AuditSeverity `json:"severity"`
	Sheet     string        `json:"sheet"`
	Row       int           `json:"row"`
	Column    string        `json:"column,omitempty"`
	OldValue  string        `json:"oldValue,omitempty"`
	NewValue  string        `json:"newValue,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// IP address and User-Agent are taken from the context when empty.
type AuditLogParams struct {
	Action    AuditAction
	Sheet     string
	Row       int
	Column    string
	OldValue  string
	NewValue  string
	Detail    string
	IPAddress string
	UserAgent string
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionRowDelete, ActionGridSave, ActionImport:
		return SeverityHigh
	case ActionSheetPersist:
		return SeverityCritical
	case ActionOrderCreate, ActionItemCreate:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit appends an entry to the history sheet.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	def, err := Lookup(SheetHistory)
	if err != nil {
		return nil, err
	}

	ip, ua := ClientFromContext(ctx)
	if params.IPAddress == "" {
		params.IPAddress = ip
	}
	if params.UserAgent == "" {
		params.UserAgent = ua
	}

	entry := &AuditEntry{
		ID:        uuid.NewString(),
		Action:    params.Action,
		Severity:  determineSeverity(params.Action),
		Sheet:     params.Sheet,
		Row:       params.Row,
		Column:    params.Column,
		OldValue:  params.OldValue,
		NewValue:  params.NewValue,
		Detail:    params.Detail,
		IPAddress: params.IPAddress,
		UserAgent: params.UserAgent,
		CreatedAt: s.now(),
	}

	_, err = s.write(ctx, def, anyVersion, func(t sheet.Table) (sheet.Table, error) {
		return sheet.Append(t, rowFor(t, entry.cells())), nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal %s: %w", params.Action, err)
	}
	return entry, nil
}

// logAudit records an entry, logging instead of returning failures so a
// journal outage never fails the mutation it describes.
func (s *Service) logAudit(ctx context.Context, params AuditLogParams) {
	if _, err := s.LogAudit(ctx, params); err != nil {
		slog.Error("failed to record history entry",
			"action", params.Action,
			"sheet", params.Sheet,
			"row", params.Row,
			"error", err,
		)
	}
}

func (e AuditEntry) cells() map[string]string {
	row := ""
	if e.Row >= 0 {
		// Rows are shown 1-based, as in the grids.
		row = strconv.Itoa(e.Row + 1)
	}
	return map[string]string{
		ColHistID:        e.ID,
		ColHistTime:      e.CreatedAt.Format(time.RFC3339),
		ColHistAction:    string(e.Action),
		ColHistSeverity:  string(e.Severity),
		ColHistSheet:     e.Sheet,
		ColHistRow:       row,
		ColHistColumn:    e.Column,
		ColHistOld:       e.OldValue,
		ColHistNew:       e.NewValue,
		ColHistDetail:    e.Detail,
		ColHistIP:        e.IPAddress,
		ColHistUserAgent: e.UserAgent,
	}
}

func auditEntryAt(t sheet.Table, i int) AuditEntry {
	row := noRow
	if n, err := strconv.Atoi(t.Cell(i, ColHistRow)); err == nil && n > 0 {
		row = n - 1
	}
	created, _ := time.Parse(time.RFC3339, t.Cell(i, ColHistTime))
	return AuditEntry{
		ID:        t.Cell(i, ColHistID),
		Action:    AuditAction(t.Cell(i, ColHistAction)),
		Severity:  AuditSeverity(t.Cell(i, ColHistSeverity)),
		Sheet:     t.Cell(i, ColHistSheet),
		Row:       row,
		Column:    t.Cell(i, ColHistColumn),
		OldValue:  t.Cell(i, ColHistOld),
		NewValue:  t.Cell(i, ColHistNew),
		Detail:    t.Cell(i, ColHistDetail),
		IPAddress: t.Cell(i, ColHistIP),
		UserAgent: t.Cell(i, ColHistUserAgent),
		CreatedAt: created,
	}
}

// DefaultHistoryLimit is the default number of entries returned by GetAuditLog.
const DefaultHistoryLimit = 100

// AuditLogFilter contains filtering options for querying the history.
type AuditLogFilter struct {
	Sheet     string
	Action    AuditAction
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// GetAuditLog returns history entries matching filter, newest first.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, error) {
	def, err := Lookup(SheetHistory)
	if err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}

	snap, err := s.store.Read(ctx, def.Info.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", def.Info.Key, err)
	}
	t := Normalize(def, snap.Table)

	var (
		entries []AuditEntry
		skipped int
	)
	for i := t.Len() - 1; i >= 0 && len(entries) < filter.Limit; i-- {
		e := auditEntryAt(t, i)
		if !filter.matches(e) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ErrEntryNotFound is returned by GetAuditLogByID for unknown ids.
var ErrEntryNotFound = errors.New("history entry not found")

// GetAuditLogByID returns the entry with the given id.
func (s *Service) GetAuditLogByID(ctx context.Context, id string) (*AuditEntry, error) {
	entries, err := s.GetAuditLog(ctx, AuditLogFilter{Limit: math.MaxInt})
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

func (f AuditLogFilter) matches(e AuditEntry) bool {
	if f.Sheet != "" && e.Sheet != f.Sheet {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.StartTime.IsZero() && e.CreatedAt.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.CreatedAt.After(f.EndTime) {
		return false
	}
	return true
}

// ExportLimit caps the number of entries written by ExportAuditCSV.
const ExportLimit = 10000

// ExportAuditCSV writes the entries matching filter to w as CSV, newest
// first. Limit and Offset in filter are ignored.
func (s *Service) ExportAuditCSV(ctx context.Context, w io.Writer, filter AuditLogFilter) error {
	filter.Limit = ExportLimit
	filter.Offset = 0
	entries, err := s.GetAuditLog(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "Timestamp", "Action", "Severity", "Sheet", "Row", "Column",
		"Old Value", "New Value", "Detail", "IP Address", "User Agent"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := ""
		if e.Row >= 0 {
			row = strconv.Itoa(e.Row + 1)
		}
		if err := cw.Write([]string{
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(e.Action),
			string(e.Severity),
			e.Sheet,
			row,
			e.Column,
			e.OldValue,
			e.NewValue,
			e.Detail,
			e.IPAddress,
			e.UserAgent,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
