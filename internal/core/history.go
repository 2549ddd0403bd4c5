package core

import (
	"context"
	"sort"
	"strings"
)

// CellChange is one edited cell, as recorded in the history.
type CellChange struct {
	Row      int
	Column   string
	OldValue string
	NewValue string
}

// recordCellEdits journals each changed cell of an edit batch.
func (s *Service) recordCellEdits(ctx context.Context, sheetKey string, changes []CellChange) {
	for _, c := range changes {
		action := ActionCellEdit
		if sheetKey == SheetOrders && strings.EqualFold(c.Column, ColStatus) {
			action = ActionStatusChange
		}
		s.logAudit(ctx, AuditLogParams{
			Action:   action,
			Sheet:    sheetKey,
			Row:      c.Row,
			Column:   c.Column,
			OldValue: c.OldValue,
			NewValue: c.NewValue,
		})
	}
}

// recordRowDelete journals a deleted row with its former contents.
func (s *Service) recordRowDelete(ctx context.Context, sheetKey string, row int, data map[string]string) {
	s.logAudit(ctx, AuditLogParams{
		Action: ActionRowDelete,
		Sheet:  sheetKey,
		Row:    row,
		Detail: formatRowData(data),
	})
}

// formatRowData renders the non-empty cells of a row as sorted "COL=value" pairs.
func formatRowData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if data[k] == "" {
			continue
		}
		parts = append(parts, k+"="+data[k])
	}
	return strings.Join(parts, "; ")
}
