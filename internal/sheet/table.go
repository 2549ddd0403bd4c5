// Package sheet models a spreadsheet-like tabular store.
//
// A remote sheet only supports two operations: read the whole table and
// overwrite the whole table. Everything else (append, delete, cell edit) is a
// pure function over an in-memory Table that the caller must persist
// explicitly with Backend.Write.
//
// Every snapshot carries a version stamp. Writes name the version they were
// derived from and fail with ErrVersionConflict when another writer got there
// first, so concurrent submissions can no longer silently discard each other.
package sheet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVersionConflict is returned by Write when the sheet changed since it was read.
	ErrVersionConflict = errors.New("sheet version conflict: the sheet was modified by someone else")

	// ErrRowOutOfRange is returned when a row index does not exist in the table.
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrUnknownColumn is returned when a column name is not in the table header.
	ErrUnknownColumn = errors.New("unknown column")
)

// Table is a whole sheet: a header row plus data rows of raw cell text.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Snapshot is a table as read from a backend together with its version.
// Version 0 means the sheet did not exist when it was read.
type Snapshot struct {
	Sheet   string `json:"sheet"`
	Table   Table  `json:"table"`
	Version int64  `json:"version"`
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column, matching case-insensitively after
// trimming whitespace. Returns -1 if the column is absent.
func (t Table) Index(column string) int {
	want := normalizeHeader(column)
	for i, c := range t.Columns {
		if normalizeHeader(c) == want {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i for column, or "" if either is missing.
func (t Table) Cell(i int, column string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	col := t.Index(column)
	if col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// Row returns row i as a column->value map.
func (t Table) Row(i int) (map[string]string, error) {
	if i < 0 || i >= len(t.Rows) {
		return nil, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(t.Rows))
	}
	m := make(map[string]string, len(t.Columns))
	for c, name := range t.Columns {
		if c < len(t.Rows[i]) {
			m[name] = t.Rows[i][c]
		} else {
			m[name] = ""
		}
	}
	return m, nil
}

// Clone returns a deep copy of t.
func Clone(t Table) Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// Append returns a copy of t with row added at the end.
// The row is padded or truncated to the header width.
func Append(t Table, row []string) Table {
	out := Clone(t)
	out.Rows = append(out.Rows, fitRow(row, len(out.Columns)))
	return out
}

// Delete returns a copy of t without row i.
func Delete(t Table, i int) (Table, error) {
	if i < 0 || i >= len(t.Rows) {
		return Table{}, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(t.Rows))
	}
	out := Clone(t)
	out.Rows = append(out.Rows[:i], out.Rows[i+1:]...)
	return out, nil
}

// SetCell returns a copy of t with the cell at row i, column set to value.
func SetCell(t Table, i int, column, value string) (Table, error) {
	if i < 0 || i >= len(t.Rows) {
		return Table{}, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(t.Rows))
	}
	col := t.Index(column)
	if col < 0 {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	out := Clone(t)
	out.Rows[i] = fitRow(out.Rows[i], len(out.Columns))
	out.Rows[i][col] = value
	return out, nil
}

// Equal reports whether a and b have identical headers and cells.
func Equal(a, b Table) bool {
	if len(a.Columns) != len(b.Columns) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != len(b.Rows[i]) {
			return false
		}
		for j := range a.Rows[i] {
			if a.Rows[i][j] != b.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

// fitTable returns a copy of t with every row fitted to the header width,
// the shape every backend stores.
func fitTable(t Table) Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = fitRow(r, len(t.Columns))
		}
	}
	return out
}

// fitRow pads row with empty cells or truncates it to width.
func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
