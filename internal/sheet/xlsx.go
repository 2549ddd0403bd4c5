package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"
)

// versionsSheet is a hidden worksheet with one row per data sheet:
// name, version, row count, column count. The counts restore the trailing
// blank rows and header cells that a worksheet does not keep.
const versionsSheet = "_versions"

// versionEntry is one row of the versions sheet.
type versionEntry struct {
	version int64
	row     int // 1-based row in versionsSheet, 0 if absent
	rows    int // -1 if not recorded
	cols    int // -1 if not recorded
}

// Workbook is a Backend storing each sheet as a worksheet of a local .xlsx
// file. The file is reopened on every call so edits made in a spreadsheet
// application between requests are picked up.
type Workbook struct {
	path string
	mu   sync.Mutex
}

// OpenWorkbook returns a Workbook backend at path, creating the file if needed.
func OpenWorkbook(path string) (*Workbook, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", versionsSheet); err != nil {
			return nil, fmt.Errorf("init workbook: %w", err)
		}
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat workbook %s: %w", path, err)
	}
	return &Workbook{path: path}, nil
}

// Read loads sheet from the workbook. Raw cell values are returned so numbers
// keep their stored precision rather than their display format.
func (w *Workbook) Read(ctx context.Context, sheet string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	entry, err := readVersion(f, sheet)
	if err != nil {
		return Snapshot{}, err
	}

	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx == -1 {
		return Snapshot{Sheet: sheet, Version: entry.version}, nil
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Snapshot{}, fmt.Errorf("read rows of %s: %w", sheet, err)
	}

	t := tableFromRows(rows, entry.cols, entry.rows)
	return Snapshot{Sheet: sheet, Table: t, Version: entry.version}, nil
}

// Write replaces the worksheet and bumps its version in one save.
func (w *Workbook) Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if sheet == versionsSheet {
		return 0, fmt.Errorf("sheet name %q is reserved", sheet)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	entry, err := readVersion(f, sheet)
	if err != nil {
		return 0, err
	}
	if entry.version != expected {
		return 0, ErrVersionConflict
	}
	t = fitTable(t)

	if idx, _ := f.GetSheetIndex(sheet); idx != -1 {
		if err := f.DeleteSheet(sheet); err != nil {
			return 0, fmt.Errorf("clear %s: %w", sheet, err)
		}
	}
	if err := writeWorksheet(f, sheet, t); err != nil {
		return 0, err
	}

	next := entry.version + 1
	versionRow := entry.row
	if versionRow == 0 {
		rows, err := f.GetRows(versionsSheet)
		if err != nil {
			return 0, fmt.Errorf("read versions: %w", err)
		}
		versionRow = len(rows) + 1
	}
	if err := f.SetSheetRow(versionsSheet, cellName(1, versionRow), &[]interface{}{
		sheet,
		strconv.FormatInt(next, 10),
		strconv.Itoa(len(t.Rows)),
		strconv.Itoa(len(t.Columns)),
	}); err != nil {
		return 0, fmt.Errorf("store version: %w", err)
	}
	if err := hideVersions(f, sheet); err != nil {
		return 0, err
	}

	if err := f.Save(); err != nil {
		return 0, fmt.Errorf("save workbook: %w", err)
	}
	return next, nil
}

// WriteXLSX renders snapshots as worksheets of a new workbook and writes it to out.
func WriteXLSX(out io.Writer, snaps ...Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, snap := range snaps {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", snap.Sheet); err != nil {
				return err
			}
			if err := fillWorksheet(f, snap.Sheet, snap.Table); err != nil {
				return err
			}
			continue
		}
		if err := writeWorksheet(f, snap.Sheet, snap.Table); err != nil {
			return err
		}
	}

	return f.Write(out)
}

// readVersion returns the versions sheet entry of sheet, creating the
// versions sheet if the workbook has none.
func readVersion(f *excelize.File, sheet string) (versionEntry, error) {
	entry := versionEntry{rows: -1, cols: -1}
	if idx, _ := f.GetSheetIndex(versionsSheet); idx == -1 {
		if _, err := f.NewSheet(versionsSheet); err != nil {
			return entry, fmt.Errorf("create versions sheet: %w", err)
		}
		return entry, nil
	}

	rows, err := f.GetRows(versionsSheet)
	if err != nil {
		return entry, fmt.Errorf("read versions: %w", err)
	}
	for i, r := range rows {
		if len(r) < 2 || r[0] != sheet {
			continue
		}
		v, err := strconv.ParseInt(r[1], 10, 64)
		if err != nil {
			return entry, fmt.Errorf("corrupt version for %s: %q", sheet, r[1])
		}
		entry.version, entry.row = v, i+1
		// Workbooks written before the counts were recorded have only two cells.
		if len(r) >= 4 {
			if n, err := strconv.Atoi(r[2]); err == nil && n >= 0 {
				entry.rows = n
			}
			if n, err := strconv.Atoi(r[3]); err == nil && n >= 0 {
				entry.cols = n
			}
		}
		return entry, nil
	}
	return entry, nil
}

// hideVersions makes sheet the active tab and hides the versions sheet.
// A workbook needs one visible sheet, so excelize leaves it visible when
// it is the only one.
func hideVersions(f *excelize.File, sheet string) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("find %s: %w", sheet, err)
	}
	f.SetActiveSheet(idx)
	if err := f.SetSheetVisible(versionsSheet, false); err != nil {
		return fmt.Errorf("hide versions sheet: %w", err)
	}
	return nil
}

func writeWorksheet(f *excelize.File, sheet string, t Table) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create %s: %w", sheet, err)
	}
	return fillWorksheet(f, sheet, t)
}

func fillWorksheet(f *excelize.File, sheet string, t Table) error {
	if len(t.Columns) == 0 {
		return nil
	}
	if err := f.SetSheetRow(sheet, "A1", toCells(t.Columns)); err != nil {
		return fmt.Errorf("write header of %s: %w", sheet, err)
	}
	for i, r := range t.Rows {
		if err := f.SetSheetRow(sheet, cellName(1, i+2), toCells(r)); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i, sheet, err)
		}
	}
	return nil
}

// tableFromRows splits a header off raw worksheet rows and pads every data
// row to the header width. excelize trims trailing empty cells and rows, so
// when the recorded widths are known (cols, rows >= 0) the header and the row
// list are padded back to them.
func tableFromRows(rows [][]string, cols, count int) Table {
	var t Table
	if len(rows) > 0 {
		t.Columns = append([]string(nil), rows[0]...)
		rows = rows[1:]
	}
	if cols > len(t.Columns) {
		t.Columns = fitRow(t.Columns, cols)
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(t.Columns)))
	}
	for len(t.Rows) < count {
		t.Rows = append(t.Rows, make([]string, len(t.Columns)))
	}
	return t
}

func toCells(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
