package core

// import.go appends rows from a CSV export to a sheet.
//
// Files come from spreadsheet applications, so the reader strips a UTF-8 BOM,
// replaces invalid UTF-8, tolerates ragged rows and looks for the header in
// the first MaxHeaderSearchRows rows instead of assuming row one. Columns are
// matched to the sheet by name or alias; unknown columns are reported and
// ignored. Rows that fail validation are reported and skipped, the rest are
// appended in a single write.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// MaxImportSize is the largest CSV accepted by ImportCSV.
var MaxImportSize int64 = 10 * 1024 * 1024

// MaxHeaderSearchRows is how many leading rows are searched for the header.
var MaxHeaderSearchRows = 20

// ContextCheckInterval is how many rows are parsed between cancellation checks.
var ContextCheckInterval = 100

// minHeaderMatches is how many known columns a row needs to count as the header.
const minHeaderMatches = 2

var (
	// ErrImportTooLarge is returned for files over MaxImportSize.
	ErrImportTooLarge = errors.New("import file too large")

	// ErrHeaderNotFound is returned when no row looks like the sheet header.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrImportNotAllowed is returned for sheets that cannot be imported into.
	ErrImportNotAllowed = errors.New("sheet does not accept imports")
)

// ImportFailure describes one rejected CSV line.
type ImportFailure struct {
	Line   int    `json:"line"` // 1-based line in the file
	Reason string `json:"reason"`
}

// ImportResult summarises an import.
type ImportResult struct {
	Sheet    string          `json:"sheet"`
	Inserted int             `json:"inserted"`
	Skipped  int             `json:"skipped"` // empty rows
	Failed   []ImportFailure `json:"failed,omitempty"`
	Ignored  []string        `json:"ignored,omitempty"` // CSV columns with no matching sheet column
	Version  int64           `json:"version"`
}

// ImportCSV appends the rows of a CSV file to the sheet. Nothing is written
// if no row is valid.
func (s *Service) ImportCSV(ctx context.Context, sheetKey string, r io.Reader) (ImportResult, error) {
	def, err := Lookup(sheetKey)
	if err != nil {
		return ImportResult{}, err
	}
	if def.Info.Key == SheetHistory {
		return ImportResult{}, fmt.Errorf("%w: %s", ErrImportNotAllowed, def.Info.Key)
	}

	records, lines, err := readCSV(r)
	if err != nil {
		return ImportResult{}, err
	}

	headerRow := findHeaderInRecords(records, def)
	if headerRow < 0 {
		return ImportResult{}, fmt.Errorf("%w in the first %d rows for %s", ErrHeaderNotFound, MaxHeaderSearchRows, def.Info.Key)
	}

	result := ImportResult{Sheet: def.Info.Key}
	fields := make([]*FieldSpec, len(records[headerRow]))
	for i, h := range records[headerRow] {
		if f, ok := def.Field(CleanCell(h)); ok {
			fields[i] = &f
		} else if strings.TrimSpace(h) != "" {
			result.Ignored = append(result.Ignored, h)
		}
	}

	var values []map[string]string
	for i, row := range records[headerRow+1:] {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return ImportResult{}, err
			}
		}
		line := lines[headerRow+1+i]

		if isEmptyRow(row) {
			result.Skipped++
			continue
		}
		v, err := buildAndValidate(row, fields, def)
		if err != nil {
			result.Failed = append(result.Failed, ImportFailure{Line: line, Reason: err.Error()})
			continue
		}
		values = append(values, v)
	}

	if len(values) == 0 {
		return result, nil
	}

	snap, err := s.mutate(ctx, def, anyVersion, func(t sheet.Table) (sheet.Table, error) {
		out := sheet.Clone(t)
		for _, v := range values {
			out.Rows = append(out.Rows, rowFor(out, v))
		}
		return out, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	result.Inserted = len(values)
	result.Version = snap.Version

	s.logAudit(ctx, AuditLogParams{
		Action: ActionImport,
		Sheet:  def.Info.Key,
		Row:    noRow,
		Detail: fmt.Sprintf("%d rows imported, %d rejected", result.Inserted, len(result.Failed)),
	})
	return result, nil
}

// readCSV parses the whole file after removing a BOM and invalid UTF-8. It
// also returns the 1-based line each record starts on, which differs from
// the record index once quoted fields span lines or blank lines are skipped.
func readCSV(r io.Reader) ([][]string, []int, error) {
	counter := &countingReader{reader: io.LimitReader(r, MaxImportSize+1)}
	decoded := transform.NewReader(counter, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := cr.Read()
		if counter.n > MaxImportSize {
			return nil, nil, fmt.Errorf("%w: limit is %d bytes", ErrImportTooLarge, MaxImportSize)
		}
		if err == io.EOF {
			return records, lines, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
}

// countingReader tracks bytes read from the raw file.
type countingReader struct {
	reader io.Reader
	n      int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.n += int64(n)
	return n, err
}

// findHeaderInRecords returns the first row among the leading rows that
// names at least minHeaderMatches sheet columns, or -1.
func findHeaderInRecords(records [][]string, def SheetDefinition) int {
	maxRows := min(MaxHeaderSearchRows, len(records))
	need := min(minHeaderMatches, len(def.FieldSpecs))

	for i := 0; i < maxRows; i++ {
		matched := 0
		for _, cell := range records[i] {
			if _, ok := def.Field(CleanCell(cell)); ok {
				matched++
			}
		}
		if matched >= need {
			return i
		}
	}
	return -1
}

// buildAndValidate maps a CSV row to sheet columns, applying normalizers
// and checking required and enum fields.
func buildAndValidate(row []string, fields []*FieldSpec, def SheetDefinition) (map[string]string, error) {
	v := make(map[string]string, len(def.FieldSpecs))
	for i, f := range fields {
		if f == nil || i >= len(row) {
			continue
		}
		raw := CleanCell(row[i])
		if f.Normalizer != nil {
			raw = f.Normalizer(raw)
		}
		v[f.Name] = raw
	}

	for _, spec := range def.FieldSpecs {
		val, ok := v[spec.Name]
		if !ok {
			v[spec.Name] = spec.Default()
			val = v[spec.Name]
		}
		if spec.Required && val == "" {
			return nil, fmt.Errorf("%s is required", spec.Name)
		}
		if spec.Type == FieldEnum && val != "" && len(spec.EnumValues) > 0 && !slices.Contains(spec.EnumValues, val) {
			return nil, fmt.Errorf("invalid value for %s: %q", spec.Name, val)
		}
	}
	return v, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
