package sheet

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWorkbook_PreservesRawNumbers(t *testing.T) {
	wb, err := OpenWorkbook(filepath.Join(t.TempDir(), "registro.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tbl := Table{
		Columns: []string{"USD_BRUTO", "TC_MERCADO", "GANANCIA_MXN"},
		Rows:    [][]string{{"50", "18.5", "372.035"}, {"0.1", "", "-12.5"}},
	}
	if _, err := wb.Write(ctx, "orders", tbl, 0); err != nil {
		t.Fatal(err)
	}

	snap, err := wb.Read(ctx, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(snap.Table, tbl) {
		t.Errorf("read = %+v, want %+v", snap.Table, tbl)
	}
}

func TestWorkbook_ReopenKeepsVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registro.xlsx")
	ctx := context.Background()

	wb, err := OpenWorkbook(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wb.Write(ctx, "orders", sampleTable(), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := wb.Write(ctx, "orders", sampleTable(), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := wb.Write(ctx, "Inventario", sampleTable(), 0); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenWorkbook(path)
	if err != nil {
		t.Fatal(err)
	}
	orders, _ := reopened.Read(ctx, "orders")
	inv, _ := reopened.Read(ctx, "Inventario")
	if orders.Version != 2 || inv.Version != 1 {
		t.Errorf("versions = %d, %d, want 2, 1", orders.Version, inv.Version)
	}
}

func TestWorkbook_ReservedSheet(t *testing.T) {
	wb, err := OpenWorkbook(filepath.Join(t.TempDir(), "registro.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wb.Write(context.Background(), versionsSheet, sampleTable(), 0); err == nil {
		t.Error("writing the versions sheet should fail")
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf,
		Snapshot{Sheet: "orders", Table: sampleTable()},
		Snapshot{Sheet: "Inventario", Table: Table{Columns: []string{"Producto"}, Rows: [][]string{{"Gorra"}}}},
	)
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != "orders" || got[1] != "Inventario" {
		t.Fatalf("sheets = %v, want [orders Inventario]", got)
	}
	rows, err := f.GetRows("orders")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[1][0] != "Gorra" {
		t.Errorf("orders rows = %v", rows)
	}
}

func TestTableFromRows_PadsTrimmedCells(t *testing.T) {
	got := tableFromRows([][]string{
		{"A", "B", "C"},
		{"1"},
		{"1", "2", "3"},
	}, -1, -1)
	if len(got.Rows[0]) != 3 || got.Rows[0][2] != "" {
		t.Errorf("row 0 = %v, want padded to 3", got.Rows[0])
	}
	if got.Len() != 2 {
		t.Errorf("rows = %d, want 2 when no count is recorded", got.Len())
	}
}

func TestTableFromRows_RestoresRecordedShape(t *testing.T) {
	got := tableFromRows([][]string{
		{"A", "B"},
		{"x", "1"},
	}, 3, 3)
	if len(got.Columns) != 3 || got.Columns[2] != "" {
		t.Errorf("columns = %q, want 3 with a blank last header", got.Columns)
	}
	if got.Len() != 3 {
		t.Fatalf("rows = %d, want 3", got.Len())
	}
	for i, r := range got.Rows {
		if len(r) != 3 {
			t.Errorf("row %d = %q, want width 3", i, r)
		}
	}
}

func TestWorkbook_KeepsBlankHeaderCells(t *testing.T) {
	wb, err := OpenWorkbook(filepath.Join(t.TempDir(), "registro.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tbl := Table{
		Columns: []string{"Producto", "Notas", ""},
		Rows:    [][]string{{"Gorra", "", ""}, {"", "", ""}},
	}
	if _, err := wb.Write(ctx, "Inventario", tbl, 0); err != nil {
		t.Fatal(err)
	}
	snap, err := wb.Read(ctx, "Inventario")
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(snap.Table, tbl) {
		t.Errorf("read = %q, want %q", snap.Table, tbl)
	}
}

func TestWorkbook_HidesVersionsSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registro.xlsx")
	wb, err := OpenWorkbook(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wb.Write(context.Background(), "orders", sampleTable(), 0); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	visible, err := f.GetSheetVisible(versionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if visible {
		t.Error("versions sheet is visible")
	}
	if ordersVisible, _ := f.GetSheetVisible("orders"); !ordersVisible {
		t.Error("orders sheet is hidden")
	}
}
