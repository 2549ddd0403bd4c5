package sheet

import (
	"errors"
	"testing"
)

func sampleTable() Table {
	return Table{
		Columns: []string{"Producto", "Tienda", "Cantidad"},
		Rows: [][]string{
			{"Gorra", "Nike", "10"},
			{"Playera", "Guess", "4"},
			{"Sudadera", "Hollister", "2"},
		},
	}
}

// ----------------------------------------------------------------------------
// Index / Cell Tests
// ----------------------------------------------------------------------------

func TestTable_Index(t *testing.T) {
	tbl := sampleTable()

	tests := []struct {
		column string
		want   int
	}{
		{"Producto", 0},
		{"producto", 0},
		{"  TIENDA ", 1},
		{"Cantidad", 2},
		{"Color", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := tbl.Index(tt.column); got != tt.want {
			t.Errorf("Index(%q) = %d, want %d", tt.column, got, tt.want)
		}
	}
}

func TestTable_Cell(t *testing.T) {
	tbl := sampleTable()

	if got := tbl.Cell(1, "tienda"); got != "Guess" {
		t.Errorf("Cell(1, tienda) = %q, want Guess", got)
	}
	if got := tbl.Cell(5, "Tienda"); got != "" {
		t.Errorf("Cell out of range = %q, want empty", got)
	}
	if got := tbl.Cell(0, "Color"); got != "" {
		t.Errorf("Cell unknown column = %q, want empty", got)
	}
}

func TestTable_Row(t *testing.T) {
	tbl := sampleTable()

	row, err := tbl.Row(2)
	if err != nil {
		t.Fatalf("Row(2) error = %v", err)
	}
	if row["Producto"] != "Sudadera" || row["Cantidad"] != "2" {
		t.Errorf("Row(2) = %v", row)
	}

	if _, err := tbl.Row(3); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("Row(3) error = %v, want ErrRowOutOfRange", err)
	}
}

// ----------------------------------------------------------------------------
// Pure Operation Tests
// ----------------------------------------------------------------------------

func TestAppend_DoesNotMutateInput(t *testing.T) {
	tbl := sampleTable()

	out := Append(tbl, []string{"Tenis", "JDSports", "1"})

	if tbl.Len() != 3 {
		t.Errorf("input modified: Len = %d, want 3", tbl.Len())
	}
	if out.Len() != 4 {
		t.Fatalf("Append Len = %d, want 4", out.Len())
	}
	if out.Cell(3, "Producto") != "Tenis" {
		t.Errorf("appended row = %v", out.Rows[3])
	}
}

func TestAppend_FitsRowToHeader(t *testing.T) {
	tbl := sampleTable()

	short := Append(tbl, []string{"Tenis"})
	if got := len(short.Rows[3]); got != 3 {
		t.Errorf("short row width = %d, want 3", got)
	}

	long := Append(tbl, []string{"Tenis", "Nike", "1", "extra"})
	if got := len(long.Rows[3]); got != 3 {
		t.Errorf("long row width = %d, want 3", got)
	}
}

func TestDelete(t *testing.T) {
	tbl := sampleTable()
	deleted := append([]string(nil), tbl.Rows[1]...)

	out, err := Delete(tbl, 1)
	if err != nil {
		t.Fatalf("Delete error = %v", err)
	}

	if out.Len() != tbl.Len()-1 {
		t.Errorf("Len = %d, want %d", out.Len(), tbl.Len()-1)
	}
	for _, r := range out.Rows {
		if rowsEqual(r, deleted) {
			t.Errorf("deleted row %v still present", deleted)
		}
	}
	if tbl.Len() != 3 {
		t.Error("Delete modified its input")
	}
}

func TestDelete_OutOfRange(t *testing.T) {
	for _, i := range []int{-1, 3, 10} {
		if _, err := Delete(sampleTable(), i); !errors.Is(err, ErrRowOutOfRange) {
			t.Errorf("Delete(%d) error = %v, want ErrRowOutOfRange", i, err)
		}
	}
}

func TestSetCell(t *testing.T) {
	tbl := sampleTable()

	out, err := SetCell(tbl, 0, "cantidad", "7")
	if err != nil {
		t.Fatalf("SetCell error = %v", err)
	}
	if out.Cell(0, "Cantidad") != "7" {
		t.Errorf("Cantidad = %q, want 7", out.Cell(0, "Cantidad"))
	}
	if tbl.Cell(0, "Cantidad") != "10" {
		t.Error("SetCell modified its input")
	}

	if _, err := SetCell(tbl, 0, "Color", "rojo"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unknown column error = %v", err)
	}
	if _, err := SetCell(tbl, 9, "Cantidad", "1"); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("out of range error = %v", err)
	}
}

func TestEqual(t *testing.T) {
	a := sampleTable()
	b := Clone(a)

	if !Equal(a, b) {
		t.Fatal("clone not Equal to original")
	}

	b.Rows[2][2] = "3"
	if Equal(a, b) {
		t.Error("Equal true after cell change")
	}

	c := Clone(a)
	c.Columns[0] = "PRODUCTO"
	if Equal(a, c) {
		t.Error("Equal true after header change")
	}
}

func rowsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
