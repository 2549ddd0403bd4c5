package core_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ArmandoRuiz13/registro/internal/core"
	_ "github.com/ArmandoRuiz13/registro/internal/core/tables"
	"github.com/ArmandoRuiz13/registro/internal/exchange"
	"github.com/ArmandoRuiz13/registro/internal/pricing"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// ----------------------------------------------------------------------------
// Fixtures
// ----------------------------------------------------------------------------

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedRates struct {
	rate      decimal.Decimal
	refreshes atomic.Int32
}

func (f *fixedRates) Rate(context.Context) exchange.Quote {
	return exchange.Quote{Rate: f.rate, Source: "test"}
}

func (f *fixedRates) Refresh(ctx context.Context) exchange.Quote {
	f.refreshes.Add(1)
	return f.Rate(ctx)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	svc   *core.Service
	store sheet.Backend
	clock *clock
	rates *fixedRates
}

func newHarness(t *testing.T, store sheet.Backend, mutate ...func(*core.Config)) *harness {
	t.Helper()

	clk := &clock{now: time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)}
	calc := pricing.New()
	calc.Now = clk.Now
	rates := &fixedRates{rate: dec("18.50")}

	cfg := core.Config{
		Calculator: calc,
		Rates:      rates,
		Locker:     sheet.NewLocalLocker(),
		Now:        clk.Now,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return &harness{svc: core.NewService(store, cfg), store: store, clock: clk, rates: rates}
}

func workedExample() core.OrderInput {
	return core.OrderInput{
		Product:   "Sudadera",
		Store:     "Hollister",
		GrossCost: dec("50.00"),
		SalePrice: dec("1500"),
	}
}

func (h *harness) submit(t *testing.T, in core.OrderInput) core.Order {
	t.Helper()
	o, err := h.svc.SubmitOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	return o
}

func (h *harness) orders(t *testing.T) core.OrderView {
	t.Helper()
	v, err := h.svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	return v
}

func (h *harness) inventory(t *testing.T) core.InventoryView {
	t.Helper()
	v, err := h.svc.ListInventory(context.Background())
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	return v
}

// intrudingBackend appends a foreign row to the orders sheet right before
// the next n writes to it, as a second client would.
type intrudingBackend struct {
	sheet.Backend
	mu        sync.Mutex
	remaining int
}

func (b *intrudingBackend) Write(ctx context.Context, name string, t sheet.Table, expected int64) (int64, error) {
	b.mu.Lock()
	intrude := name == core.SheetOrders && b.remaining > 0
	if intrude {
		b.remaining--
	}
	b.mu.Unlock()

	if intrude {
		snap, err := b.Backend.Read(ctx, name)
		if err != nil {
			return 0, err
		}
		cur := snap.Table
		if len(cur.Columns) == 0 {
			cur.Columns = t.Columns
		}
		row := make([]string, len(cur.Columns))
		row[cur.Index(core.ColProduct)] = "Intruso"
		if _, err := b.Backend.Write(ctx, name, sheet.Append(cur, row), snap.Version); err != nil {
			return 0, err
		}
	}
	return b.Backend.Write(ctx, name, t, expected)
}

// ----------------------------------------------------------------------------
// Orders
// ----------------------------------------------------------------------------

func TestSubmitOrder_WorkedExample(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())

	order := h.submit(t, workedExample())
	if order.Row != 0 {
		t.Errorf("Row = %d, want 0", order.Row)
	}

	view := h.orders(t)
	if len(view.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(view.Orders))
	}
	got := view.Orders[0]

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"TaxCost", got.TaxCost, "54.125"},
		{"Commission", got.Commission, "126.6525"},
		{"TotalCost", got.TotalCost, "1127.965"},
		{"Profit", got.Profit, "372.035"},
		{"ExchangeRate", got.ExchangeRate, "18.5"},
		{"Received", got.Received, "0"},
	}
	for _, tc := range checks {
		if !tc.got.Equal(dec(tc.want)) {
			t.Errorf("%s = %s, want %s", tc.name, tc.got, tc.want)
		}
	}

	if got.Status != core.StatusOwed {
		t.Errorf("Status = %q, want %q", got.Status, core.StatusOwed)
	}
	if got.WeekRange != "12/10/2026 - 18/10/2026" {
		t.Errorf("WeekRange = %q", got.WeekRange)
	}
	if got.RegisteredAt != "2026-10-16 12:30" {
		t.Errorf("RegisteredAt = %q", got.RegisteredAt)
	}

	snap, err := h.svc.Snapshot(context.Background(), core.SheetOrders)
	if err != nil {
		t.Fatal(err)
	}
	if cell := snap.Table.Cell(0, core.ColTotalCost); cell != "1127.965" {
		t.Errorf("stored %s = %q, want %q", core.ColTotalCost, cell, "1127.965")
	}
}

func TestSubmitOrder_AppendsExactlyOneRow(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())

	for i := 0; i < 3; i++ {
		h.submit(t, workedExample())
	}

	view := h.orders(t)
	if len(view.Orders) != 3 {
		t.Errorf("got %d orders, want 3", len(view.Orders))
	}
	if view.Version != 3 {
		t.Errorf("Version = %d, want 3", view.Version)
	}
}

func TestSubmitOrder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    core.OrderInput
		field string
	}{
		{
			name:  "missing product",
			in:    core.OrderInput{Store: "Nike", GrossCost: dec("10")},
			field: "Product",
		},
		{
			name:  "zero gross cost",
			in:    core.OrderInput{Product: "Gorra", Store: "Nike"},
			field: "GrossCost",
		},
		{
			name:  "custom store without name",
			in:    core.OrderInput{Product: "Gorra", Store: core.StoreCustom, GrossCost: dec("10")},
			field: "CustomStore",
		},
		{
			name:  "negative sale price",
			in:    core.OrderInput{Product: "Gorra", Store: "Nike", GrossCost: dec("10"), SalePrice: dec("-1")},
			field: "SalePrice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sheet.NewMemory())

			_, err := h.svc.SubmitOrder(context.Background(), tt.in)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("Fields = %v, want an entry for %s", verr.Fields, tt.field)
			}

			if v := h.orders(t).Version; v != 0 {
				t.Errorf("sheet written on invalid input, version %d", v)
			}
		})
	}
}

func TestSubmitOrder_CustomStoreAndManualRate(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())

	in := workedExample()
	in.Store = core.StoreCustom
	in.CustomStore = "  Zara "
	in.ExchangeRate = dec("20")

	order := h.submit(t, in)
	if order.Store != "Zara" {
		t.Errorf("Store = %q, want %q", order.Store, "Zara")
	}
	if !order.ExchangeRate.Equal(dec("20")) {
		t.Errorf("ExchangeRate = %s, want 20", order.ExchangeRate)
	}
}

func TestSubmitOrder_ReappliedAfterConcurrentWrite(t *testing.T) {
	store := &intrudingBackend{Backend: sheet.NewMemory(), remaining: 1}
	h := newHarness(t, store)

	h.submit(t, workedExample())

	view := h.orders(t)
	if len(view.Orders) != 2 {
		t.Fatalf("got %d orders, want 2 (both writers kept)", len(view.Orders))
	}
	if view.Orders[0].Product != "Intruso" || view.Orders[1].Product != "Sudadera" {
		t.Errorf("products = %q, %q", view.Orders[0].Product, view.Orders[1].Product)
	}
}

func TestSubmitOrder_GivesUpAfterAttempts(t *testing.T) {
	store := &intrudingBackend{Backend: sheet.NewMemory(), remaining: 10}
	h := newHarness(t, store, func(c *core.Config) { c.WriteAttempts = 2 })

	_, err := h.svc.SubmitOrder(context.Background(), workedExample())
	if !errors.Is(err, sheet.ErrVersionConflict) {
		t.Fatalf("error = %v, want ErrVersionConflict", err)
	}
	if got := core.MapError(err).Code; got != "SHT001" {
		t.Errorf("MapError code = %q, want SHT001", got)
	}
}

func TestSubmitOrder_ConcurrentSubmitsAllLand(t *testing.T) {
	h := newHarness(t, sheet.NewMemory(), func(c *core.Config) {
		c.Limiter = core.NewWriteLimiter(8, time.Second)
	})

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.SubmitOrder(context.Background(), workedExample()); err != nil {
				t.Errorf("SubmitOrder: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(h.orders(t).Orders); got != n {
		t.Errorf("got %d orders, want %d", got, n)
	}
}

func TestQuoteOrder(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())

	q, err := h.svc.QuoteOrder(context.Background(), core.OrderInput{GrossCost: dec("50"), SalePrice: dec("1500")})
	if err != nil {
		t.Fatal(err)
	}
	if !q.Ready {
		t.Error("Ready = false with a gross cost")
	}
	if !q.Result.TotalCost.Equal(dec("1127.965")) {
		t.Errorf("TotalCost = %s", q.Result.TotalCost)
	}
	if q.Quote.Source != "test" {
		t.Errorf("Quote.Source = %q, want live quote", q.Quote.Source)
	}

	empty, err := h.svc.QuoteOrder(context.Background(), core.OrderInput{})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Ready {
		t.Error("Ready = true without a gross cost")
	}

	if _, err := h.svc.QuoteOrder(context.Background(), core.OrderInput{GrossCost: dec("-1")}); err == nil {
		t.Error("negative gross cost accepted")
	}

	if v := h.orders(t).Version; v != 0 {
		t.Errorf("QuoteOrder wrote the sheet, version %d", v)
	}
}

func TestListOrders_WeeklySummaries(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())

	h.submit(t, workedExample())
	h.clock.Advance(7 * 24 * time.Hour)
	h.submit(t, workedExample())
	h.submit(t, workedExample())

	view := h.orders(t)
	if len(view.Weeks) != 2 {
		t.Fatalf("got %d weeks, want 2", len(view.Weeks))
	}

	latest := view.Weeks[0]
	if latest.Week != "19/10/2026 - 25/10/2026" || latest.Orders != 2 {
		t.Errorf("latest week = %q with %d orders", latest.Week, latest.Orders)
	}
	if !latest.Sales.Equal(dec("3000")) || !latest.Outstanding.Equal(dec("3000")) {
		t.Errorf("latest sales = %s, outstanding = %s", latest.Sales, latest.Outstanding)
	}
	if view.Weeks[1].Week != "12/10/2026 - 18/10/2026" {
		t.Errorf("older week = %q", view.Weeks[1].Week)
	}

	if view.Totals.Orders != 3 || !view.Totals.Profit.Equal(dec("1116.105")) {
		t.Errorf("totals = %d orders, profit %s", view.Totals.Orders, view.Totals.Profit)
	}
}

func TestListOrders_PaidOrdersOweNothing(t *testing.T) {
	tests := []struct {
		name     string
		target   core.PaidSnapTarget
		received string
	}{
		{name: "snap to sale", target: core.SnapToSale, received: "1500"},
		{name: "snap to total cost", target: core.SnapToTotal, received: "1127.965"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sheet.NewMemory(), func(c *core.Config) { c.PaidSnap = tt.target })
			h.submit(t, workedExample())
			h.submit(t, workedExample())

			if _, err := h.svc.SetPaymentStatus(context.Background(), h.orders(t).Version, 0, "Paid"); err != nil {
				t.Fatalf("SetPaymentStatus: %v", err)
			}

			view := h.orders(t)
			paid := view.Orders[0]
			if !paid.Received.Equal(dec(tt.received)) {
				t.Errorf("received = %s, want %s", paid.Received, tt.received)
			}
			if !paid.Outstanding().IsZero() {
				t.Errorf("paid order outstanding = %s, want 0", paid.Outstanding())
			}
			if !view.Totals.Outstanding.Equal(dec("1500")) {
				t.Errorf("totals outstanding = %s, want 1500", view.Totals.Outstanding)
			}
			if !view.Weeks[0].Outstanding.Equal(dec("1500")) {
				t.Errorf("week outstanding = %s, want 1500", view.Weeks[0].Outstanding)
			}
		})
	}
}

func TestListOrders_NormalizesHeaders(t *testing.T) {
	store := sheet.NewMemory()
	legacy := sheet.Table{
		Columns: []string{" producto ", "Venta_MXN", "estado_pago", "NOTAS"},
		Rows: [][]string{
			{"Gorra", "$1,200.00", "pagado", "regalo"},
			{"Playera", "abc", "", ""},
		},
	}
	if _, err := store.Write(context.Background(), core.SheetOrders, legacy, 0); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, store)

	view := h.orders(t)

	def, _ := core.Get(core.SheetOrders)
	want := append(append([]string(nil), def.Info.Columns...), "NOTAS")
	if len(view.Table.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", view.Table.Columns, want)
	}
	for i := range want {
		if view.Table.Columns[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, view.Table.Columns[i], want[i])
		}
	}

	first, second := view.Orders[0], view.Orders[1]
	if first.Product != "Gorra" || !first.SalePrice.Equal(dec("1200")) || first.Status != core.StatusPaid {
		t.Errorf("first = %+v", first)
	}
	if !second.SalePrice.IsZero() || second.Status != core.StatusOwed {
		t.Errorf("second: sale %s, status %q", second.SalePrice, second.Status)
	}
	if cell := view.Table.Cell(0, core.ColGrossUSD); cell != "0" {
		t.Errorf("missing numeric column filled with %q, want \"0\"", cell)
	}
	if cell := view.Table.Cell(0, "NOTAS"); cell != "regalo" {
		t.Errorf("extra column = %q", cell)
	}
}

// ----------------------------------------------------------------------------
// Grid edits
// ----------------------------------------------------------------------------

func TestSetPaymentStatus_PaidSnap(t *testing.T) {
	tests := []struct {
		name   string
		target core.PaidSnapTarget
		want   string
	}{
		{name: "snap to sale", target: core.SnapToSale, want: "1500"},
		{name: "snap to total cost", target: core.SnapToTotal, want: "1127.965"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sheet.NewMemory(), func(c *core.Config) { c.PaidSnap = tt.target })
			h.submit(t, workedExample())
			ctx := context.Background()

			snap, err := h.svc.SetPaymentStatus(ctx, h.orders(t).Version, 0, "Pagado")
			if err != nil {
				t.Fatalf("SetPaymentStatus: %v", err)
			}
			if got := snap.Table.Cell(0, core.ColStatus); got != string(core.StatusPaid) {
				t.Errorf("status = %q, want %q", got, core.StatusPaid)
			}
			if got := snap.Table.Cell(0, core.ColReceived); got != tt.want {
				t.Errorf("received = %q, want %q", got, tt.want)
			}

			// Leaving Paid keeps the received amount.
			snap, err = h.svc.SetPaymentStatus(ctx, snap.Version, 0, "Debe")
			if err != nil {
				t.Fatalf("SetPaymentStatus: %v", err)
			}
			if got := snap.Table.Cell(0, core.ColReceived); got != tt.want {
				t.Errorf("received after leaving Paid = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEditOrders_AlreadyPaidDoesNotSnap(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	h.submit(t, workedExample())
	ctx := context.Background()

	snap, err := h.svc.EditOrders(ctx, core.GridEdit{
		Version: h.orders(t).Version,
		Edits: []core.CellEdit{
			{Row: 0, Column: core.ColStatus, Value: "Paid"},
			{Row: 0, Column: core.ColReceived, Value: "10"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Table.Cell(0, core.ColReceived); got != "1500" {
		t.Fatalf("received = %q, want snapped 1500", got)
	}

	snap, err = h.svc.EditOrders(ctx, core.GridEdit{
		Version: snap.Version,
		Edits: []core.CellEdit{
			{Row: 0, Column: core.ColReceived, Value: "700"},
			{Row: 0, Column: core.ColStatus, Value: "Paid"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Table.Cell(0, core.ColReceived); got != "700" {
		t.Errorf("received = %q, want 700 (status unchanged)", got)
	}
}

func TestEditOrders(t *testing.T) {
	tests := []struct {
		name    string
		edit    core.CellEdit
		stale   bool
		wantErr error
		column  string
		want    string
	}{
		{
			name:   "numeric cell normalized",
			edit:   core.CellEdit{Row: 0, Column: core.ColSale, Value: "$1,600.50"},
			column: core.ColSale,
			want:   "1600.5",
		},
		{
			name:   "column matched case-insensitively",
			edit:   core.CellEdit{Row: 0, Column: "producto", Value: " Gorra "},
			column: core.ColProduct,
			want:   "Gorra",
		},
		{
			name:   "derived column may be overwritten",
			edit:   core.CellEdit{Row: 0, Column: core.ColProfit, Value: "1"},
			column: core.ColProfit,
			want:   "1",
		},
		{
			name:   "status alias stored canonically",
			edit:   core.CellEdit{Row: 0, Column: core.ColStatus, Value: "abonado"},
			column: core.ColStatus,
			want:   string(core.StatusPartial),
		},
		{
			name:    "invalid status",
			edit:    core.CellEdit{Row: 0, Column: core.ColStatus, Value: "quizas"},
			wantErr: core.ErrInvalidStatus,
		},
		{
			name:    "unknown column",
			edit:    core.CellEdit{Row: 0, Column: "NOPE", Value: "x"},
			wantErr: sheet.ErrUnknownColumn,
		},
		{
			name:    "row out of range",
			edit:    core.CellEdit{Row: 5, Column: core.ColSale, Value: "1"},
			wantErr: sheet.ErrRowOutOfRange,
		},
		{
			name:    "stale version",
			edit:    core.CellEdit{Row: 0, Column: core.ColSale, Value: "1"},
			stale:   true,
			wantErr: sheet.ErrVersionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sheet.NewMemory())
			h.submit(t, workedExample())
			version := h.orders(t).Version
			if tt.stale {
				h.submit(t, workedExample())
			}

			snap, err := h.svc.EditOrders(context.Background(), core.GridEdit{
				Version: version,
				Edits:   []core.CellEdit{tt.edit},
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EditOrders: %v", err)
			}
			if got := snap.Table.Cell(0, tt.column); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.column, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Inventory
// ----------------------------------------------------------------------------

func TestInventory_AddAndStats(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()

	first, err := h.svc.AddInventoryItem(ctx, core.InventoryInput{
		Product:     "Gorra",
		Store:       core.StoreCustom,
		CustomStore: "Zara",
		CostPrice:   dec("100"),
		SalePrice:   dec("150"),
		Size:        core.SizeOther,
		CustomSize:  "28",
		Quantity:    dec("10"),
		Sold:        dec("4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Store != "Zara" || first.Size != "28" {
		t.Errorf("store %q size %q, want Zara 28", first.Store, first.Size)
	}

	if _, err := h.svc.AddInventoryItem(ctx, core.InventoryInput{
		Product:   "Playera",
		Store:     "Guess",
		CostPrice: dec("200"),
		SalePrice: dec("260"),
		Size:      "M",
		Quantity:  dec("5"),
		Sold:      dec("5"),
	}); err != nil {
		t.Fatal(err)
	}

	view := h.inventory(t)
	if len(view.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(view.Items))
	}

	stats := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"InStock", view.Stats.InStock, "6"},
		{"Sales", view.Stats.Sales, "1900"},
		{"Profit", view.Stats.Profit, "500"},
		{"Investment", view.Stats.Investment, "600"},
	}
	for _, s := range stats {
		if !s.got.Equal(dec(s.want)) {
			t.Errorf("%s = %s, want %s", s.name, s.got, s.want)
		}
	}
}

func TestInventory_AddRequiresProduct(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())

	_, err := h.svc.AddInventoryItem(context.Background(), core.InventoryInput{Store: "Nike"})
	if got := core.MapError(err).Code; got != "VAL001" {
		t.Errorf("MapError code = %q, want VAL001 (err %v)", got, err)
	}
}

func TestSaveInventoryGrid(t *testing.T) {
	store := sheet.NewMemory()
	seed := sheet.Table{
		Columns: []string{"Producto", "Tienda", "Cantidad", "Notas"},
		Rows:    [][]string{{"Gorra", "Nike", "3", "x"}},
	}
	if _, err := store.Write(context.Background(), core.SheetInventory, seed, 0); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, store)
	ctx := context.Background()

	view := h.inventory(t)
	items := append(view.Items,
		core.InventoryItem{Product: "Playera", Store: "Guess", Quantity: dec("2")},
		core.InventoryItem{Product: "   "},
	)
	items[0].Sold = dec("1")

	snap, err := h.svc.SaveInventoryGrid(ctx, view.Version, items)
	if err != nil {
		t.Fatalf("SaveInventoryGrid: %v", err)
	}

	if len(snap.Table.Columns) != 8 {
		t.Errorf("columns = %v, want the eight stored columns", snap.Table.Columns)
	}
	if snap.Table.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (blank row dropped)", snap.Table.Len())
	}
	if got := snap.Table.Cell(0, core.ColItemSold); got != "1" {
		t.Errorf("Vendidos = %q, want 1", got)
	}

	if _, err := h.svc.SaveInventoryGrid(ctx, view.Version, items); !errors.Is(err, sheet.ErrVersionConflict) {
		t.Errorf("stale save error = %v, want ErrVersionConflict", err)
	}
}

// ----------------------------------------------------------------------------
// Deletion
// ----------------------------------------------------------------------------

func seedOrders(t *testing.T, h *harness, products ...string) int64 {
	t.Helper()
	for _, p := range products {
		in := workedExample()
		in.Product = p
		h.submit(t, in)
	}
	return h.orders(t).Version
}

func products(view core.OrderView) []string {
	out := make([]string, len(view.Orders))
	for i, o := range view.Orders {
		out[i] = o.Product
	}
	return out
}

func TestDelete_ConfirmRemovesRow(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()
	version := seedOrders(t, h, "A", "B", "C")

	pending, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, 1)
	if err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}
	if pending.Preview[core.ColProduct] != "B" {
		t.Errorf("preview product = %q, want B", pending.Preview[core.ColProduct])
	}

	if v := h.orders(t).Version; v != version {
		t.Errorf("RequestDelete wrote the sheet")
	}

	snap, err := h.svc.ConfirmDelete(ctx, pending.Token)
	if err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	if snap.Table.Len() != 2 {
		t.Errorf("rows = %d, want 2", snap.Table.Len())
	}
	if got := products(h.orders(t)); got[0] != "A" || got[1] != "C" {
		t.Errorf("products = %v, want [A C]", got)
	}

	if _, err := h.svc.ConfirmDelete(ctx, pending.Token); !errors.Is(err, core.ErrPendingNotFound) {
		t.Errorf("second confirm error = %v, want ErrPendingNotFound", err)
	}
}

func TestDelete_CancelDiscardsToken(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()
	version := seedOrders(t, h, "A")

	pending, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.svc.CancelDelete(pending.Token); err != nil {
		t.Fatalf("CancelDelete: %v", err)
	}
	if _, err := h.svc.ConfirmDelete(ctx, pending.Token); !errors.Is(err, core.ErrPendingNotFound) {
		t.Errorf("confirm after cancel error = %v, want ErrPendingNotFound", err)
	}
	if got := len(h.orders(t).Orders); got != 1 {
		t.Errorf("orders = %d, want 1", got)
	}
}

func TestDelete_Expires(t *testing.T) {
	h := newHarness(t, sheet.NewMemory(), func(c *core.Config) { c.DeleteTTL = time.Minute })
	ctx := context.Background()
	version := seedOrders(t, h, "A")

	pending, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, 0)
	if err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(2 * time.Minute)

	if _, err := h.svc.GetPendingDelete(pending.Token); !errors.Is(err, core.ErrPendingNotFound) {
		t.Errorf("GetPendingDelete error = %v, want ErrPendingNotFound", err)
	}
	if _, err := h.svc.ConfirmDelete(ctx, pending.Token); !errors.Is(err, core.ErrPendingNotFound) {
		t.Errorf("ConfirmDelete error = %v, want ErrPendingNotFound", err)
	}
}

func TestDelete_PurgeExpired(t *testing.T) {
	h := newHarness(t, sheet.NewMemory(), func(c *core.Config) { c.DeleteTTL = time.Minute })
	ctx := context.Background()
	version := seedOrders(t, h, "A", "B")

	for row := 0; row < 2; row++ {
		if _, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, row); err != nil {
			t.Fatal(err)
		}
	}
	if n := h.svc.PurgeExpiredDeletes(); n != 0 {
		t.Errorf("purged %d fresh confirmations", n)
	}
	h.clock.Advance(time.Minute)
	if n := h.svc.PurgeExpiredDeletes(); n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
}

func TestDelete_FollowsShiftedRow(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()
	version := seedOrders(t, h, "A", "B", "C")

	last, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, 2)
	if err != nil {
		t.Fatal(err)
	}
	first, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.ConfirmDelete(ctx, first.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.ConfirmDelete(ctx, last.Token); err != nil {
		t.Fatalf("confirm after shift: %v", err)
	}

	if got := products(h.orders(t)); len(got) != 1 || got[0] != "B" {
		t.Errorf("products = %v, want [B]", got)
	}
}

func TestDelete_RowChanged(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()
	version := seedOrders(t, h, "A")

	pending, err := h.svc.RequestDelete(ctx, core.SheetOrders, version, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.SetPaymentStatus(ctx, version, 0, "Pagado"); err != nil {
		t.Fatal(err)
	}

	_, err = h.svc.ConfirmDelete(ctx, pending.Token)
	if !errors.Is(err, core.ErrRowChanged) {
		t.Fatalf("error = %v, want ErrRowChanged", err)
	}
	if got := core.MapError(err).Code; got != "DEL002" {
		t.Errorf("MapError code = %q, want DEL002", got)
	}
	if got := len(h.orders(t).Orders); got != 1 {
		t.Errorf("orders = %d, want 1", got)
	}
}

func TestRequestDelete_Errors(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()
	version := seedOrders(t, h, "A")

	tests := []struct {
		name    string
		sheet   string
		version int64
		row     int
		want    error
	}{
		{"stale version", core.SheetOrders, version - 1, 0, sheet.ErrVersionConflict},
		{"row out of range", core.SheetOrders, version, 3, sheet.ErrRowOutOfRange},
		{"unknown sheet", "ventas", version, 0, core.ErrUnknownSheet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.RequestDelete(ctx, tt.sheet, tt.version, tt.row); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Snapshot, persist, export
// ----------------------------------------------------------------------------

func TestPersist_UnmodifiedSnapshotIsIdempotent(t *testing.T) {
	store := sheet.NewMemory()
	legacy := sheet.Table{
		Columns: []string{"producto", "EXTRA"},
		Rows:    [][]string{{"Gorra", "1"}},
	}
	if _, err := store.Write(context.Background(), core.SheetOrders, legacy, 0); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, store)
	ctx := context.Background()

	snap, err := h.svc.Snapshot(ctx, core.SheetOrders)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Persist(ctx, core.SheetOrders, snap); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	after, err := h.svc.Snapshot(ctx, core.SheetOrders)
	if err != nil {
		t.Fatal(err)
	}
	if !sheet.Equal(after.Table, legacy) {
		t.Errorf("table changed by persisting an unmodified snapshot: %+v", after.Table)
	}

	if _, err := h.svc.Persist(ctx, core.SheetOrders, snap); !errors.Is(err, sheet.ErrVersionConflict) {
		t.Errorf("persisting a stale snapshot: error = %v, want ErrVersionConflict", err)
	}
}

func TestExportWorkbook(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	h.submit(t, workedExample())

	var buf bytes.Buffer
	if err := h.svc.ExportWorkbook(context.Background(), &buf); err != nil {
		t.Fatalf("ExportWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	got := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		got[name] = true
	}
	for _, want := range []string{core.SheetOrders, core.SheetInventory, core.SheetHistory} {
		if !got[want] {
			t.Errorf("export is missing sheet %q (has %v)", want, f.GetSheetList())
		}
	}

	product, err := f.GetCellValue(core.SheetOrders, "B2")
	if err != nil {
		t.Fatal(err)
	}
	if product != "Sudadera" {
		t.Errorf("B2 = %q, want Sudadera", product)
	}
}

// ----------------------------------------------------------------------------
// History and maintenance
// ----------------------------------------------------------------------------

func TestHistory_RecordsMutations(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := core.ContextWithClient(context.Background(), "203.0.113.7", "test-agent")

	if _, err := h.svc.SubmitOrder(ctx, workedExample()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.SetPaymentStatus(ctx, h.orders(t).Version, 0, "Pagado"); err != nil {
		t.Fatal(err)
	}

	entries, err := h.svc.GetAuditLog(ctx, core.AuditLogFilter{Sheet: core.SheetOrders})
	if err != nil {
		t.Fatal(err)
	}
	// Newest first: received snap, status change, create.
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}

	wantActions := []core.AuditAction{core.ActionCellEdit, core.ActionStatusChange, core.ActionOrderCreate}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Errorf("entry %d action = %q, want %q", i, entries[i].Action, want)
		}
	}

	status := entries[1]
	if status.OldValue != string(core.StatusOwed) || status.NewValue != string(core.StatusPaid) {
		t.Errorf("status change %q -> %q", status.OldValue, status.NewValue)
	}
	if status.Row != 0 || status.IPAddress != "203.0.113.7" || status.UserAgent != "test-agent" {
		t.Errorf("status entry = %+v", status)
	}

	byID, err := h.svc.GetAuditLogByID(ctx, status.ID)
	if err != nil || byID.Action != core.ActionStatusChange {
		t.Errorf("GetAuditLogByID = %+v, %v", byID, err)
	}
}

func TestExportAuditCSV(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx := context.Background()

	h.submit(t, workedExample())
	if _, err := h.svc.AddInventoryItem(ctx, core.InventoryInput{Product: "Gorra", Store: "Nike", Quantity: dec("1")}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := h.svc.ExportAuditCSV(ctx, &buf, core.AuditLogFilter{Sheet: core.SheetOrders, Limit: 1, Offset: 5}); err != nil {
		t.Fatalf("ExportAuditCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	// Header plus the order entry; paging is ignored and the sheet filter applies.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(records), records)
	}
	if records[0][0] != "ID" || records[1][2] != string(core.ActionOrderCreate) || records[1][4] != core.SheetOrders {
		t.Errorf("records = %v", records)
	}
	if records[1][5] != "1" {
		t.Errorf("row = %q, want 1", records[1][5])
	}
}

func TestStartScheduler_RefreshesRate(t *testing.T) {
	h := newHarness(t, sheet.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.svc.StartScheduler(ctx, core.SchedulerConfig{RefreshInterval: 10 * time.Millisecond})
		close(done)
	}()

	deadline := time.After(time.Second)
	for h.rates.refreshes.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("refreshes = %d after 1s", h.rates.refreshes.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
