package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArmandoRuiz13/registro/internal/exchange"
	"github.com/ArmandoRuiz13/registro/internal/pricing"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// OrderQuote is the live preview shown next to the order form.
type OrderQuote struct {
	Input  pricing.Input  `json:"input"`
	Result pricing.Result `json:"result"`
	Quote  exchange.Quote `json:"quote"`

	// Ready is false until a gross cost has been entered.
	Ready bool `json:"ready"`
}

// QuoteOrder computes the derived order fields without saving anything.
// A positive ExchangeRate on the input overrides the live quote.
func (s *Service) QuoteOrder(ctx context.Context, in OrderInput) (OrderQuote, error) {
	if err := validateAmounts(in); err != nil {
		return OrderQuote{}, err
	}

	quote := s.quoteFor(ctx, in.ExchangeRate)
	input := pricing.Input{
		GrossCost:    in.GrossCost,
		ExchangeRate: quote.Rate,
		SalePrice:    in.SalePrice,
	}

	return OrderQuote{
		Input:  input,
		Result: s.calc.Compute(input),
		Quote:  quote,
		Ready:  pricing.Ready(input),
	}, nil
}

// SubmitOrder validates and computes an order and appends it to the orders
// sheet. A concurrent write is resolved by re-applying the append.
func (s *Service) SubmitOrder(ctx context.Context, in OrderInput) (Order, error) {
	if err := Validate(in); err != nil {
		return Order{}, err
	}
	def, err := Lookup(SheetOrders)
	if err != nil {
		return Order{}, err
	}

	quote := s.quoteFor(ctx, in.ExchangeRate)
	input := pricing.Input{
		GrossCost:    in.GrossCost,
		ExchangeRate: quote.Rate,
		SalePrice:    in.SalePrice,
	}
	order := newOrder(FormatTimestamp(s.now()), strings.TrimSpace(in.Product), in.StoreName(), input, s.calc.Compute(input))

	snap, err := s.mutate(ctx, def, anyVersion, func(t sheet.Table) (sheet.Table, error) {
		return sheet.Append(t, rowFor(t, order.cells())), nil
	})
	if err != nil {
		return Order{}, err
	}
	order.Row = snap.Table.Len() - 1

	s.logAudit(ctx, AuditLogParams{
		Action: ActionOrderCreate,
		Sheet:  SheetOrders,
		Row:    order.Row,
		Detail: fmt.Sprintf("%s (%s), venta %s", order.Product, order.Store, FormatNumber(order.SalePrice)),
	})
	return order, nil
}

// quoteFor returns the manual rate when positive, else the live quote.
func (s *Service) quoteFor(ctx context.Context, manual decimal.Decimal) exchange.Quote {
	if manual.GreaterThan(decimal.Zero) {
		return exchange.Quote{Rate: manual, Source: "manual", FetchedAt: s.now()}
	}
	return s.rates.Rate(ctx)
}

// validateAmounts checks only the numeric fields, so a half-filled form can
// still be previewed.
func validateAmounts(in OrderInput) error {
	fields := make(map[string]string)
	if in.GrossCost.IsNegative() {
		fields["GrossCost"] = fieldMessage(fieldLabels["GrossCost"], "gte", "0")
	}
	if in.SalePrice.IsNegative() {
		fields["SalePrice"] = fieldMessage(fieldLabels["SalePrice"], "gte", "0")
	}
	if in.ExchangeRate.IsNegative() {
		fields["ExchangeRate"] = fieldMessage(fieldLabels["ExchangeRate"], "gte", "0")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// WeekSummary aggregates the orders of one week range.
type WeekSummary struct {
	Week        string          `json:"week"`
	Start       time.Time       `json:"start"`
	Orders      int             `json:"orders"`
	Cost        decimal.Decimal `json:"cost"`
	Sales       decimal.Decimal `json:"sales"`
	Profit      decimal.Decimal `json:"profit"`
	Received    decimal.Decimal `json:"received"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func (w *WeekSummary) add(o Order) {
	w.Orders++
	w.Cost = w.Cost.Add(o.TotalCost)
	w.Sales = w.Sales.Add(o.SalePrice)
	w.Profit = w.Profit.Add(o.Profit)
	w.Received = w.Received.Add(o.Received)
	w.Outstanding = w.Outstanding.Add(o.Outstanding())
}

// OrderView is everything the orders page shows.
type OrderView struct {
	Version int64         `json:"version"`
	Table   sheet.Table   `json:"table"`
	Orders  []Order       `json:"orders"`
	Weeks   []WeekSummary `json:"weeks"`
	Totals  WeekSummary   `json:"totals"`
}

// ListOrders reads the orders sheet with weekly summaries, newest week first.
func (s *Service) ListOrders(ctx context.Context) (OrderView, error) {
	def, err := Lookup(SheetOrders)
	if err != nil {
		return OrderView{}, err
	}
	snap, err := s.store.Read(ctx, def.Info.Key)
	if err != nil {
		return OrderView{}, fmt.Errorf("read %s: %w", def.Info.Key, err)
	}

	t := Normalize(def, snap.Table)
	view := OrderView{
		Version: snap.Version,
		Table:   t,
		Orders:  make([]Order, t.Len()),
		Totals:  WeekSummary{Week: "Total"},
	}

	byWeek := make(map[string]*WeekSummary)
	for i := range t.Rows {
		o := orderAt(t, i)
		view.Orders[i] = o
		view.Totals.add(o)

		w, ok := byWeek[o.WeekRange]
		if !ok {
			w = &WeekSummary{Week: o.WeekRange}
			w.Start, _ = pricing.ParseWeekRange(o.WeekRange)
			byWeek[o.WeekRange] = w
		}
		w.add(o)
	}

	view.Weeks = make([]WeekSummary, 0, len(byWeek))
	for _, w := range byWeek {
		view.Weeks = append(view.Weeks, *w)
	}
	sort.Slice(view.Weeks, func(i, j int) bool {
		a, b := view.Weeks[i], view.Weeks[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.After(b.Start)
		}
		return a.Week < b.Week
	})
	return view, nil
}

// CellEdit sets one cell. Row is the 0-based data row index.
type CellEdit struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// GridEdit is a batch of cell edits made on the grid rendered from Version.
type GridEdit struct {
	Version int64      `json:"version"`
	Edits   []CellEdit `json:"edits"`
}

// EditOrders applies a batch of grid edits to the orders sheet. It fails
// with sheet.ErrVersionConflict if the sheet changed since the grid was
// rendered. Every column may be overwritten; an order entering Paid has its
// received amount set by the paid snap policy.
func (s *Service) EditOrders(ctx context.Context, edit GridEdit) (sheet.Snapshot, error) {
	def, err := Lookup(SheetOrders)
	if err != nil {
		return sheet.Snapshot{}, err
	}

	var changes []CellChange
	snap, err := s.mutate(ctx, def, edit.Version, func(t sheet.Table) (sheet.Table, error) {
		changes = changes[:0]
		return s.applyOrderEdits(def, t, edit.Edits, &changes)
	})
	if err != nil {
		return sheet.Snapshot{}, err
	}

	s.recordCellEdits(ctx, SheetOrders, changes)
	return snap, nil
}

// SetPaymentStatus moves one order to status.
func (s *Service) SetPaymentStatus(ctx context.Context, version int64, row int, status string) (sheet.Snapshot, error) {
	return s.EditOrders(ctx, GridEdit{
		Version: version,
		Edits:   []CellEdit{{Row: row, Column: ColStatus, Value: status}},
	})
}

func (s *Service) applyOrderEdits(def SheetDefinition, t sheet.Table, edits []CellEdit, changes *[]CellChange) (sheet.Table, error) {
	// Status of each row before the batch touched it.
	before := make(map[int]PaymentStatus)

	for _, e := range edits {
		column, value, err := resolveEdit(def, t, e)
		if err != nil {
			return sheet.Table{}, err
		}

		old := t.Cell(e.Row, column)
		if _, seen := before[e.Row]; column == ColStatus && !seen {
			before[e.Row], _ = ParsePaymentStatus(old)
		}

		t, err = sheet.SetCell(t, e.Row, column, value)
		if err != nil {
			return sheet.Table{}, err
		}
		if old != value {
			*changes = append(*changes, CellChange{Row: e.Row, Column: column, OldValue: old, NewValue: value})
		}
	}

	rows := make([]int, 0, len(before))
	for row := range before {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	target := ColSale
	if s.paidSnap == SnapToTotal {
		target = ColTotalCost
	}
	for _, row := range rows {
		after, _ := ParsePaymentStatus(t.Cell(row, ColStatus))
		if before[row] == StatusPaid || after != StatusPaid {
			continue
		}

		old := t.Cell(row, ColReceived)
		value := NormalizeNumber(t.Cell(row, target))
		var err error
		t, err = sheet.SetCell(t, row, ColReceived, value)
		if err != nil {
			return sheet.Table{}, err
		}
		if old != value {
			*changes = append(*changes, CellChange{Row: row, Column: ColReceived, OldValue: old, NewValue: value})
		}
	}
	return t, nil
}

// resolveEdit maps the edited column to its stored name and applies the
// column's normalizer. Payment statuses must parse.
func resolveEdit(def SheetDefinition, t sheet.Table, e CellEdit) (string, string, error) {
	if e.Row < 0 || e.Row >= t.Len() {
		return "", "", fmt.Errorf("%w: %d of %d", sheet.ErrRowOutOfRange, e.Row, t.Len())
	}

	field, ok := def.Field(e.Column)
	if !ok {
		idx := t.Index(e.Column)
		if idx < 0 {
			return "", "", fmt.Errorf("%w: %q", sheet.ErrUnknownColumn, e.Column)
		}
		return t.Columns[idx], e.Value, nil
	}

	value := e.Value
	if field.Name == ColStatus {
		st, err := ParsePaymentStatus(value)
		if err != nil {
			return "", "", err
		}
		value = string(st)
	}
	if field.Normalizer != nil {
		value = field.Normalizer(value)
	}
	return field.Name, value, nil
}
