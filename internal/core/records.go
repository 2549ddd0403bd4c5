package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ArmandoRuiz13/registro/internal/pricing"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// PaymentStatus is the collection state of an order.
type PaymentStatus string

const (
	StatusOwed    PaymentStatus = "Owed"
	StatusPartial PaymentStatus = "Partially-Paid"
	StatusPaid    PaymentStatus = "Paid"
)

// PaymentStatuses lists the statuses in workflow order.
var PaymentStatuses = []PaymentStatus{StatusOwed, StatusPartial, StatusPaid}

var statusAliases = map[string]PaymentStatus{
	"owed":           StatusOwed,
	"debe":           StatusOwed,
	"partially-paid": StatusPartial,
	"partially paid": StatusPartial,
	"partial":        StatusPartial,
	"abonado":        StatusPartial,
	"paid":           StatusPaid,
	"pagado":         StatusPaid,
}

// ParsePaymentStatus accepts the canonical names and their Spanish aliases,
// case-insensitively. An empty cell means Owed.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	key := strings.ToLower(CleanCell(s))
	if key == "" {
		return StatusOwed, nil
	}
	if st, ok := statusAliases[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// NormalizeStatus returns the canonical form of s, or s unchanged if unknown.
func NormalizeStatus(s string) string {
	st, err := ParsePaymentStatus(s)
	if err != nil {
		return s
	}
	return string(st)
}

// Order is one row of the orders sheet.
type Order struct {
	Row            int             `json:"row"`
	RegisteredAt   string          `json:"registered_at"`
	Product        string          `json:"product"`
	Store          string          `json:"store"`
	GrossCost      decimal.Decimal `json:"gross_cost"`
	TaxCost        decimal.Decimal `json:"tax_cost"`
	EquivalentCost decimal.Decimal `json:"equivalent_cost"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	Commission     decimal.Decimal `json:"commission"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Profit         decimal.Decimal `json:"profit"`
	WeekRange      string          `json:"week_range"`
	Status         PaymentStatus   `json:"status"`
	Received       decimal.Decimal `json:"received"`
}

// Outstanding is what the customer still owes, never negative. A Paid
// order owes nothing whatever amount the paid snap recorded.
func (o Order) Outstanding() decimal.Decimal {
	if o.Status == StatusPaid {
		return decimal.Zero
	}
	d := o.SalePrice.Sub(o.Received)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// newOrder builds the row for a freshly computed order.
func newOrder(registeredAt, product, store string, in pricing.Input, res pricing.Result) Order {
	return Order{
		RegisteredAt:   registeredAt,
		Product:        product,
		Store:          store,
		GrossCost:      in.GrossCost,
		TaxCost:        res.TaxCost,
		EquivalentCost: res.EquivalentCost,
		ExchangeRate:   in.ExchangeRate,
		Commission:     res.Commission,
		TotalCost:      res.TotalCost,
		SalePrice:      in.SalePrice,
		Profit:         res.Profit,
		WeekRange:      res.WeekRange,
		Status:         StatusOwed,
		Received:       decimal.Zero,
	}
}

func (o Order) cells() map[string]string {
	return map[string]string{
		ColRegisteredAt: o.RegisteredAt,
		ColProduct:      o.Product,
		ColStore:        o.Store,
		ColGrossUSD:     FormatNumber(o.GrossCost),
		ColTaxUSD:       FormatNumber(o.TaxCost),
		ColEquivUSD:     FormatNumber(o.EquivalentCost),
		ColRate:         FormatNumber(o.ExchangeRate),
		ColCommission:   FormatNumber(o.Commission),
		ColTotalCost:    FormatNumber(o.TotalCost),
		ColSale:         FormatNumber(o.SalePrice),
		ColProfit:       FormatNumber(o.Profit),
		ColWeek:         o.WeekRange,
		ColStatus:       string(o.Status),
		ColReceived:     FormatNumber(o.Received),
	}
}

// orderAt decodes row i of a normalized orders table.
// Unknown statuses read as Owed so one bad cell does not hide the sheet.
func orderAt(t sheet.Table, i int) Order {
	status, err := ParsePaymentStatus(t.Cell(i, ColStatus))
	if err != nil {
		status = StatusOwed
	}
	return Order{
		Row:            i,
		RegisteredAt:   t.Cell(i, ColRegisteredAt),
		Product:        t.Cell(i, ColProduct),
		Store:          t.Cell(i, ColStore),
		GrossCost:      ParseNumber(t.Cell(i, ColGrossUSD)),
		TaxCost:        ParseNumber(t.Cell(i, ColTaxUSD)),
		EquivalentCost: ParseNumber(t.Cell(i, ColEquivUSD)),
		ExchangeRate:   ParseNumber(t.Cell(i, ColRate)),
		Commission:     ParseNumber(t.Cell(i, ColCommission)),
		TotalCost:      ParseNumber(t.Cell(i, ColTotalCost)),
		SalePrice:      ParseNumber(t.Cell(i, ColSale)),
		Profit:         ParseNumber(t.Cell(i, ColProfit)),
		WeekRange:      t.Cell(i, ColWeek),
		Status:         status,
		Received:       ParseNumber(t.Cell(i, ColReceived)),
	}
}

// InventoryItem is one row of the inventory sheet.
type InventoryItem struct {
	Row       int             `json:"row"`
	Product   string          `json:"product"`
	Store     string          `json:"store"`
	CostPrice decimal.Decimal `json:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Quantity  decimal.Decimal `json:"quantity"`
	Sold      decimal.Decimal `json:"sold"`
}

// Available is the stock left: quantity minus units sold.
func (it InventoryItem) Available() decimal.Decimal {
	return it.Quantity.Sub(it.Sold)
}

// Revenue is units sold times sale price.
func (it InventoryItem) Revenue() decimal.Decimal {
	return it.Sold.Mul(it.SalePrice)
}

// Profit is the realised margin on units sold.
func (it InventoryItem) Profit() decimal.Decimal {
	return it.SalePrice.Sub(it.CostPrice).Mul(it.Sold)
}

// StockValue is what the unsold units cost.
func (it InventoryItem) StockValue() decimal.Decimal {
	return it.Available().Mul(it.CostPrice)
}

func (it InventoryItem) cells() map[string]string {
	return map[string]string{
		ColItemProduct: it.Product,
		ColItemStore:   it.Store,
		ColItemCost:    FormatNumber(it.CostPrice),
		ColItemSale:    FormatNumber(it.SalePrice),
		ColItemColor:   it.Color,
		ColItemSize:    it.Size,
		ColItemQty:     FormatNumber(it.Quantity),
		ColItemSold:    FormatNumber(it.Sold),
	}
}

func itemAt(t sheet.Table, i int) InventoryItem {
	return InventoryItem{
		Row:       i,
		Product:   t.Cell(i, ColItemProduct),
		Store:     t.Cell(i, ColItemStore),
		CostPrice: ParseNumber(t.Cell(i, ColItemCost)),
		SalePrice: ParseNumber(t.Cell(i, ColItemSale)),
		Color:     t.Cell(i, ColItemColor),
		Size:      t.Cell(i, ColItemSize),
		Quantity:  ParseNumber(t.Cell(i, ColItemQty)),
		Sold:      ParseNumber(t.Cell(i, ColItemSold)),
	}
}

// rowFor lays values out in the column order of t. Columns without a value
// are left empty.
func rowFor(t sheet.Table, values map[string]string) []string {
	row := make([]string, len(t.Columns))
	for c, name := range t.Columns {
		row[c] = values[name]
	}
	return row
}
