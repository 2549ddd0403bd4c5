package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// InventoryStats summarises the inventory sheet.
type InventoryStats struct {
	InStock    decimal.Decimal `json:"in_stock"`   // pieces available
	Sales      decimal.Decimal `json:"sales"`      // sold units times sale price
	Profit     decimal.Decimal `json:"profit"`     // realised margin on sold units
	Investment decimal.Decimal `json:"investment"` // cost of the pieces still in stock
}

// InventoryView is everything the inventory page shows.
type InventoryView struct {
	Version int64           `json:"version"`
	Table   sheet.Table     `json:"table"`
	Items   []InventoryItem `json:"items"`
	Stats   InventoryStats  `json:"stats"`
}

// AddInventoryItem validates an item and appends it to the inventory sheet.
func (s *Service) AddInventoryItem(ctx context.Context, in InventoryInput) (InventoryItem, error) {
	if err := Validate(in); err != nil {
		return InventoryItem{}, err
	}
	def, err := Lookup(SheetInventory)
	if err != nil {
		return InventoryItem{}, err
	}

	item := InventoryItem{
		Product:   strings.TrimSpace(in.Product),
		Store:     in.StoreName(),
		CostPrice: in.CostPrice,
		SalePrice: in.SalePrice,
		Color:     strings.TrimSpace(in.Color),
		Size:      in.SizeName(),
		Quantity:  in.Quantity,
		Sold:      in.Sold,
	}

	snap, err := s.mutate(ctx, def, anyVersion, func(t sheet.Table) (sheet.Table, error) {
		return sheet.Append(t, rowFor(t, item.cells())), nil
	})
	if err != nil {
		return InventoryItem{}, err
	}
	item.Row = snap.Table.Len() - 1

	s.logAudit(ctx, AuditLogParams{
		Action: ActionItemCreate,
		Sheet:  SheetInventory,
		Row:    item.Row,
		Detail: fmt.Sprintf("%s (%s), %s pzs", item.Product, item.Store, FormatNumber(item.Quantity)),
	})
	return item, nil
}

// ListInventory reads the inventory sheet with its statistics.
func (s *Service) ListInventory(ctx context.Context) (InventoryView, error) {
	def, err := Lookup(SheetInventory)
	if err != nil {
		return InventoryView{}, err
	}
	snap, err := s.store.Read(ctx, def.Info.Key)
	if err != nil {
		return InventoryView{}, fmt.Errorf("read %s: %w", def.Info.Key, err)
	}

	t := Normalize(def, snap.Table)
	items := make([]InventoryItem, t.Len())
	for i := range t.Rows {
		items[i] = itemAt(t, i)
	}

	return InventoryView{
		Version: snap.Version,
		Table:   t,
		Items:   items,
		Stats:   inventoryStats(items),
	}, nil
}

func inventoryStats(items []InventoryItem) InventoryStats {
	var st InventoryStats
	for _, it := range items {
		st.InStock = st.InStock.Add(it.Available())
		st.Sales = st.Sales.Add(it.Revenue())
		st.Profit = st.Profit.Add(it.Profit())
		st.Investment = st.Investment.Add(it.StockValue())
	}
	return st
}

// SaveInventoryGrid replaces the inventory sheet with items, as edited in
// the grid rendered from version. Rows may have been added or removed.
// Items without a product name are dropped, and only the stored columns are
// written.
func (s *Service) SaveInventoryGrid(ctx context.Context, version int64, items []InventoryItem) (sheet.Snapshot, error) {
	def, err := Lookup(SheetInventory)
	if err != nil {
		return sheet.Snapshot{}, err
	}

	var kept int
	snap, err := s.mutate(ctx, def, version, func(current sheet.Table) (sheet.Table, error) {
		t := sheet.Table{Columns: Canonical(def, current).Columns}
		for _, it := range items {
			it.Product = strings.TrimSpace(it.Product)
			if it.Product == "" {
				continue
			}
			t.Rows = append(t.Rows, rowFor(t, it.cells()))
		}
		kept = t.Len()
		return t, nil
	})
	if err != nil {
		return sheet.Snapshot{}, err
	}

	s.logAudit(ctx, AuditLogParams{
		Action: ActionGridSave,
		Sheet:  SheetInventory,
		Row:    noRow,
		Detail: fmt.Sprintf("%d rows", kept),
	})
	return snap, nil
}
