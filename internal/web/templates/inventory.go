package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ArmandoRuiz13/registro/internal/core"
)

// InventoryForm holds the add-item form as typed.
type InventoryForm struct {
	Product     string
	Store       string
	CustomStore string
	CostPrice   string
	SalePrice   string
	Color       string
	Size        string
	CustomSize  string
	Quantity    string
	Sold        string
}

// InventoryParams is everything the inventory page renders.
type InventoryParams struct {
	Format    Format
	View      core.InventoryView
	Form      InventoryForm
	Stores    []string
	Sizes     []string
	BlankRows int // empty grid rows offered for new items
}

// Inventory grid field names, shared with the handler that parses the grid.
const (
	GridProduct  = "product"
	GridStore    = "store"
	GridCost     = "cost"
	GridSale     = "sale"
	GridColor    = "color"
	GridSize     = "size"
	GridQuantity = "quantity"
	GridSold     = "sold"
	GridRemove   = "remove"
)

// InventoryGridFields lists the editable grid fields in column order.
var InventoryGridFields = []string{GridProduct, GridStore, GridCost, GridSale, GridColor, GridSize, GridQuantity, GridSold}

// GridName is the form field name of one inventory grid cell.
func GridName(row int, field string) string {
	return "r." + strconv.Itoa(row) + "." + field
}

// InventoryPage renders the statistics, the add-item form and the inventory grid.
func InventoryPage(layout LayoutParams, p InventoryParams) templ.Component {
	return Layout(layout, inventoryBody(p))
}

func inventoryBody(p InventoryParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		f := p.Format
		st := p.View.Stats

		h.raw(`<section class="stats">`)
		stat := func(label, value string) {
			h.rawf(`<div class="stat"><span>%s</span><strong>%s</strong></div>`, esc(label), esc(value))
		}
		stat("Piezas en stock", f.Number(st.InStock))
		stat("Ventas totales", f.Money(st.Sales))
		stat("Ganancia realizada", f.Money(st.Profit))
		stat("Inversión en stock", f.Money(st.Investment))
		h.raw(`</section>`)

		itemForm(h, p)
		importForm(h, "/import/inventario")
		inventoryGrid(h, p)
		return h.err
	})
}

func itemForm(h *html, p InventoryParams) {
	h.raw(`<section><h2>Agregar producto</h2><form method="post" action="/inventario" class="form">`)
	input(h, "Producto", "product", p.Form.Product, "text")
	h.raw(`<label>Tienda `)
	selectBox(h, "store", p.Stores, p.Form.Store)
	h.raw(`</label>`)
	input(h, "Otra tienda", "custom_store", p.Form.CustomStore, "text")
	input(h, "Precio MXN", "cost_price", p.Form.CostPrice, "number")
	input(h, "Precio venta", "sale_price", p.Form.SalePrice, "number")
	input(h, "Color", "color", p.Form.Color, "text")
	h.raw(`<label>Talla `)
	selectBox(h, "size", p.Sizes, p.Form.Size)
	h.raw(`</label>`)
	input(h, "Otra talla", "custom_size", p.Form.CustomSize, "text")
	input(h, "Cantidad", "quantity", p.Form.Quantity, "number")
	input(h, "Vendidos", "sold", p.Form.Sold, "number")
	h.raw(`<button type="submit">Agregar</button></form></section>`)
}

func inventoryGrid(h *html, p InventoryParams) {
	f := p.Format
	items := p.View.Items
	version := strconv.FormatInt(p.View.Version, 10)
	total := len(items) + p.BlankRows

	h.raw(`<section><h2>Inventario</h2><form method="post" action="/inventario/grid" id="inventory-grid">`)
	h.rawf(`<input type="hidden" name="version" value="%s"><input type="hidden" name="rows" value="%d">`, version, total)
	h.raw(`<div class="grid"><table><thead><tr><th>#</th>`)
	for _, c := range []string{"Producto", "Tienda", "Precio MXN", "Precio Venta", "Color", "Talla", "Cantidad", "Vendidos", "Disponible", "Ventas", "Ganancia", "Quitar", ""} {
		h.rawf(`<th>%s</th>`, esc(c))
	}
	h.raw(`</tr></thead><tbody>`)

	for i := 0; i < total; i++ {
		var it core.InventoryItem
		existing := i < len(items)
		if existing {
			it = items[i]
		}
		values := map[string]string{
			GridProduct: it.Product,
			GridStore:   it.Store,
			GridColor:   it.Color,
			GridSize:    it.Size,
		}
		if existing {
			values[GridCost] = core.FormatNumber(it.CostPrice)
			values[GridSale] = core.FormatNumber(it.SalePrice)
			values[GridQuantity] = core.FormatNumber(it.Quantity)
			values[GridSold] = core.FormatNumber(it.Sold)
		}

		label := "+"
		if existing {
			label = strconv.Itoa(i + 1)
		}
		h.rawf(`<tr><td>%s</td>`, esc(label))
		for _, field := range InventoryGridFields {
			h.rawf(`<td><input name="%s" value="%s"></td>`, esc(GridName(i, field)), esc(values[field]))
		}
		if existing {
			h.rawf(`<td>%s</td><td>%s</td><td>%s</td>`,
				esc(f.Number(it.Available())), esc(f.Money(it.Revenue())), esc(f.Money(it.Profit())))
			h.rawf(`<td><input type="checkbox" name="%s" value="1"></td>`, esc(GridName(i, GridRemove)))
			h.rawf(`<td><button type="submit" form="delete-%d" class="danger">Eliminar</button></td>`, i)
		} else {
			h.raw(`<td></td><td></td><td></td><td></td><td></td>`)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table></div><button type="submit">Guardar inventario</button></form>`)

	for i := range items {
		h.rawf(`<form method="post" action="/inventario/delete" id="delete-%d">`, i)
		h.rawf(`<input type="hidden" name="version" value="%s"><input type="hidden" name="row" value="%d"></form>`, version, i)
	}
	h.raw(`</section>`)
}
