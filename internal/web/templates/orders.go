package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/exchange"
)

// OrderForm holds the order form as typed, so it can be shown again after
// a failed submit.
type OrderForm struct {
	Product      string
	Store        string
	CustomStore  string
	GrossCost    string
	SalePrice    string
	ExchangeRate string
}

// OrdersParams is everything the orders page renders.
type OrdersParams struct {
	Format   Format
	View     core.OrderView
	Rate     exchange.Quote
	Form     OrderForm
	Quote    *core.OrderQuote
	Stores   []string
	Statuses []string
}

// OrdersPage renders the order form, the live quote, the weekly summary and
// the editable orders grid.
func OrdersPage(layout LayoutParams, p OrdersParams) templ.Component {
	return Layout(layout, ordersBody(p))
}

func ordersBody(p OrdersParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		f := p.Format

		h.rawf(`<p class="rate">Tipo de cambio USD/MXN: <strong>%s</strong> <small>(%s)</small>`,
			esc(f.Number(p.Rate.Rate)), esc(p.Rate.Source))
		if p.Rate.Fallback {
			h.raw(` <span class="warn">No se pudo consultar el tipo de cambio; se usa el valor de respaldo.</span>`)
		}
		h.raw(`</p>`)

		orderForm(h, p)
		if p.Quote != nil {
			quoteTable(h, f, *p.Quote)
		}
		importForm(h, "/import/orders")
		weekTable(h, f, p.View)
		ordersGrid(h, p)

		h.raw(`<p><a href="/api/export">Descargar libro (.xlsx)</a></p>`)
		return h.err
	})
}

func orderForm(h *html, p OrdersParams) {
	h.raw(`<section><h2>Nuevo pedido</h2><form method="post" action="/orders" class="form">`)
	input(h, "Producto", "product", p.Form.Product, "text")
	h.raw(`<label>Tienda `)
	selectBox(h, "store", p.Stores, p.Form.Store)
	h.raw(`</label>`)
	input(h, "Otra tienda", "custom_store", p.Form.CustomStore, "text")
	input(h, "USD bruto", "gross_cost", p.Form.GrossCost, "number")
	input(h, "Venta MXN", "sale_price", p.Form.SalePrice, "number")
	input(h, "TC manual (opcional)", "exchange_rate", p.Form.ExchangeRate, "number")
	h.raw(`<button type="submit" formaction="/orders/quote">Calcular</button>`)
	h.raw(`<button type="submit">Registrar</button></form></section>`)
}

func quoteTable(h *html, f Format, q core.OrderQuote) {
	h.raw(`<section class="quote"><h2>Cálculo</h2>`)
	if !q.Ready {
		h.raw(`<p>Captura el costo en USD para calcular.</p></section>`)
		return
	}
	rows := []struct{ label, value string }{
		{"USD con 8.25%", f.Number(q.Result.TaxCost)},
		{"Tipo de cambio", f.Number(q.Input.ExchangeRate) + " (" + q.Quote.Source + ")"},
		{"Comisión pagada", f.Money(q.Result.Commission)},
		{"Costo total", f.Money(q.Result.TotalCost)},
		{"Venta", f.Money(q.Input.SalePrice)},
		{"Ganancia", f.Money(q.Result.Profit)},
		{"USD final equivalente", f.Number(q.Result.EquivalentCost)},
		{"Semana", q.Result.WeekRange},
	}
	h.raw(`<table>`)
	for _, r := range rows {
		h.rawf(`<tr><th>%s</th><td>%s</td></tr>`, esc(r.label), esc(r.value))
	}
	h.raw(`</table></section>`)
}

func weekTable(h *html, f Format, v core.OrderView) {
	h.raw(`<section><h2>Resumen semanal</h2><table class="summary"><thead><tr>`)
	for _, c := range []string{"Semana", "Pedidos", "Costo", "Ventas", "Ganancia", "Recibido", "Pendiente"} {
		h.rawf(`<th>%s</th>`, esc(c))
	}
	h.raw(`</tr></thead><tbody>`)
	row := func(ws core.WeekSummary, class string) {
		h.rawf(`<tr%s><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			class, esc(ws.Week), esc(f.Count(ws.Orders)), esc(f.Money(ws.Cost)), esc(f.Money(ws.Sales)),
			esc(f.Money(ws.Profit)), esc(f.Money(ws.Received)), esc(f.Money(ws.Outstanding)))
	}
	for _, ws := range v.Weeks {
		row(ws, "")
	}
	row(v.Totals, ` class="total"`)
	h.raw(`</tbody></table></section>`)
}

func ordersGrid(h *html, p OrdersParams) {
	t := p.View.Table
	version := strconv.FormatInt(p.View.Version, 10)

	h.raw(`<section><h2>Pedidos</h2>`)
	if t.Len() == 0 {
		h.raw(`<p>Sin pedidos registrados.</p></section>`)
		return
	}

	h.raw(`<form method="post" action="/orders/grid" id="orders-grid">`)
	h.rawf(`<input type="hidden" name="version" value="%s">`, version)
	h.raw(`<div class="grid"><table><thead><tr><th>#</th>`)
	for _, c := range t.Columns {
		h.rawf(`<th>%s</th>`, esc(c))
	}
	h.raw(`<th></th></tr></thead><tbody>`)

	for i, row := range t.Rows {
		h.rawf(`<tr><td>%d</td>`, i+1)
		for c, col := range t.Columns {
			name := "c." + strconv.Itoa(i) + "." + strconv.Itoa(c)
			h.raw(`<td>`)
			if col == core.ColStatus {
				selectBox(h, name, p.Statuses, core.NormalizeStatus(row[c]))
			} else {
				h.rawf(`<input name="%s" value="%s">`, esc(name), esc(row[c]))
			}
			h.raw(`</td>`)
		}
		h.rawf(`<td><button type="submit" form="delete-%d" class="danger">Eliminar</button></td></tr>`, i)
	}
	h.raw(`</tbody></table></div><button type="submit">Guardar cambios</button></form>`)

	for i := range t.Rows {
		h.rawf(`<form method="post" action="/orders/delete" id="delete-%d">`, i)
		h.rawf(`<input type="hidden" name="version" value="%s"><input type="hidden" name="row" value="%d"></form>`, version, i)
	}
	h.raw(`</section>`)
}

func importForm(h *html, action string) {
	h.rawf(`<section><details><summary>Importar CSV</summary><form method="post" action="%s" enctype="multipart/form-data">`, esc(action))
	h.raw(`<input type="file" name="file" accept=".csv,text/csv" required>`)
	h.raw(`<button type="submit">Importar</button></form></details></section>`)
}
