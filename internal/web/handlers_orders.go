package web

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// handleOrdersPage renders the orders page.
func (s *Server) handleOrdersPage(w http.ResponseWriter, r *http.Request) {
	s.ordersPage(w, r, http.StatusOK, templates.OrderForm{Store: core.Stores[0]}, nil, nil)
}

// ordersPage renders the orders page with the form as typed, an optional
// quote and an optional error alert.
func (s *Server) ordersPage(w http.ResponseWriter, r *http.Request, status int, form templates.OrderForm, quote *core.OrderQuote, alert *templates.Alert) {
	view, err := s.service.ListOrders(r.Context())
	if err != nil && alert == nil {
		alert = alertFor(r, err)
		status = statusFor(err)
	}

	rate := s.service.Rate(r.Context())
	if quote != nil {
		rate = quote.Quote
	}

	layout := s.layout(r, "Ventas", "/")
	layout.Error = alert
	render(w, r, status, templates.OrdersPage(layout, templates.OrdersParams{
		Format:   s.format,
		View:     view,
		Rate:     rate,
		Form:     form,
		Quote:    quote,
		Stores:   core.Stores,
		Statuses: statusNames(),
	}))
}

func orderFormFromRequest(r *http.Request) templates.OrderForm {
	return templates.OrderForm{
		Product:      r.PostFormValue("product"),
		Store:        r.PostFormValue("store"),
		CustomStore:  r.PostFormValue("custom_store"),
		GrossCost:    r.PostFormValue("gross_cost"),
		SalePrice:    r.PostFormValue("sale_price"),
		ExchangeRate: r.PostFormValue("exchange_rate"),
	}
}

func orderInputFromRequest(r *http.Request) core.OrderInput {
	return core.OrderInput{
		Product:      strings.TrimSpace(r.PostFormValue("product")),
		Store:        r.PostFormValue("store"),
		CustomStore:  r.PostFormValue("custom_store"),
		GrossCost:    formDecimal(r, "gross_cost"),
		SalePrice:    formDecimal(r, "sale_price"),
		ExchangeRate: formDecimal(r, "exchange_rate"),
	}
}

// handleSubmitOrder appends the order in the form and redirects back.
func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errMalformed)
		return
	}
	form := orderFormFromRequest(r)

	ctx := WithRequestMetadata(r.Context(), r)
	order, err := s.service.SubmitOrder(ctx, orderInputFromRequest(r))
	if err != nil {
		s.ordersPage(w, r, statusFor(err), form, nil, alertFor(r, err))
		return
	}
	redirectFlash(w, r, "/", "Pedido registrado: "+order.Product)
}

// handleQuotePage recalculates the order in the form without saving it.
func (s *Server) handleQuotePage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errMalformed)
		return
	}
	form := orderFormFromRequest(r)

	quote, err := s.service.QuoteOrder(r.Context(), orderInputFromRequest(r))
	if err != nil {
		s.ordersPage(w, r, statusFor(err), form, nil, alertFor(r, err))
		return
	}
	s.ordersPage(w, r, http.StatusOK, form, &quote, nil)
}

// handleOrdersGrid saves the cells changed in the orders grid.
func (s *Server) handleOrdersGrid(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errMalformed)
		return
	}
	version, err := formVersion(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.ListOrders(r.Context())
	if err != nil {
		s.ordersPage(w, r, statusFor(err), templates.OrderForm{}, nil, alertFor(r, err))
		return
	}
	if view.Version != version {
		s.ordersPage(w, r, http.StatusConflict, templates.OrderForm{}, nil, alertFor(r, sheet.ErrVersionConflict))
		return
	}

	edits := gridEdits(r, view.Table)
	if len(edits) == 0 {
		redirectFlash(w, r, "/", "Sin cambios")
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.EditOrders(ctx, core.GridEdit{Version: version, Edits: edits}); err != nil {
		s.ordersPage(w, r, statusFor(err), templates.OrderForm{}, nil, alertFor(r, err))
		return
	}
	redirectFlash(w, r, "/", strconv.Itoa(len(edits))+" celdas guardadas")
}

// gridEdits diffs the submitted grid cells, named c.{row}.{col}, against
// the table the grid was rendered from.
func gridEdits(r *http.Request, t sheet.Table) []core.CellEdit {
	var edits []core.CellEdit
	for key, values := range r.PostForm {
		parts := strings.Split(key, ".")
		if len(parts) != 3 || parts[0] != "c" || len(values) == 0 {
			continue
		}
		row, err1 := strconv.Atoi(parts[1])
		col, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || row < 0 || row >= t.Len() || col < 0 || col >= len(t.Columns) {
			continue
		}

		value := values[0]
		current := t.Cell(row, t.Columns[col])
		if t.Columns[col] == core.ColStatus {
			current = core.NormalizeStatus(current)
		}
		if value == current {
			continue
		}
		edits = append(edits, core.CellEdit{Row: row, Column: t.Columns[col], Value: value})
	}

	colIndex := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		colIndex[c] = i
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Row != edits[j].Row {
			return edits[i].Row < edits[j].Row
		}
		return colIndex[edits[i].Column] < colIndex[edits[j].Column]
	})
	return edits
}
