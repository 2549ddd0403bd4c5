package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// blankGridRows is how many empty rows the inventory grid offers for new items.
const blankGridRows = 3

// maxGridRows bounds the row count a grid form may claim.
const maxGridRows = 10000

// handleInventoryPage renders the inventory page.
func (s *Server) handleInventoryPage(w http.ResponseWriter, r *http.Request) {
	s.inventoryPage(w, r, http.StatusOK, templates.InventoryForm{Store: core.Stores[0], Size: core.Sizes[0]}, nil)
}

func (s *Server) inventoryPage(w http.ResponseWriter, r *http.Request, status int, form templates.InventoryForm, alert *templates.Alert) {
	view, err := s.service.ListInventory(r.Context())
	if err != nil && alert == nil {
		alert = alertFor(r, err)
		status = statusFor(err)
	}

	layout := s.layout(r, "Inventario", "/inventario")
	layout.Error = alert
	render(w, r, status, templates.InventoryPage(layout, templates.InventoryParams{
		Format:    s.format,
		View:      view,
		Form:      form,
		Stores:    core.Stores,
		Sizes:     core.Sizes,
		BlankRows: blankGridRows,
	}))
}

// handleAddItem appends the item in the form to the inventory.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errMalformed)
		return
	}
	form := templates.InventoryForm{
		Product:     r.PostFormValue("product"),
		Store:       r.PostFormValue("store"),
		CustomStore: r.PostFormValue("custom_store"),
		CostPrice:   r.PostFormValue("cost_price"),
		SalePrice:   r.PostFormValue("sale_price"),
		Color:       r.PostFormValue("color"),
		Size:        r.PostFormValue("size"),
		CustomSize:  r.PostFormValue("custom_size"),
		Quantity:    r.PostFormValue("quantity"),
		Sold:        r.PostFormValue("sold"),
	}
	in := core.InventoryInput{
		Product:     strings.TrimSpace(form.Product),
		Store:       form.Store,
		CustomStore: form.CustomStore,
		CostPrice:   formDecimal(r, "cost_price"),
		SalePrice:   formDecimal(r, "sale_price"),
		Color:       form.Color,
		Size:        form.Size,
		CustomSize:  form.CustomSize,
		Quantity:    formDecimal(r, "quantity"),
		Sold:        formDecimal(r, "sold"),
	}

	ctx := WithRequestMetadata(r.Context(), r)
	item, err := s.service.AddInventoryItem(ctx, in)
	if err != nil {
		s.inventoryPage(w, r, statusFor(err), form, alertFor(r, err))
		return
	}
	redirectFlash(w, r, "/inventario", "Producto agregado: "+item.Product)
}

// handleInventoryGrid saves the whole inventory grid. Rows marked for
// removal and rows without a product are dropped.
func (s *Server) handleInventoryGrid(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errMalformed)
		return
	}
	version, err := formVersion(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	items, err := gridItems(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.SaveInventoryGrid(ctx, version, items); err != nil {
		s.inventoryPage(w, r, statusFor(err), templates.InventoryForm{}, alertFor(r, err))
		return
	}
	redirectFlash(w, r, "/inventario", "Inventario guardado")
}

// gridItems reads the rows of the inventory grid form.
func gridItems(r *http.Request) ([]core.InventoryItem, error) {
	rows, err := strconv.Atoi(r.PostFormValue("rows"))
	if err != nil || rows < 0 || rows > maxGridRows {
		return nil, fmt.Errorf("%w: invalid row count", errMalformed)
	}

	items := make([]core.InventoryItem, 0, rows)
	for i := 0; i < rows; i++ {
		field := func(name string) string {
			return r.PostFormValue(templates.GridName(i, name))
		}
		if field(templates.GridRemove) != "" {
			continue
		}
		items = append(items, core.InventoryItem{
			Product:   field(templates.GridProduct),
			Store:     strings.TrimSpace(field(templates.GridStore)),
			CostPrice: core.ParseNumber(field(templates.GridCost)),
			SalePrice: core.ParseNumber(field(templates.GridSale)),
			Color:     strings.TrimSpace(field(templates.GridColor)),
			Size:      strings.TrimSpace(field(templates.GridSize)),
			Quantity:  core.ParseNumber(field(templates.GridQuantity)),
			Sold:      core.ParseNumber(field(templates.GridSold)),
		})
	}
	return items, nil
}
