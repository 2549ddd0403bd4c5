package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// Deleting a row takes two requests: the first captures the row and
// returns a confirmation token, the second confirms or cancels it.

// sheetPage re-renders the page of def with an error alert.
func (s *Server) sheetPage(w http.ResponseWriter, r *http.Request, def core.SheetDefinition, err error) {
	switch def.Info.Key {
	case core.SheetOrders:
		s.ordersPage(w, r, statusFor(err), templates.OrderForm{Store: core.Stores[0]}, nil, alertFor(r, err))
	case core.SheetInventory:
		s.inventoryPage(w, r, statusFor(err), templates.InventoryForm{Store: core.Stores[0], Size: core.Sizes[0]}, alertFor(r, err))
	default:
		layout := s.layout(r, def.Info.Label, def.Info.Path)
		layout.Error = alertFor(r, err)
		render(w, r, statusFor(err), templates.Layout(layout, nil))
	}
}

// handleDeleteRequest shows the confirmation page for deleting one row.
func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errMalformed)
		return
	}
	version, err := formVersion(r)
	if err != nil {
		s.sheetPage(w, r, def, err)
		return
	}
	row, err := formRow(r)
	if err != nil {
		s.sheetPage(w, r, def, err)
		return
	}

	pending, err := s.service.RequestDelete(r.Context(), def.Info.Key, version, row)
	if err != nil {
		s.sheetPage(w, r, def, err)
		return
	}

	render(w, r, http.StatusOK, templates.DeleteConfirmPage(
		s.layout(r, "Eliminar fila", def.Info.Path),
		templates.DeleteParams{Pending: pending, Base: sheetBase(def), Back: def.Info.Path},
	))
}

// pendingFor returns the pending deletion for the {token} parameter, which
// must belong to def.
func (s *Server) pendingFor(r *http.Request, def core.SheetDefinition) (core.PendingDelete, error) {
	pending, err := s.service.GetPendingDelete(chi.URLParam(r, "token"))
	if err != nil {
		return core.PendingDelete{}, err
	}
	if pending.Sheet != def.Info.Key {
		return core.PendingDelete{}, core.ErrPendingNotFound
	}
	return pending, nil
}

// handleDeleteConfirm deletes the row captured by the token.
func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	pending, err := s.pendingFor(r, def)
	if err != nil {
		s.sheetPage(w, r, def, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.ConfirmDelete(ctx, pending.Token); err != nil {
		s.sheetPage(w, r, def, err)
		return
	}
	redirectFlash(w, r, def.Info.Path, "Fila eliminada")
}

// handleDeleteCancel discards the token.
func (s *Server) handleDeleteCancel(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	pending, err := s.pendingFor(r, def)
	if err == nil {
		err = s.service.CancelDelete(pending.Token)
	}
	if err != nil {
		s.sheetPage(w, r, def, err)
		return
	}
	redirectFlash(w, r, def.Info.Path, "Eliminación cancelada")
}
