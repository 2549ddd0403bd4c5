package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ArmandoRuiz13/registro/internal/core"
)

// handleRate returns the current USD/MXN quote. ?refresh=1 bypasses the cache.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" {
		writeJSON(w, http.StatusOK, s.service.RefreshRate(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, s.service.Rate(r.Context()))
}

// handleQuote computes an order without saving it.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var in core.OrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	quote, err := s.service.QuoteOrder(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// handleListOrders returns the orders with their weekly summaries.
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ListOrders(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreateOrder appends an order.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var in core.OrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	order, err := s.service.SubmitOrder(ctx, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// handleEditOrders applies a batch of cell edits.
func (s *Server) handleEditOrders(w http.ResponseWriter, r *http.Request) {
	var edit core.GridEdit
	if err := decodeJSON(w, r, &edit); err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	snap, err := s.service.EditOrders(ctx, edit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// statusRequest moves one order to a payment status.
type statusRequest struct {
	Version int64  `json:"version"`
	Row     int    `json:"row"`
	Status  string `json:"status"`
}

// handleSetStatus changes the payment status of one order.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	snap, err := s.service.SetPaymentStatus(ctx, req.Version, req.Row, req.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleListInventory returns the inventory with its statistics.
func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ListInventory(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreateItem appends an inventory item.
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in core.InventoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	item, err := s.service.AddInventoryItem(ctx, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// inventoryGridRequest replaces the inventory.
type inventoryGridRequest struct {
	Version int64                `json:"version"`
	Items   []core.InventoryItem `json:"items"`
}

// handleSaveInventory replaces the inventory with the items in the body.
func (s *Server) handleSaveInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryGridRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := WithRequestMetadata(r.Context(), r)
	snap, err := s.service.SaveInventoryGrid(ctx, req.Version, req.Items)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// deleteRequest names the row to delete in the sheet version seen.
type deleteRequest struct {
	Version int64 `json:"version"`
	Row     int   `json:"row"`
}

// handleAPIDeleteRequest captures a row for deletion and returns the token.
func (s *Server) handleAPIDeleteRequest(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	pending, err := s.service.RequestDelete(r.Context(), def.Info.Key, req.Version, req.Row)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

// handleAPIPendingDelete returns the pending deletion for a token.
func (s *Server) handleAPIPendingDelete(w http.ResponseWriter, r *http.Request) {
	pending, err := s.service.GetPendingDelete(chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

// handleAPIConfirmDelete deletes the row captured by a token.
func (s *Server) handleAPIConfirmDelete(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	snap, err := s.service.ConfirmDelete(ctx, chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleAPICancelDelete discards a token.
func (s *Server) handleAPICancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelDelete(chi.URLParam(r, "token")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
