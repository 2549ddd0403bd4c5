// Package web provides HTTP handlers for the ledger.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// maxJSONBody caps API request bodies.
const maxJSONBody = 1 << 20

// errMalformed marks requests whose parameters or body could not be read.
var errMalformed = errors.New("malformed request")

// navSheets is the order of the navigation bar.
var navSheets = []string{core.SheetOrders, core.SheetInventory, core.SheetHistory}

// layout builds the page shell for the sheet page at path.
func (s *Server) layout(r *http.Request, title, path string) templates.LayoutParams {
	var nav []templates.NavItem
	for _, key := range navSheets {
		if def, ok := core.Get(key); ok {
			nav = append(nav, templates.NavItem{Label: def.Info.Label, Path: def.Info.Path})
		}
	}
	return templates.LayoutParams{
		Title:  title,
		Active: path,
		Nav:    nav,
		Flash:  r.URL.Query().Get("flash"),
	}
}

// render writes a full page with status.
func render(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render page", "path", r.URL.Path, "error", err)
	}
}

// resolveSheet finds the sheet named in the {sheet} URL parameter. Names
// match case-insensitively so /inventario and /api/Inventario both work.
func resolveSheet(r *http.Request) (core.SheetDefinition, error) {
	name := chi.URLParam(r, "sheet")
	if def, ok := lookupSheetName(name); ok {
		return def, nil
	}
	return core.Lookup(name)
}

// lookupSheetName matches name against the sheet keys ignoring case.
func lookupSheetName(name string) (core.SheetDefinition, bool) {
	for _, def := range core.All() {
		if strings.EqualFold(def.Info.Key, name) {
			return def, true
		}
	}
	return core.SheetDefinition{}, false
}

// sheetBase is the URL prefix of a sheet's page actions, e.g. /orders.
func sheetBase(def core.SheetDefinition) string {
	return "/" + strings.ToLower(def.Info.Key)
}

// redirectFlash sends the browser back to path with a flash message.
func redirectFlash(w http.ResponseWriter, r *http.Request, path, flash string) {
	http.Redirect(w, r, path+"?flash="+url.QueryEscape(flash), http.StatusSeeOther)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// formVersion reads the hidden version field of a grid form.
func formVersion(r *http.Request) (int64, error) {
	v, err := strconv.ParseInt(r.PostFormValue("version"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: missing sheet version", errMalformed)
	}
	return v, nil
}

// formRow reads a 0-based row index field.
func formRow(r *http.Request) (int, error) {
	row, err := strconv.Atoi(r.PostFormValue("row"))
	if err != nil || row < 0 {
		return 0, fmt.Errorf("%w: missing row", errMalformed)
	}
	return row, nil
}

// formDecimal reads a numeric form field the way sheet cells are read.
func formDecimal(r *http.Request, name string) decimal.Decimal {
	return core.ParseNumber(r.PostFormValue(name))
}

// decodeJSON decodes a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

// statusNames lists the payment statuses for select boxes.
func statusNames() []string {
	out := make([]string, len(core.PaymentStatuses))
	for i, st := range core.PaymentStatuses {
		out[i] = string(st)
	}
	return out
}
