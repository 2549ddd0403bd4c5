package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// historyPageSize is the number of entries per history page.
const historyPageSize = 50

// historyFilter reads the sheet, action and date range query parameters.
// Dates are inclusive days in the server's location.
func historyFilter(r *http.Request) (templates.HistoryFilter, core.AuditLogFilter) {
	q := r.URL.Query()
	form := templates.HistoryFilter{
		Sheet:  q.Get("sheet"),
		Action: q.Get("action"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	}

	filter := core.AuditLogFilter{
		Sheet:  form.Sheet,
		Action: core.AuditAction(form.Action),
	}
	if form.From != "" {
		if t, err := time.ParseInLocation("2006-01-02", form.From, time.Local); err == nil {
			filter.StartTime = t
		}
	}
	if form.To != "" {
		if t, err := time.ParseInLocation("2006-01-02", form.To, time.Local); err == nil {
			filter.EndTime = t.Add(24*time.Hour - time.Second)
		}
	}
	return form, filter
}

// handleHistoryPage renders the change journal with filtering and pagination.
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1)
	form, filter := historyFilter(r)
	filter.Limit = historyPageSize + 1
	filter.Offset = (page - 1) * historyPageSize

	layout := s.layout(r, "Historial", "/historial")
	status := http.StatusOK

	entries, err := s.service.GetAuditLog(r.Context(), filter)
	if err != nil {
		layout.Error = alertFor(r, err)
		status = statusFor(err)
	}
	hasNext := len(entries) > historyPageSize
	if hasNext {
		entries = entries[:historyPageSize]
	}

	var sheets []string
	for _, def := range core.All() {
		sheets = append(sheets, def.Info.Key)
	}
	actions := make([]string, len(core.AuditActions))
	for i, a := range core.AuditActions {
		actions[i] = string(a)
	}

	render(w, r, status, templates.HistoryPage(layout, templates.HistoryParams{
		Entries: entries,
		Filter:  form,
		Sheets:  sheets,
		Actions: actions,
		Page:    page,
		HasNext: hasNext,
	}))
}

// handleHistory returns history entries as JSON, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	_, filter := historyFilter(r)
	filter.Limit = parseIntParam(r, "limit", core.DefaultHistoryLimit)
	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off > 0 {
		filter.Offset = off
	}

	entries, err := s.service.GetAuditLog(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHistoryEntry returns a single history entry.
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.GetAuditLogByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleHistoryExport downloads the filtered history as CSV.
func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	_, filter := historyFilter(r)

	filename := fmt.Sprintf("historial_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := s.service.ExportAuditCSV(r.Context(), w, filter); err != nil {
		// Headers may already be out; the log is all that is left.
		logError(r, err, statusFor(err))
	}
}
