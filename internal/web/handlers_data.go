package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

// xlsxContentType is the media type of .xlsx workbooks.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleHealth reports liveness together with the write limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"writes": s.service.WriteStatus(),
	})
}

// handleWriteStatus returns the current state of the write limiter.
func (s *Server) handleWriteStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.WriteStatus())
}

// handleListSheets returns the registered sheets.
func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListSheets())
}

// handleSnapshot returns a sheet exactly as stored, with its version.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	snap, err := s.service.Snapshot(r.Context(), def.Info.Key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePersist writes a snapshot back. The version in the body must match
// the stored version.
func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var snap sheet.Snapshot
	if err := decodeJSON(w, r, &snap); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	out, err := s.service.Persist(ctx, def.Info.Key, snap)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExportWorkbook downloads the sheets as one .xlsx workbook. Repeat
// ?sheet= to pick sheets; all sheets are exported by default.
func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	var keys []string
	for _, name := range r.URL.Query()["sheet"] {
		def, ok := lookupSheetName(name)
		if !ok {
			s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownSheet, name))
			return
		}
		keys = append(keys, def.Info.Key)
	}

	var buf bytes.Buffer
	if err := s.service.ExportWorkbook(r.Context(), &buf, keys...); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("registro_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logError(r, err, http.StatusInternalServerError)
	}
}
