package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ArmandoRuiz13/registro/internal/core"
	"github.com/ArmandoRuiz13/registro/internal/logging"
	"github.com/ArmandoRuiz13/registro/internal/web/templates"
)

// multipartOverhead is the room left for form fields around the file.
const multipartOverhead = 1 << 20

// importFile runs the CSV import of the multipart "file" field into the
// {sheet} of the URL.
func (s *Server) importFile(w http.ResponseWriter, r *http.Request, def core.SheetDefinition) (core.ImportResult, error) {
	r.Body = http.MaxBytesReader(w, r.Body, core.MaxImportSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.ImportResult{}, fmt.Errorf("%w: limit is %d bytes", core.ErrImportTooLarge, core.MaxImportSize)
		}
		return core.ImportResult{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("%w: no file uploaded", errMalformed)
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	if s.cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Import.Timeout)
		defer cancel()
	}
	result, err := s.service.ImportCSV(ctx, def.Info.Key, file)
	if err != nil {
		return core.ImportResult{}, err
	}

	logging.WithFields(ctx, "sheet", def.Info.Key, "file", header.Filename).Info("csv imported",
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
	)
	return result, nil
}

// handleImportPage imports a CSV file from the sheet page and shows the outcome.
func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.importFile(w, r, def)
	if err != nil {
		s.sheetPage(w, r, def, err)
		return
	}

	status := http.StatusOK
	if result.Inserted == 0 && len(result.Failed) > 0 {
		status = http.StatusUnprocessableEntity
	}
	render(w, r, status, templates.ImportResultPage(
		s.layout(r, "Importación", def.Info.Path),
		templates.ImportParams{Result: result, Back: def.Info.Path},
	))
}

// handleAPIImport imports a CSV file and returns the ImportResult.
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	def, err := resolveSheet(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.importFile(w, r, def)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
