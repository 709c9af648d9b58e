package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/venturedesk/pipeline/internal/importer"
	"github.com/venturedesk/pipeline/internal/types"
)

// readUpload pulls the spreadsheet out of a multipart form. The file
// part must be named "file".
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseMultipartForm(importer.MaxFileSize); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Missing file upload")
		return "", nil, false
	}
	defer file.Close()

	if header.Size > importer.MaxFileSize {
		err := &importer.ErrFileTooLarge{Size: header.Size, Limit: importer.MaxFileSize}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, importer.MaxFileSize+1))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to read upload: "+err.Error())
		return "", nil, false
	}
	if int64(len(data)) > importer.MaxFileSize {
		err := &importer.ErrFileTooLarge{Size: int64(len(data)), Limit: importer.MaxFileSize}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return "", nil, false
	}

	return header.Filename, data, true
}

// handleImportAnalyze parses an upload and returns its headers, a row
// preview and the field catalog for mapping.
func (s *Server) handleImportAnalyze(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	analysis, err := s.importer.Analyze(filename, data)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, analysis)
}

// handleImportRun re-parses the upload and imports every valid row.
// The mapping arrives as a JSON form field next to the file.
func (s *Server) handleImportRun(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	mappingJSON := r.FormValue("mapping")
	if mappingJSON == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing mapping form field")
		return
	}
	var req types.ImportRunRequest
	if err := json.Unmarshal([]byte(mappingJSON), &req.Mapping); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid mapping JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.importer.Run(r.Context(), filename, data, req.Mapping)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleImportErrorReport renders a posted error list as a
// downloadable CSV.
func (s *Server) handleImportErrorReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Errors []importer.RowError `json:"errors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := importer.ErrorReportCSV(req.Errors)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="import-errors.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		return
	}
}

// handleImportTemplate serves the example spreadsheet.
func (s *Server) handleImportTemplate(w http.ResponseWriter, _ *http.Request) {
	template, err := importer.Template()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="import-template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(template); err != nil {
		return
	}
}
