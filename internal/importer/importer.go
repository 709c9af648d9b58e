// Package importer implements the spreadsheet import pipeline: it
// parses CSV/Excel uploads, validates rows against the field catalog
// through a caller-supplied column mapping, and persists valid rows as
// startups with a structured per-row error/warning report.
package importer

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/venturedesk/pipeline/internal/fields"
)

// Store persists imported startups. Implemented by internal/db.
type Store interface {
	// InsertImported creates a startup from coerced field values and
	// records its initial status assignment in the history table.
	InsertImported(ctx context.Context, values map[string]any, statusID uuid.UUID) (uuid.UUID, error)
}

// Config holds import pipeline settings.
type Config struct {
	// DefaultStatusID is the pipeline stage assigned to every
	// imported startup (the "registered" stage in a stock deployment).
	DefaultStatusID uuid.UUID
	// FallbackDescription is used when a row maps no description.
	FallbackDescription string
}

// Importer runs the import pipeline. It is stateless between calls:
// analyze and run each re-parse the uploaded bytes.
type Importer struct {
	store Store
	cfg   Config
}

// New creates an importer backed by the given store.
func New(store Store, cfg Config) *Importer {
	if cfg.FallbackDescription == "" {
		cfg.FallbackDescription = "Imported from spreadsheet"
	}
	return &Importer{store: store, cfg: cfg}
}

// Analysis is the result of inspecting an uploaded file before import.
type Analysis struct {
	Headers         []string       `json:"headers"`
	Preview         [][]string     `json:"preview"`
	TotalRows       int            `json:"total_rows"`
	Filename        string         `json:"filename"`
	AvailableFields []fields.Field `json:"available_fields"`
}

// Analyze parses the file and returns its headers, a preview of the
// first rows, and the field catalog so the caller can build a column
// mapping.
func (im *Importer) Analyze(filename string, data []byte) (*Analysis, error) {
	headers, rows, err := parseFile(filename, data)
	if err != nil {
		return nil, err
	}

	previewLen := len(rows)
	if previewLen > 5 {
		previewLen = 5
	}
	preview := make([][]string, previewLen)
	copy(preview, rows[:previewLen])

	return &Analysis{
		Headers:         headers,
		Preview:         preview,
		TotalRows:       len(rows),
		Filename:        filename,
		AvailableFields: fields.Catalog(),
	}, nil
}

// RowError is a row-level problem that blocked the row from importing.
type RowError struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
	Error string `json:"error"`
}

// RowWarning is a recoverable row-level problem; the row still imports
// with the offending field stored empty.
type RowWarning struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Warning string `json:"warning"`
}

// Result is the structured report of one import run.
type Result struct {
	Success       bool         `json:"success"`
	Message       string       `json:"message"`
	ImportedCount int          `json:"imported_count"`
	TotalRows     int          `json:"total_rows"`
	Errors        []RowError   `json:"errors"`
	Warnings      []RowWarning `json:"warnings"`
}

// Run re-parses the file and imports every valid row. mapping is
// file-column-name -> field key; unmapped columns (missing or empty
// value) are ignored. Processing is best effort: a failing row never
// blocks the rest of the batch. Report row numbers are 1-based and
// offset by the header row.
func (im *Importer) Run(ctx context.Context, filename string, data []byte, mapping map[string]string) (*Result, error) {
	headers, rows, err := parseFile(filename, data)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TotalRows: len(rows),
		Errors:    []RowError{},
		Warnings:  []RowWarning{},
	}

	for i, row := range rows {
		rowNum := i + 2 // 1-based plus header row

		values := make(map[string]any)
		errored := make(map[string]bool)
		rowErrs := 0

		for col, header := range headers {
			fieldKey := mapping[header]
			if fieldKey == "" {
				continue
			}

			raw := cellAt(row, col)
			value, warning, cerr := fields.Coerce(fieldKey, raw)
			if cerr != nil {
				result.Errors = append(result.Errors, RowError{
					Row: rowNum, Field: fieldKey, Value: raw, Error: cerr.Error(),
				})
				errored[fieldKey] = true
				rowErrs++
				continue
			}
			if warning != "" {
				result.Warnings = append(result.Warnings, RowWarning{
					Row: rowNum, Field: fieldKey, Value: raw, Warning: warning,
				})
			}
			if value != nil {
				values[fieldKey] = value
			}
		}

		// Required fields must be present even when their column was
		// never mapped at all.
		for _, key := range fields.RequiredKeys() {
			if _, ok := values[key]; ok || errored[key] {
				continue
			}
			f, _ := fields.Lookup(key)
			result.Errors = append(result.Errors, RowError{
				Row: rowNum, Field: key, Error: fmt.Sprintf("%s is required", f.Label),
			})
			rowErrs++
		}

		if rowErrs > 0 {
			continue
		}

		if _, ok := values["description"]; !ok {
			values["description"] = im.cfg.FallbackDescription
		}

		if _, ierr := im.store.InsertImported(ctx, values, im.cfg.DefaultStatusID); ierr != nil {
			result.Errors = append(result.Errors, RowError{
				Row: rowNum, Field: "database", Error: ierr.Error(),
			})
			continue
		}
		result.ImportedCount++
	}

	result.Success = result.ImportedCount > 0
	if result.Success {
		result.Message = fmt.Sprintf("Imported %d of %d rows", result.ImportedCount, result.TotalRows)
	} else {
		result.Message = "No rows were imported"
	}

	log.Printf("[import] %s: %d/%d rows imported, %d errors, %d warnings",
		filename, result.ImportedCount, result.TotalRows, len(result.Errors), len(result.Warnings))

	return result, nil
}
