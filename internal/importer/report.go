package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/venturedesk/pipeline/internal/fields"
	"github.com/xuri/excelize/v2"
)

// ErrorReportCSV renders an error list as a downloadable
// semicolon-delimited CSV. The UTF-8 BOM prefix keeps spreadsheet
// applications from mangling accented characters.
func ErrorReportCSV(errs []RowError) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write([]string{"row", "field", "value", "error"}); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for _, e := range errs {
		record := []string{fmt.Sprintf("%d", e.Row), e.Field, e.Value, e.Error}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.Bytes(), nil
}

// templateExample is the sample row shipped in the import template,
// keyed by field.
var templateExample = map[string]string{
	"name":           "Acme Robotics",
	"description":    "Warehouse automation robots",
	"website":        "https://acme-robotics.example",
	"sector":         "Logistics",
	"business_model": "SaaS",
	"city":           "Sao Paulo",
	"state":          "SP",
	"ceo_name":       "Maria Silva",
	"ceo_email":      "maria@acme-robotics.example",
	"ceo_phone":      "+55 11 99999-0000",
	"mrr":            "12000",
	"client_count":   "34",
	"tam":            "1200000000",
	"sam":            "300000000",
	"som":            "40000000",
	"founded_date":   "2021-03-15",
	"priority":       "high",
}

// Template generates the example spreadsheet documenting the expected
// columns: one header row of field labels plus one sample data row.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for col, field := range fields.Catalog() {
		headerCell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}
		if err := f.SetCellValue(sheet, headerCell, field.Label); err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}

		exampleCell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}
		if err := f.SetCellValue(sheet, exampleCell, templateExample[field.Key]); err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize template: %w", err)
	}
	return buf.Bytes(), nil
}
