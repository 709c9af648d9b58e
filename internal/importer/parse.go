package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxFileSize is the upload size limit for import files.
const MaxFileSize = 10 << 20 // 10MB

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseFile turns an uploaded file into a header row and data rows.
// CSV files are semicolon-delimited; Excel files are read from the
// first worksheet. Parsing is deterministic: the same bytes always
// produce the same rows.
func parseFile(filename string, data []byte) (headers []string, rows [][]string, err error) {
	if int64(len(data)) > MaxFileSize {
		return nil, nil, &ErrFileTooLarge{Size: int64(len(data)), Limit: MaxFileSize}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	var records [][]string

	switch ext {
	case ".csv":
		records, err = parseCSV(data)
	case ".xlsx", ".xls":
		records, err = parseExcel(data)
	default:
		return nil, nil, &ErrUnsupportedFormat{Ext: ext}
	}
	if err != nil {
		return nil, nil, &ErrParse{Filename: filename, Cause: err}
	}

	if len(records) < 2 {
		return nil, nil, &ErrEmptyFile{Filename: filename}
	}

	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	return headers, records[1:], nil
}

func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ';'
	r.FieldsPerRecord = -1 // ragged rows are handled per-cell later
	r.LazyQuotes = true

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseExcel(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("excel: %w", err)
	}
	return rows, nil
}

// cellAt returns the cell at the given column index, tolerating short
// rows.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
