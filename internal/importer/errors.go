package importer

import "fmt"

// ErrEmptyFile indicates the uploaded file has no data rows.
type ErrEmptyFile struct {
	Filename string
}

func (e *ErrEmptyFile) Error() string {
	return fmt.Sprintf("file %s contains no data rows", e.Filename)
}

// ErrUnsupportedFormat indicates the file extension is not importable.
type ErrUnsupportedFormat struct {
	Ext string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported file format %q (expected .csv, .xlsx or .xls)", e.Ext)
}

// ErrFileTooLarge indicates the upload exceeds the size limit.
type ErrFileTooLarge struct {
	Size  int64
	Limit int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file is %d bytes, limit is %d", e.Size, e.Limit)
}

// ErrParse indicates the parser rejected the file content.
type ErrParse struct {
	Filename string
	Cause    error
}

func (e *ErrParse) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Cause)
}

func (e *ErrParse) Unwrap() error {
	return e.Cause
}
