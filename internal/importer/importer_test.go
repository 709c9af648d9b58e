package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records inserts and can fail on selected startup names.
type fakeStore struct {
	inserted []map[string]any
	statuses []uuid.UUID
	failOn   map[string]bool
}

func (f *fakeStore) InsertImported(_ context.Context, values map[string]any, statusID uuid.UUID) (uuid.UUID, error) {
	if name, _ := values["name"].(string); f.failOn[name] {
		return uuid.Nil, fmt.Errorf("duplicate key value violates unique constraint")
	}
	f.inserted = append(f.inserted, values)
	f.statuses = append(f.statuses, statusID)
	return uuid.New(), nil
}

var testStatusID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func newTestImporter(store *fakeStore) *Importer {
	return New(store, Config{DefaultStatusID: testStatusID})
}

func csvFile(rows ...string) []byte {
	var buf bytes.Buffer
	for _, r := range rows {
		buf.WriteString(r + "\n")
	}
	return buf.Bytes()
}

var fullMapping = map[string]string{
	"Nome":  "name",
	"CEO":   "ceo_name",
	"Email": "ceo_email",
}

func TestAnalyze(t *testing.T) {
	im := newTestImporter(&fakeStore{})
	data := csvFile(
		"Nome;CEO;Email",
		"Acme;Maria;maria@acme.com",
		"Globex;Hank;hank@globex.com",
	)

	a, err := im.Analyze("startups.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nome", "CEO", "Email"}, a.Headers)
	assert.Equal(t, 2, a.TotalRows)
	assert.Len(t, a.Preview, 2)
	assert.Equal(t, []string{"Acme", "Maria", "maria@acme.com"}, a.Preview[0])
	assert.NotEmpty(t, a.AvailableFields)
}

func TestAnalyzeIdempotent(t *testing.T) {
	im := newTestImporter(&fakeStore{})
	data := csvFile("Nome;CEO;Email", "Acme;Maria;maria@acme.com")

	a1, err := im.Analyze("s.csv", data)
	require.NoError(t, err)
	a2, err := im.Analyze("s.csv", data)
	require.NoError(t, err)
	assert.Equal(t, a1.Headers, a2.Headers)
	assert.Equal(t, a1.Preview, a2.Preview)
	assert.Equal(t, a1.TotalRows, a2.TotalRows)
}

func TestAnalyzePreviewCapped(t *testing.T) {
	rows := []string{"Nome;CEO;Email"}
	for i := 0; i < 8; i++ {
		rows = append(rows, fmt.Sprintf("S%d;C%d;c%d@x.com", i, i, i))
	}
	im := newTestImporter(&fakeStore{})

	a, err := im.Analyze("s.csv", csvFile(rows...))
	require.NoError(t, err)
	assert.Equal(t, 8, a.TotalRows)
	assert.Len(t, a.Preview, 5)
}

func TestAnalyzeEmptyFile(t *testing.T) {
	im := newTestImporter(&fakeStore{})

	_, err := im.Analyze("s.csv", csvFile("Nome;CEO;Email"))
	var empty *ErrEmptyFile
	require.ErrorAs(t, err, &empty)
}

func TestAnalyzeUnsupportedFormat(t *testing.T) {
	im := newTestImporter(&fakeStore{})

	_, err := im.Analyze("s.pdf", []byte("junk"))
	var unsupported *ErrUnsupportedFormat
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".pdf", unsupported.Ext)
}

func TestAnalyzeTooLarge(t *testing.T) {
	im := newTestImporter(&fakeStore{})

	_, err := im.Analyze("s.csv", make([]byte, MaxFileSize+1))
	var tooLarge *ErrFileTooLarge
	require.ErrorAs(t, err, &tooLarge)
}

func TestAnalyzeBadExcel(t *testing.T) {
	im := newTestImporter(&fakeStore{})

	_, err := im.Analyze("s.xlsx", []byte("this is not a zip archive"))
	var parseErr *ErrParse
	require.ErrorAs(t, err, &parseErr)
}

func TestRunEndToEnd(t *testing.T) {
	store := &fakeStore{}
	im := newTestImporter(store)
	data := csvFile(
		"Nome;CEO;Email",
		"Acme;Maria;maria@acme.com",
		"Globex;Hank;hank@globex.com",
		"Initech;Bill;", // missing required email
	)

	result, err := im.Run(context.Background(), "startups.csv", data, fullMapping)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.ImportedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row) // data index 2 -> row 4
	assert.Equal(t, "ceo_email", result.Errors[0].Field)
	assert.Empty(t, result.Warnings)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, "Acme", store.inserted[0]["name"])
	assert.Equal(t, testStatusID, store.statuses[0])
}

func TestRunRequiredFieldUnmapped(t *testing.T) {
	store := &fakeStore{}
	im := newTestImporter(store)
	data := csvFile("Nome;Email", "Acme;maria@acme.com")

	// ceo_name never mapped: every row must error, none import.
	result, err := im.Run(context.Background(), "s.csv", data, map[string]string{
		"Nome":  "name",
		"Email": "ceo_email",
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.ImportedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ceo_name", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Error, "required")
}

func TestRunWarningTolerance(t *testing.T) {
	store := &fakeStore{}
	im := newTestImporter(store)
	data := csvFile(
		"Nome;CEO;Email;MRR;Fundacao",
		"Acme;Maria;maria@acme.com;not-a-number;whenever",
	)
	mapping := map[string]string{
		"Nome": "name", "CEO": "ceo_name", "Email": "ceo_email",
		"MRR": "mrr", "Fundacao": "founded_date",
	}

	result, err := im.Run(context.Background(), "s.csv", data, mapping)
	require.NoError(t, err)

	// Bad number and date warn but the row still imports, with the
	// offending fields left unset.
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ImportedCount)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 2)

	require.Len(t, store.inserted, 1)
	_, hasMRR := store.inserted[0]["mrr"]
	assert.False(t, hasMRR)
}

func TestRunInvalidEmail(t *testing.T) {
	im := newTestImporter(&fakeStore{})
	data := csvFile("Nome;CEO;Email", "Acme;Maria;not-an-email")

	result, err := im.Run(context.Background(), "s.csv", data, fullMapping)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ImportedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ceo_email", result.Errors[0].Field)
	assert.Equal(t, "not-an-email", result.Errors[0].Value)
	assert.Contains(t, result.Errors[0].Error, "email")
}

func TestRunDatabaseFailureContinuesBatch(t *testing.T) {
	store := &fakeStore{failOn: map[string]bool{"Globex": true}}
	im := newTestImporter(store)
	data := csvFile(
		"Nome;CEO;Email",
		"Acme;Maria;maria@acme.com",
		"Globex;Hank;hank@globex.com",
		"Initech;Bill;bill@initech.com",
	)

	result, err := im.Run(context.Background(), "s.csv", data, fullMapping)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ImportedCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "database", result.Errors[0].Field)
}

func TestRunUnmappedColumnsIgnored(t *testing.T) {
	store := &fakeStore{}
	im := newTestImporter(store)
	data := csvFile("Nome;CEO;Email;Notas", "Acme;Maria;maria@acme.com;ignore me")

	result, err := im.Run(context.Background(), "s.csv", data, fullMapping)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportedCount)
	_, hasNotes := store.inserted[0]["Notas"]
	assert.False(t, hasNotes)
}

func TestRunFallbackDescription(t *testing.T) {
	store := &fakeStore{}
	im := newTestImporter(store)
	data := csvFile("Nome;CEO;Email", "Acme;Maria;maria@acme.com")

	_, err := im.Run(context.Background(), "s.csv", data, fullMapping)
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.NotEmpty(t, store.inserted[0]["description"])
}

func TestErrorReportCSV(t *testing.T) {
	errs := []RowError{
		{Row: 2, Field: "ceo_email", Value: "nope", Error: "invalid email format: nope"},
		{Row: 5, Field: "name", Error: "Startup Name is required"},
	}

	out, err := ErrorReportCSV(errs)
	require.NoError(t, err)

	// BOM prefix, then header plus one data row per error.
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte{0xEF, 0xBB, 0xBF})))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"row", "field", "value", "error"}, records[0])
	assert.Equal(t, []string{"2", "ceo_email", "nope", "invalid email format: nope"}, records[1])
}

func TestTemplate(t *testing.T) {
	out, err := Template()
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// The template must itself be analyzable.
	im := newTestImporter(&fakeStore{})
	a, err := im.Analyze("template.xlsx", out)
	require.NoError(t, err)
	assert.Contains(t, a.Headers, "Startup Name")
	assert.Contains(t, a.Headers, "CEO Email")
	assert.Equal(t, 1, a.TotalRows)
}
