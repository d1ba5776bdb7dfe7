package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"aria/internal/domain"
	"aria/internal/schema"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one exported extraction pass.
type Row struct {
	ConversationID string
	Pass           int
	CreatedAt      time.Time
	Record         *domain.TransactionRecord
}

// Columns returns the header row for a transaction type's field specs:
// metadata columns, one column per field in schema order, then the notes.
func Columns(specs []schema.FieldSpec) []string {
	cols := []string{"Conversation ID", "Pass", "Status"}
	for _, s := range specs {
		cols = append(cols, s.Name)
	}
	return append(cols, "Ambiguous Fields", "Missing Fields", "Created At")
}

// Writer wraps csv.Writer for exporting records of one transaction type as CSV.
type Writer struct {
	csv   *csv.Writer
	specs []schema.FieldSpec
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer, specs []schema.FieldSpec) *Writer {
	return &Writer{csv: csv.NewWriter(w), specs: specs}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(Columns(w.specs))
}

// WriteRows converts rows to CSV records and writes them.
func (w *Writer) WriteRows(rows []Row) error {
	for i := range rows {
		if err := w.csv.Write(rowValues(w.specs, &rows[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// rowValues renders a row. Field columns stay empty when the record is of a
// different type or the value is absent.
func rowValues(specs []schema.FieldSpec, r *Row) []string {
	row := make([]string, 0, len(specs)+6)
	row = append(row, r.ConversationID, strconv.Itoa(r.Pass), "")
	if r.Record == nil {
		for range specs {
			row = append(row, "")
		}
		return append(row, "", "", formatTime(r.CreatedAt))
	}

	row[2] = string(r.Record.Status())
	for _, s := range specs {
		v, _ := r.Record.Value(s.Name)
		row = append(row, v.String())
	}

	var ambiguous, missing []string
	for _, n := range r.Record.Ambiguities() {
		ambiguous = append(ambiguous, n.Field)
	}
	for _, n := range r.Record.MissingCriticalInfo() {
		missing = append(missing, n.Field+" ("+string(n.Importance)+")")
	}
	return append(row, strings.Join(ambiguous, "; "), strings.Join(missing, "; "), formatTime(r.CreatedAt))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
