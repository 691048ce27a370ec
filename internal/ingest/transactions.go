package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"envelopes/internal/common"
	"envelopes/internal/model"
)

// FieldMap tells the transaction readers where to find the values the core
// needs inside a source's records. DateFields is priority-ordered: the
// first field present with a parseable value wins.
type FieldMap struct {
	AmountField    string
	DateFields     []string
	EnvelopeField  string
	DebitFlagField string // optional: field carrying the debit/credit marker
	DebitFlag      string // value of DebitFlagField on debit rows; others are negated
}

// Validate checks that the required mappings are present.
func (m *FieldMap) Validate() error {
	if m.AmountField == "" {
		return fmt.Errorf("%w: amount field is required", common.ErrMissingFieldMapping)
	}
	if len(m.DateFields) == 0 {
		return fmt.Errorf("%w: at least one date field is required", common.ErrMissingFieldMapping)
	}
	if m.EnvelopeField == "" {
		return fmt.Errorf("%w: envelope field is required", common.ErrMissingFieldMapping)
	}
	return nil
}

// dateLayouts are tried in order when parsing transaction dates. US-style
// month/day ordering is assumed for slash-separated dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

// ReadTransactions parses one transaction source into resolved records
// using the supplied field mapping. Records whose date cannot be parsed are
// returned with a zero Date and handled downstream; a missing envelope
// value is left empty for the unassigned sentinel to take over.
func ReadTransactions(format Format, r io.Reader, fields FieldMap) ([]model.Transaction, error) {
	// OFX carries its own structure; the field mapping only applies to
	// tabular sources.
	if format == FormatOFX {
		return ReadOFX(r)
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	var rows []map[string]string
	var err error
	switch format {
	case FormatCSV:
		rows, err = readRowsCSV(r)
	case FormatJSON:
		rows, err = readRowsJSON(r)
	default:
		return nil, fmt.Errorf("transactions input: %w: %q", common.ErrUnknownSourceFormat, format)
	}
	if err != nil {
		return nil, err
	}

	records := make([]model.Transaction, 0, len(rows))
	for i, row := range rows {
		record, err := extractTransaction(row, fields)
		if err != nil {
			return nil, fmt.Errorf("transaction record %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func extractTransaction(row map[string]string, fields FieldMap) (model.Transaction, error) {
	raw, ok := row[fields.AmountField]
	if !ok || raw == "" {
		return model.Transaction{}, fmt.Errorf("missing amount field %q", fields.AmountField)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	amount := d.InexactFloat64()

	// a non-debit row is a credit flowing back into the envelope
	if fields.DebitFlagField != "" {
		if row[fields.DebitFlagField] != fields.DebitFlag {
			amount = -amount
		}
	}

	record := model.Transaction{
		Amount:   amount,
		Envelope: row[fields.EnvelopeField],
	}
	for _, name := range fields.DateFields {
		value, ok := row[name]
		if !ok || value == "" {
			continue
		}
		if date, ok := parseDate(value); ok {
			record.Date = date
			break
		}
	}
	return record, nil
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func readRowsCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction CSV line %d: %w", line, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				if value := strings.TrimSpace(record[i]); value != "" {
					row[name] = value
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readRowsJSON(r io.Reader) ([]map[string]string, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var raw []map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode transaction JSON: %w", err)
	}

	rows := make([]map[string]string, 0, len(raw))
	for _, object := range raw {
		row := make(map[string]string, len(object))
		for key, value := range object {
			switch v := value.(type) {
			case nil:
				// absent, not empty-string
			case string:
				if v != "" {
					row[key] = v
				}
			case json.Number:
				row[key] = v.String()
			case bool:
				row[key] = fmt.Sprintf("%t", v)
			default:
				row[key] = fmt.Sprintf("%v", v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
