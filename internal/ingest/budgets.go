package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"envelopes/internal/common"
	"envelopes/internal/model"
)

// ReadBudgets parses one budget source into raw budget records. CSV input
// expects a header row with envelope, month, period and budget columns
// (a comment column is tolerated and ignored); JSON input is an array of
// objects with the same keys.
func ReadBudgets(format Format, r io.Reader) ([]model.BudgetRecord, error) {
	switch format {
	case FormatCSV:
		return readBudgetsCSV(r)
	case FormatJSON:
		return readBudgetsJSON(r)
	default:
		return nil, fmt.Errorf("budget input: %w: %q (.csv or .json needed)", common.ErrUnknownSourceFormat, format)
	}
}

func readBudgetsCSV(r io.Reader) ([]model.BudgetRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read budget CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"envelope", "month"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("budget CSV is missing the %q column", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []model.BudgetRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read budget CSV line %d: %w", line, err)
		}

		record := model.BudgetRecord{
			Envelope: field(row, "envelope"),
			Month:    field(row, "month"),
			Period:   model.Period(field(row, "period")),
			Note:     field(row, "comment"),
		}
		if raw := field(row, "budget"); raw != "" {
			amount, err := parseAmount(raw)
			if err != nil {
				return nil, fmt.Errorf("budget CSV line %d: %w", line, err)
			}
			record.Amount = &amount
		}
		records = append(records, record)
	}
	return records, nil
}

// budgetJSON mirrors the CSV column set for JSON sources. Budget is a
// json.Number so both quoted and bare amounts parse.
type budgetJSON struct {
	Envelope string      `json:"envelope"`
	Month    string      `json:"month"`
	Period   string      `json:"period"`
	Budget   json.Number `json:"budget"`
	Comment  string      `json:"comment"`
}

func readBudgetsJSON(r io.Reader) ([]model.BudgetRecord, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var rows []budgetJSON
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode budget JSON: %w", err)
	}

	records := make([]model.BudgetRecord, 0, len(rows))
	for i, row := range rows {
		record := model.BudgetRecord{
			Envelope: row.Envelope,
			Month:    row.Month,
			Period:   model.Period(row.Period),
			Note:     row.Comment,
		}
		if row.Budget != "" {
			amount, err := parseAmount(row.Budget.String())
			if err != nil {
				return nil, fmt.Errorf("budget JSON record %d: %w", i, err)
			}
			record.Amount = &amount
		}
		records = append(records, record)
	}
	return records, nil
}

// parseAmount parses a monetary amount with decimal semantics before
// handing the core a float.
func parseAmount(raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d.InexactFloat64(), nil
}
