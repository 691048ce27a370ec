package main

import (
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"envelopes/internal/model"
	"envelopes/internal/storage"
)

// initStorage opens the report database at the configured path and brings
// its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "envelopes", "envelopes.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func saveReport(ctx context.Context, session string, report []model.EnvelopeState) error {
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run := storage.ReportRun{Session: session}
	if len(report) > 0 {
		run.FirstMonth = report[0].Month
		run.LastMonth = report[0].Month
		for _, row := range report {
			if row.Month < run.FirstMonth {
				run.FirstMonth = row.Month
			}
			if row.Month > run.LastMonth {
				run.LastMonth = row.Month
			}
		}
	}

	if _, err := store.SaveReport(ctx, run, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// randomSession generates a session identifier for runs that didn't
// supply one.
const sessionAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSession() string {
	b := make([]byte, 15)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = sessionAlphabet[int(b[i])%len(sessionAlphabet)]
	}
	return string(b)
}

// writeOutputs writes the reference month's rows as JSON and the full
// report as CSV next to it.
func writeOutputs(outputFile string, report []model.EnvelopeState, referenceMonth string) error {
	var monthRows []model.EnvelopeState
	for _, row := range report {
		if row.Month == referenceMonth {
			monthRows = append(monthRows, row)
		}
	}

	data, err := json.MarshalIndent(monthRows, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode report JSON: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputFile, err)
	}

	csvFile := strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".csv"
	f, err := os.Create(csvFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", csvFile, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"envelope", "month", "budget", "adjustment", "state_month", "state", "carryover"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range report {
		record := []string{
			row.Envelope,
			row.Month,
			formatAmount(row.Budget),
			formatAmount(row.Adjustment),
			formatAmount(row.StateMonth),
			formatAmount(row.State),
			formatAmount(row.Carryover),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
