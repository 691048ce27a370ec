package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envelopes/internal/budget"
	"envelopes/internal/cli"
	"envelopes/internal/common"
	"envelopes/internal/ingest"
	"envelopes/internal/model"
	"envelopes/internal/stats"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the envelope reconciliation report",
		Long: `Ingest budget and transaction files, reconcile them per envelope and
month, and render the resulting report.

Budget files are CSV or JSON with envelope, month, period and budget
columns. Transaction files are CSV or JSON interpreted through the
--amount-field/--date-field/--envelope-field mapping, or OFX/QFX bank
statements.`,
		RunE: runReport,
	}

	cmd.Flags().StringSliceP("budgets", "b", nil, "budget file (repeatable)")
	cmd.Flags().StringSliceP("transactions", "t", nil, "transaction file (repeatable)")
	cmd.Flags().String("amount-field", "", "field supplying the transaction amount")
	cmd.Flags().StringSliceP("date-field", "D", nil, "field supplying the transaction date, in priority order (repeatable)")
	cmd.Flags().StringP("envelope-field", "E", "", "field supplying the envelope the money is drawn from")
	cmd.Flags().String("debit-flag-field", "", "field carrying the debit/credit marker; see --debit-flag")
	cmd.Flags().String("debit-flag", "", "value of --debit-flag-field on debit rows; other rows are treated as credits")
	cmd.Flags().String("first-month", "", "first reporting month (YYYY-MM; default: earliest observed)")
	cmd.Flags().String("last-month", "", "reference month for rendering and JSON output (YYYY-MM; default: current month)")
	cmd.Flags().String("duplicate-policy", "sum", "how to treat duplicate budget definitions (sum, reject)")
	cmd.Flags().StringP("output-file", "o", "", "write the reference month as JSON and the full table as CSV")
	cmd.Flags().StringP("session", "S", "", "session identifier tying multiple runs together")
	cmd.Flags().Bool("save", false, "persist the report to the local database")

	_ = viper.BindPFlag("report.budgets", cmd.Flags().Lookup("budgets"))
	_ = viper.BindPFlag("report.transactions", cmd.Flags().Lookup("transactions"))
	_ = viper.BindPFlag("report.amount_field", cmd.Flags().Lookup("amount-field"))
	_ = viper.BindPFlag("report.date_fields", cmd.Flags().Lookup("date-field"))
	_ = viper.BindPFlag("report.envelope_field", cmd.Flags().Lookup("envelope-field"))
	_ = viper.BindPFlag("report.debit_flag_field", cmd.Flags().Lookup("debit-flag-field"))
	_ = viper.BindPFlag("report.debit_flag", cmd.Flags().Lookup("debit-flag"))
	_ = viper.BindPFlag("report.first_month", cmd.Flags().Lookup("first-month"))
	_ = viper.BindPFlag("report.last_month", cmd.Flags().Lookup("last-month"))
	_ = viper.BindPFlag("report.duplicate_policy", cmd.Flags().Lookup("duplicate-policy"))
	_ = viper.BindPFlag("report.output_file", cmd.Flags().Lookup("output-file"))
	_ = viper.BindPFlag("report.session", cmd.Flags().Lookup("session"))
	_ = viper.BindPFlag("report.save", cmd.Flags().Lookup("save"))

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	budgetFiles := viper.GetStringSlice("report.budgets")
	transactionFiles := viper.GetStringSlice("report.transactions")
	if len(budgetFiles) == 0 && len(transactionFiles) == 0 {
		return common.NewUserError("nothing to do: supply --budgets and/or --transactions", common.ErrMissingConfig)
	}

	policy, err := budget.ParseDuplicatePolicy(viper.GetString("report.duplicate_policy"))
	if err != nil {
		return err
	}

	calc := stats.NewWithConfig(slog.Default(), stats.Config{
		FirstMonth:      viper.GetString("report.first_month"),
		DuplicatePolicy: policy,
	})

	fields := ingest.FieldMap{
		AmountField:    viper.GetString("report.amount_field"),
		DateFields:     viper.GetStringSlice("report.date_fields"),
		EnvelopeField:  viper.GetString("report.envelope_field"),
		DebitFlagField: viper.GetString("report.debit_flag_field"),
		DebitFlag:      viper.GetString("report.debit_flag"),
	}

	bar := cli.NewIngestProgress(len(budgetFiles)+len(transactionFiles), os.Stderr)
	for _, path := range budgetFiles {
		if err := ingestBudgetFile(calc, path); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	for _, path := range transactionFiles {
		if err := ingestTransactionFile(calc, path, fields); err != nil {
			return err
		}
		_ = bar.Add(1)
	}

	report, err := calc.EnvelopeStats()
	if err != nil {
		return fmt.Errorf("failed to compute envelope stats: %w", err)
	}
	yearly := stats.YearlyStats(report)

	referenceMonth := viper.GetString("report.last_month")
	if referenceMonth == "" {
		referenceMonth = model.MonthOf(time.Now())
	} else if err := model.ValidateMonth(referenceMonth); err != nil {
		return err
	}

	fmt.Println(cli.RenderMonthTable(report, referenceMonth))
	fmt.Println(cli.RenderYearlyTable(yearly))

	if outputFile := viper.GetString("report.output_file"); outputFile != "" {
		if err := writeOutputs(outputFile, report, referenceMonth); err != nil {
			return err
		}
	}

	if viper.GetBool("report.save") {
		session := viper.GetString("report.session")
		if session == "" {
			session = randomSession()
			slog.Info("generated session", "session", session)
		}
		if err := saveReport(ctx, session, report); err != nil {
			return err
		}
		slog.Info(cli.FormatSuccess("report saved"), "session", session, "rows", len(report))
	}

	return nil
}

func ingestBudgetFile(calc *stats.Calculator, path string) error {
	format, err := ingest.FormatForPath(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("cannot read budget file %s", path), err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open budget file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ingest.ReadBudgets(format, f)
	if err != nil {
		return fmt.Errorf("budget file %s: %w", path, err)
	}
	return calc.AddBudgets(path, records)
}

func ingestTransactionFile(calc *stats.Calculator, path string, fields ingest.FieldMap) error {
	format, err := ingest.FormatForPath(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("cannot read transaction file %s", path), err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open transaction file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ingest.ReadTransactions(format, f, fields)
	if err != nil {
		return fmt.Errorf("transaction file %s: %w", path, err)
	}
	calc.AddTransactions(path, records)
	return nil
}
