package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envelopes/internal/cli"
	"envelopes/internal/stats"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved report runs, or show one with --session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if session, _ := cmd.Flags().GetString("session"); session != "" {
				report, err := store.GetReport(ctx, session)
				if err != nil {
					return err
				}
				lastMonth := ""
				for _, row := range report {
					if row.Month > lastMonth {
						lastMonth = row.Month
					}
				}
				fmt.Println(cli.RenderMonthTable(report, lastMonth))
				fmt.Println(cli.RenderYearlyTable(stats.YearlyStats(report)))
				return nil
			}

			runs, err := store.ListRuns(ctx)
			if err != nil {
				return fmt.Errorf("failed to list report runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println(cli.FormatWarning("no saved reports"))
				return nil
			}

			var b strings.Builder
			header := fmt.Sprintf("%-18s %-8s %-8s %6s  %s",
				"Session", "First", "Last", "Rows", "Saved at")
			b.WriteString(cli.TableHeaderStyle.Render(header))
			b.WriteString("\n")
			for _, run := range runs {
				b.WriteString(fmt.Sprintf("%-18s %-8s %-8s %6d  %s\n",
					run.Session, run.FirstMonth, run.LastMonth, run.RowCount,
					run.CreatedAt.Format("2006-01-02 15:04")))
			}

			fmt.Println(cli.RenderBox("Saved reports", strings.TrimRight(b.String(), "\n")))
			return nil
		},
	}

	cmd.Flags().StringP("session", "S", "", "show the saved report for this session")
	return cmd
}
