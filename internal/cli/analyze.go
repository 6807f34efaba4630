package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"llm-trade-verifier/internal/analytics"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/pricing"
)

// addAnalyzeCommands adds the performance reporting commands.
func addAnalyzeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRankingCmd(app))
	rootCmd.AddCommand(newChartCmd(app))
	rootCmd.AddCommand(newSummaryCmd(app))
	rootCmd.AddCommand(newRecordsCmd(app))
}

func newRankingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Rank models by overall win rate",
		Long: `Aggregate every stored record per model and rank the models by overall
win rate. Ties keep the order in which models first appear.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.Analytics()
			if err != nil {
				return err
			}
			ranking, err := svc.Ranking(ctx)
			if err != nil {
				output.Error("Failed to compute ranking: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(ranking)
			}
			if len(ranking) == 0 {
				output.Warning("No records yet. Use 'verifier fixed record --save' or 'verifier import' first.")
				return nil
			}

			output.Bold("Model Ranking")
			output.Println()
			table := NewTable(output, "#", "Model", "Total", "Fixed", "Select", "Win", "Fixed Win", "Select Win", "Accuracy", "Avg Return", "Total P&L", "Best", "Worst")
			for i, s := range ranking {
				table.AddRow(
					fmt.Sprintf("%d", i+1),
					s.ModelName,
					fmt.Sprintf("%d", s.TotalAnalyses),
					fmt.Sprintf("%d", s.FixedAnalyses),
					fmt.Sprintf("%d", s.SelectionAnalyses),
					FormatRate(s.OverallWinRate),
					FormatRate(s.FixedWinRate),
					FormatRate(s.SelectionWinRate),
					FormatRate(s.AvgPredictionAccuracy),
					output.FormatPercent(s.AvgReturnRate),
					output.FormatPnL(s.TotalProfitLoss),
					output.FormatPercent(s.BestTradeReturn),
					output.FormatPercent(s.WorstTradeReturn),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newChartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Chart the top models",
		Long:  fmt.Sprintf("Show win rate, accuracy and return for the top %d ranked models.", analytics.ChartSize),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.Analytics()
			if err != nil {
				return err
			}
			chart, err := svc.ChartSummary(ctx)
			if err != nil {
				output.Error("Failed to compute chart: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(chart)
			}
			if len(chart.Labels) == 0 {
				output.Warning("No records yet.")
				return nil
			}

			width := 0
			for _, l := range chart.Labels {
				width = max(width, displayWidth(l))
			}

			output.Bold("Win Rate")
			for i, label := range chart.Labels {
				output.Printf("  %s%s  %s %s\n", label, strings.Repeat(" ", width-displayWidth(label)), output.Green(bar(chart.WinRates[i], 100, 30)), FormatRate(chart.WinRates[i]))
			}
			output.Println()

			output.Bold("Prediction Accuracy")
			for i, label := range chart.Labels {
				output.Printf("  %s%s  %s %s\n", label, strings.Repeat(" ", width-displayWidth(label)), output.Cyan(bar(chart.Accuracies[i], 100, 30)), FormatRate(chart.Accuracies[i]))
			}
			output.Println()

			output.Bold("Average Return")
			for i, label := range chart.Labels {
				output.Printf("  %s%s  %s\n", label, strings.Repeat(" ", width-displayWidth(label)), output.FormatPercent(chart.Returns[i]))
			}
			return nil
		},
	}
}

// bar renders value out of full as a bar of at most width cells.
func bar(value, full float64, width int) string {
	if full <= 0 || value <= 0 {
		return strings.Repeat("░", width)
	}
	filled := int(value / full * float64(width))
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Headline statistics over every record",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.Analytics()
			if err != nil {
				return err
			}
			summary, err := svc.SummaryStats(ctx)
			if err != nil {
				output.Error("Failed to compute summary: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}
			output.Box("Summary", []string{
				fmt.Sprintf("Total Analyses:  %d", summary.TotalAnalyses),
				fmt.Sprintf("Win Rate:        %s", FormatRate(summary.WinRate)),
				fmt.Sprintf("Avg Accuracy:    %s", FormatRate(summary.AvgAccuracy)),
				fmt.Sprintf("Models:          %d", summary.UniqueModelCount),
			})
			return nil
		},
	}
}

// addFilterFlags registers the record filter flags shared by records and export.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", string(analytics.DataAll), "Record type: all, fixed or selection")
	cmd.Flags().String("model", "", "Only records of this model ID")
	cmd.Flags().String("from", "", "Executed on or after (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Executed on or before, whole day included (YYYY-MM-DD)")
	cmd.Flags().Float64("min-return", 0, "Minimum return rate in percent")
	cmd.Flags().Float64("max-return", 0, "Maximum return rate in percent")
	cmd.Flags().String("status", "", "Settlement status: PENDING or SETTLED")
	cmd.Flags().String("sort", analytics.DefaultSortField, "Sort field")
	cmd.Flags().String("order", string(analytics.SortDesc), "Sort order: asc or desc")
}

// filterFromFlags builds a FilterSpec. Bounds are only applied when given.
func filterFromFlags(cmd *cobra.Command) (analytics.FilterSpec, error) {
	dataType, _ := cmd.Flags().GetString("type")
	model, _ := cmd.Flags().GetString("model")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	status, _ := cmd.Flags().GetString("status")
	sortBy, _ := cmd.Flags().GetString("sort")
	order, _ := cmd.Flags().GetString("order")

	spec := analytics.FilterSpec{
		DataType:  analytics.DataType(dataType),
		ModelID:   model,
		SortBy:    sortBy,
		SortOrder: analytics.SortOrder(strings.ToLower(order)),
		Status:    models.SettlementStatus(strings.ToUpper(status)),
	}

	var err error
	if from != "" {
		if _, err = parseDay("from", from); err != nil {
			return spec, err
		}
		if spec.StartDate, err = analytics.ParseBound(from, false); err != nil {
			return spec, err
		}
	}
	if to != "" {
		if _, err = parseDay("to", to); err != nil {
			return spec, err
		}
		if spec.EndDate, err = analytics.ParseBound(to, true); err != nil {
			return spec, err
		}
	}
	if cmd.Flags().Changed("min-return") {
		v, _ := cmd.Flags().GetFloat64("min-return")
		spec.MinReturn = &v
	}
	if cmd.Flags().Changed("max-return") {
		v, _ := cmd.Flags().GetFloat64("max-return")
		spec.MaxReturn = &v
	}
	return spec, spec.WithDefaults().Validate()
}

func newRecordsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored records",
		Long: `List fixed and selection records, filtered and sorted.

Sort fields for fixed records: ` + strings.Join(analytics.SortFields(models.KindFixed), ", ") + `
Sort fields for selection records: ` + strings.Join(analytics.SortFields(models.KindSelection), ", "),
		Example: `  verifier records --model gpt-4 --from 2025-05-01 --to 2025-05-31
  verifier records --type selection --min-return 0 --sort return_rate --order desc
  verifier records --status PENDING`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			spec, err := filterFromFlags(cmd)
			if err != nil {
				output.Error("Invalid filter: %v", err)
				return err
			}
			svc, err := app.Analytics()
			if err != nil {
				return err
			}
			view, err := svc.FilterRecords(ctx, spec)
			if err != nil {
				output.Error("Failed to filter records: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(view)
			}
			displayView(output, view, spec.WithDefaults().DataType)
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func displayView(output *Output, view analytics.FilteredView, dataType analytics.DataType) {
	if dataType != analytics.DataSelection {
		output.Bold("Fixed-Stock Predictions (%d)", len(view.FixedRecords))
		table := NewTable(output, "ID", "Executed", "Model", "Stock", "Buy", "Sell", "Predicted", "P&L", "Return", "Accuracy", "Status")
		for _, r := range view.FixedRecords {
			table.AddRow(
				fmt.Sprintf("%d", r.ID),
				FormatDate(r.ExecutionDate),
				r.ModelDisplayName,
				r.StockCode,
				FormatYen(r.BuyPrice),
				FormatYen(r.SellPrice),
				FormatYen(r.PredictedPrice),
				output.FormatPnL(r.ProfitLoss),
				output.FormatPercent(r.ReturnRate),
				FormatRate(r.PredictionAccuracy),
				output.Status(string(r.Status)),
			)
		}
		table.Render()
		output.Println()
	}

	if dataType != analytics.DataFixed {
		output.Bold("Stock Selections (%d)", len(view.SelectionRecords))
		table := NewTable(output, "ID", "Executed", "Model", "Stock", "Name", "Period", "Buy", "Sell", "P&L", "Return", "Status", "Reason")
		for _, r := range view.SelectionRecords {
			table.AddRow(
				fmt.Sprintf("%d", r.ID),
				FormatDate(r.ExecutionDate),
				r.ModelDisplayName,
				r.StockCode,
				truncate(pricing.StockName(r.StockCode), 10),
				string(r.AnalysisPeriod),
				FormatYen(r.BuyPrice),
				FormatYen(r.SellPrice),
				output.FormatPnL(r.ProfitLoss),
				output.FormatPercent(r.ReturnRate),
				output.Status(string(r.Status)),
				truncate(r.SelectionReason, 24),
			)
		}
		table.Render()
		output.Println()
	}

	output.Dim("Total: %d records", view.TotalCount)
}
