package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/pricing"
)

// addJournalCommands adds the commands that record predictions.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	fixedCmd := &cobra.Command{
		Use:   "fixed",
		Short: "Fixed-stock price predictions",
		Long:  "Record and settle predictions of one designated stock's closing price.",
	}
	fixedCmd.AddCommand(newFixedRecordCmd(app))
	rootCmd.AddCommand(fixedCmd)

	selectCmd := &cobra.Command{
		Use:   "select",
		Short: "Stock selection picks",
		Long:  "Record and settle stocks a model picked for a holding period.",
	}
	selectCmd.AddCommand(newSelectRecordCmd(app))
	rootCmd.AddCommand(selectCmd)
}

func newFixedRecordCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Settle a fixed-stock prediction",
		Long: `Look up the buy and sell closes of the stock, then derive profit,
return rate and prediction accuracy. Without --save the result is only shown.`,
		Example: `  verifier fixed record --model gpt-4 --stock 7203 --predicted 2550 --buy 2025-05-26 --sell 2025-05-30
  verifier fixed record --model claude-3-sonnet --stock 7203 --predicted 2600 --high 2650 --low 2480 \
      --buy 2025-05-26 --sell 2025-05-30 --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			model, _ := cmd.Flags().GetString("model")
			stock, _ := cmd.Flags().GetString("stock")
			predicted, _ := cmd.Flags().GetFloat64("predicted")
			buyArg, _ := cmd.Flags().GetString("buy")
			sellArg, _ := cmd.Flags().GetString("sell")
			notes, _ := cmd.Flags().GetString("notes")
			save, _ := cmd.Flags().GetBool("save")

			if flag := missing("model", model, "stock", stock, "buy", buyArg, "sell", sellArg); flag != "" {
				return requireArg(output, flag)
			}
			buy, err := parseDay("buy", buyArg)
			if err != nil {
				return err
			}
			sell, err := parseDay("sell", sellArg)
			if err != nil {
				return err
			}

			req := pricing.FixedRequest{
				ModelID:        model,
				StockCode:      stock,
				PredictedPrice: predicted,
				BuyDate:        buy,
				SellDate:       sell,
				Notes:          notes,
			}
			if cmd.Flags().Changed("high") {
				high, _ := cmd.Flags().GetFloat64("high")
				req.PredictedHigh = &high
			}
			if cmd.Flags().Changed("low") {
				low, _ := cmd.Flags().GetFloat64("low")
				req.PredictedLow = &low
			}

			settler := pricing.NewSettler(app.Prices(), app.Logger)
			trade, err := settler.SettleFixed(ctx, req)
			if err != nil {
				output.Error("Failed to settle prediction: %v", err)
				return err
			}

			if save {
				st, err := app.Store()
				if err != nil {
					return err
				}
				if err := st.SaveFixedTrade(ctx, trade); err != nil {
					output.Error("Failed to save record: %v", err)
					return err
				}
				logging.LogTradeRecorded(app.Logger, string(models.KindFixed), trade.ID, trade.ModelID, trade.StockCode, trade.ReturnRate)
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			displayFixedTrade(output, trade)
			if save {
				output.Success("✓ Saved as fixed record #%d", trade.ID)
			} else {
				output.Dim("Not saved. Re-run with --save to store this record.")
			}
			return nil
		},
	}

	cmd.Flags().String("model", "", "Model ID that made the prediction")
	cmd.Flags().String("stock", "", "Stock code (4 digits)")
	cmd.Flags().Float64("predicted", 0, "Predicted closing price on the sell date")
	cmd.Flags().Float64("high", 0, "Predicted high (optional)")
	cmd.Flags().Float64("low", 0, "Predicted low (optional)")
	cmd.Flags().String("buy", "", "Buy date (YYYY-MM-DD)")
	cmd.Flags().String("sell", "", "Sell date (YYYY-MM-DD)")
	cmd.Flags().String("notes", "", "Free-form notes")
	cmd.Flags().Bool("save", false, "Store the settled record")

	return cmd
}

func displayFixedTrade(output *Output, t *models.FixedTrade) {
	lines := []string{
		"Model:      " + t.ModelID,
		"Stock:      " + t.StockCode + " " + pricing.StockName(t.StockCode),
		"Buy:        " + FormatDate(t.BuyDate) + " @ " + FormatYen(t.BuyPrice),
		"Sell:       " + FormatDate(t.SellDate) + " @ " + FormatYen(t.SellPrice),
		"Predicted:  " + FormatYen(t.PredictedPrice),
	}
	if t.PredictedHigh != nil || t.PredictedLow != nil {
		lines = append(lines, "Range:      "+FormatOptionalYen(t.PredictedLow)+" - "+FormatOptionalYen(t.PredictedHigh))
	}
	lines = append(lines,
		"P&L:        "+output.FormatPnL(t.ProfitLoss),
		"Return:     "+output.FormatPercent(t.ReturnRate),
		"Accuracy:   "+FormatRate(t.PredictionAccuracy),
	)
	output.Box("Fixed-Stock Prediction", lines)
}

func newSelectRecordCmd(app *App) *cobra.Command {
	periods := make([]string, 0, len(models.AnalysisPeriods()))
	for _, p := range models.AnalysisPeriods() {
		periods = append(periods, string(p))
	}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Settle a stock selection pick",
		Long: `Look up the close on the buy date and at the end of the analysis period,
then derive profit and return rate. Without --save the result is only shown.

Periods: ` + strings.Join(periods, ", "),
		Example: `  verifier select record --model gpt-4 --stock 6758 --period 1ヶ月 --reason "Strong earnings" --buy 2025-05-26 --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			model, _ := cmd.Flags().GetString("model")
			stock, _ := cmd.Flags().GetString("stock")
			period, _ := cmd.Flags().GetString("period")
			reason, _ := cmd.Flags().GetString("reason")
			buyArg, _ := cmd.Flags().GetString("buy")
			notes, _ := cmd.Flags().GetString("notes")
			save, _ := cmd.Flags().GetBool("save")

			if flag := missing("model", model, "stock", stock, "reason", reason, "buy", buyArg); flag != "" {
				return requireArg(output, flag)
			}
			if !models.AnalysisPeriod(period).Valid() {
				output.Error("Unknown period %q (use one of %s)", period, strings.Join(periods, ", "))
				return errors.NewValidationError("period", period, "unknown analysis period")
			}
			buy, err := parseDay("buy", buyArg)
			if err != nil {
				return err
			}

			settler := pricing.NewSettler(app.Prices(), app.Logger)
			trade, err := settler.SettleSelection(ctx, pricing.SelectionRequest{
				ModelID:         model,
				StockCode:       stock,
				AnalysisPeriod:  models.AnalysisPeriod(period),
				SelectionReason: reason,
				BuyDate:         buy,
				Notes:           notes,
			})
			if err != nil {
				output.Error("Failed to settle pick: %v", err)
				return err
			}

			if save {
				st, err := app.Store()
				if err != nil {
					return err
				}
				if err := st.SaveSelectionTrade(ctx, trade); err != nil {
					output.Error("Failed to save record: %v", err)
					return err
				}
				logging.LogTradeRecorded(app.Logger, string(models.KindSelection), trade.ID, trade.ModelID, trade.StockCode, trade.ReturnRate)
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Box("Stock Selection Pick", []string{
				"Model:      " + trade.ModelID,
				"Stock:      " + trade.StockCode + " " + pricing.StockName(trade.StockCode),
				"Period:     " + string(trade.AnalysisPeriod),
				"Reason:     " + truncate(trade.SelectionReason, 40),
				"Buy:        " + FormatDate(trade.BuyDate) + " @ " + FormatYen(trade.BuyPrice),
				"Sell:       " + FormatDate(trade.SellDate) + " @ " + FormatYen(trade.SellPrice),
				"P&L:        " + output.FormatPnL(trade.ProfitLoss),
				"Return:     " + output.FormatPercent(trade.ReturnRate),
			})
			if save {
				output.Success("✓ Saved as selection record #%d", trade.ID)
			} else {
				output.Dim("Not saved. Re-run with --save to store this record.")
			}
			return nil
		},
	}

	cmd.Flags().String("model", "", "Model ID that made the pick")
	cmd.Flags().String("stock", "", "Stock code (4 digits)")
	cmd.Flags().String("period", string(models.PeriodOneWeek), "Analysis period")
	cmd.Flags().String("reason", "", "Why the model picked the stock")
	cmd.Flags().String("buy", "", "Buy date (YYYY-MM-DD)")
	cmd.Flags().String("notes", "", "Free-form notes")
	cmd.Flags().Bool("save", false, "Store the settled record")

	return cmd
}
