package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/importer"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/pricing"
	"llm-trade-verifier/internal/registry"
)

// addDataCommands adds the import, settlement backfill and registry commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newUpdateCmd(app))
	rootCmd.AddCommand(newModelsCmd(app))
}

// parseRunDate parses a yyyymmdd argument as midnight UTC.
func parseRunDate(arg string) (time.Time, error) {
	t, err := time.Parse(importer.DateLayout, arg)
	if err != nil {
		return time.Time{}, errors.NewValidationError("date", arg, "expected yyyymmdd")
	}
	return t, nil
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <yyyymmdd>",
		Short: "Import saved model responses as pending records",
		Long: `Parse the response files saved under <responses_dir>/<yyyymmdd>/ and store
one pending fixed-stock record per model plus one pending selection record per
pick. Buying starts the Monday after the date. Run 'verifier update' once the
week has closed to settle them.`,
		Example: `  verifier import 20250525`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			date, err := parseRunDate(args[0])
			if err != nil {
				return err
			}
			st, err := app.Store()
			if err != nil {
				return err
			}

			im := importer.NewImporter(importer.Config{
				ResponsesDir:          app.Config.Import.ResponsesDir,
				ResponseFiles:         app.Config.Import.ResponseFiles,
				FixedStockCode:        app.Config.Import.FixedStockCode,
				DefaultPredictedPrice: app.Config.Import.DefaultPredictedPrice,
			}, st, app.Logger)

			report, err := im.Import(ctx, date)
			if output.IsJSON() {
				if err != nil {
					return err
				}
				return output.JSON(report)
			}
			if err != nil {
				output.Error("Import failed: %v", err)
				return err
			}

			output.Bold("Imported responses for %s", args[0])
			output.Printf("  Buy week starts: %s\n", FormatDate(report.BuyDate))
			output.Println()
			table := NewTable(output, "Model", "File", "Picks", "Fixed", "Predicted", "Note")
			for _, m := range report.Models {
				fixed := "-"
				if m.Fixed {
					fixed = "✓"
				}
				predicted := "-"
				if m.PredictedPrice > 0 {
					predicted = FormatYen(m.PredictedPrice)
				}
				table.AddRow(m.ModelID, m.File, fmt.Sprintf("%d", m.Selections), fixed, predicted, output.Yellow(m.Error))
			}
			table.Render()
			output.Println()
			output.Success("✓ %d pending records saved", report.Total)
			return nil
		},
	}
}

func newUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <yyyymmdd>",
		Short: "Settle pending records with actual closing prices",
		Long: `Look up closing prices for every pending record executed within --days
before the date and fill in prices, profit, return and accuracy. Records whose
sell date has not arrived yet stay pending.`,
		Example: `  verifier update 20250601
  verifier update 20250601 --days 14`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			date, err := parseRunDate(args[0])
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")
			if days < 0 {
				return errors.NewValidationError("days", days, "must not be negative")
			}
			since := date.AddDate(0, 0, -days)

			st, err := app.Store()
			if err != nil {
				return err
			}
			settler := pricing.NewSettler(app.Prices(), app.Logger)
			report, err := settler.Backfill(ctx, st, since)
			if err != nil {
				output.Error("Update failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			output.Bold("Settlement since %s", FormatDate(since))
			output.Printf("  Updated: %s\n", output.Green(fmt.Sprintf("%d", report.Updated)))
			output.Printf("  Skipped: %d\n", report.Skipped)
			if report.Failed > 0 {
				output.Printf("  Failed:  %s\n", output.Red(fmt.Sprintf("%d", report.Failed)))
				output.Dim("Failed records stay pending; see the log for details.")
			} else {
				output.Printf("  Failed:  0\n")
			}
			return nil
		},
	}
	cmd.Flags().Int("days", 7, "How many days before the date to look back")
	return cmd
}

func newModelsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model registry",
		Long:  "List, add, sync and deactivate the language models under evaluation.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered models",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			st, err := app.Store()
			if err != nil {
				return err
			}
			list, err := st.GetModels(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				if list == nil {
					list = []models.AIModel{}
				}
				return output.JSON(list)
			}

			table := NewTable(output, "Code", "Name", "Provider", "Active")
			for _, m := range list {
				active := output.Green("yes")
				if !m.Active {
					active = output.DimText("no")
				}
				table.AddRow(m.Code, m.DisplayName, m.Provider, active)
			}
			table.Render()
			return nil
		},
	})

	add := &cobra.Command{
		Use:     "add <code>",
		Short:   "Add or update a model",
		Example: `  verifier models add gpt-4o --name "GPT-4o" --provider OpenAI`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			name, _ := cmd.Flags().GetString("name")
			provider, _ := cmd.Flags().GetString("provider")
			inactive, _ := cmd.Flags().GetBool("inactive")
			if name == "" {
				name = args[0]
			}
			m := models.AIModel{Code: args[0], DisplayName: name, Provider: provider, Active: !inactive}

			st, err := app.Store()
			if err != nil {
				return err
			}
			if err := st.UpsertModel(ctx, m); err != nil {
				output.Error("Failed to save model: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(m)
			}
			output.Success("✓ Model %s saved", m.Code)
			return nil
		},
	}
	add.Flags().String("name", "", "Display name (defaults to the code)")
	add.Flags().String("provider", "", "Provider name")
	add.Flags().Bool("inactive", false, "Register the model as inactive")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "sync <file.yaml>",
		Short: "Upsert every model in a YAML seed file",
		Long: `Read a seed file of the form

  models:
    - code: gpt-4o
      display_name: GPT-4o
      provider: OpenAI
      active: true

and add or update each entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			list, err := registry.LoadFile(args[0])
			if err != nil {
				output.Error("Failed to read seed file: %v", err)
				return err
			}
			st, err := app.Store()
			if err != nil {
				return err
			}
			for _, m := range list {
				if err := st.UpsertModel(ctx, m); err != nil {
					output.Error("Failed to save model %s: %v", m.Code, err)
					return err
				}
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"synced": len(list)})
			}
			output.Success("✓ %d models synced", len(list))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <code>",
		Short: "Stop showing a model's registry name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			st, err := app.Store()
			if err != nil {
				return err
			}
			if err := st.DeactivateModel(ctx, args[0]); err != nil {
				output.Error("Failed to deactivate %s: %v", args[0], err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deactivated": args[0]})
			}
			output.Success("✓ Model %s deactivated", args[0])
			return nil
		},
	})

	return cmd
}
