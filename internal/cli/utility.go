package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"llm-trade-verifier/internal/api"
	"llm-trade-verifier/internal/export"
	"llm-trade-verifier/internal/store"
)

// addUtilityCommands adds export, server and schema commands.
func addUtilityCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newMigrateCmd(app))
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data",
	}

	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Export records or the ranking as CSV",
		Long: `Write the filtered records as two CSV tables, fixed then selection, or the
model ranking with --ranking. --type fixed or --type selection writes one table. Files start with a byte order mark so spreadsheet
tools detect UTF-8.`,
		Example: `  verifier export csv --out records.csv
  verifier export csv --model gpt-4 --from 2025-05-01 --out gpt4.csv
  verifier export csv --type selection --out selection.csv
  verifier export csv --ranking --out ranking.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			outPath, _ := cmd.Flags().GetString("out")
			ranking, _ := cmd.Flags().GetBool("ranking")

			svc, err := app.Analytics()
			if err != nil {
				return err
			}

			var w io.Writer = output.Writer()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					output.Error("Failed to create %s: %v", outPath, err)
					return err
				}
				defer f.Close()
				w = f
			}

			var rows int
			if ranking {
				stats, err := svc.Ranking(ctx)
				if err != nil {
					output.Error("Failed to compute ranking: %v", err)
					return err
				}
				if err := export.WriteRanking(w, stats); err != nil {
					return err
				}
				rows = len(stats)
			} else {
				spec, err := filterFromFlags(cmd)
				if err != nil {
					output.Error("Invalid filter: %v", err)
					return err
				}
				view, err := svc.FilterRecords(ctx, spec)
				if err != nil {
					output.Error("Failed to filter records: %v", err)
					return err
				}
				if err := export.WriteType(w, view, spec.DataType); err != nil {
					return err
				}
				rows = view.TotalCount
			}

			if outPath != "" {
				output.Success("✓ Exported %d rows to %s", rows, outPath)
			}
			return nil
		},
	}
	addFilterFlags(csvCmd)
	csvCmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	csvCmd.Flags().Bool("ranking", false, "Export the model ranking instead of records")
	cmd.AddCommand(csvCmd)

	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only JSON API",
		Long: `Start the HTTP API. Endpoints:

  GET /healthz
  GET /api/v1/summary
  GET /api/v1/ranking
  GET /api/v1/chart
  GET /api/v1/records?type=&model_id=&start_date=&end_date=&min_return=&max_return=&sort_by=&sort_order=&status=
  GET /api/v1/export.csv (same query parameters)
  GET /api/v1/models

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Server.Addr
			}
			debug, _ := cmd.Flags().GetBool("debug")
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			st, err := app.Store()
			if err != nil {
				return err
			}
			svc, err := app.Analytics()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(svc, st, app.Logger)
			return server.Run(ctx, api.Config{
				Addr:         addr,
				ReadTimeout:  app.Config.Server.ReadTimeout,
				WriteTimeout: app.Config.Server.WriteTimeout,
			})
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}

func newMigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
		Long:  "Migrations run automatically whenever the database is opened.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			st, err := app.Store()
			if err != nil {
				output.Error("Failed to open database: %v", err)
				return err
			}
			records, err := st.Migrations(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				if records == nil {
					records = []store.MigrationRecord{}
				}
				return output.JSON(records)
			}

			output.Bold("Database: %s", app.Config.Database.Path)
			table := NewTable(output, "Migration", "Executed", "Result")
			for _, r := range records {
				result := output.Green("ok")
				if !r.Success {
					result = output.Red("failed")
				}
				table.AddRow(r.Name, FormatDateTime(r.ExecutedAt), result)
			}
			table.Render()
			return nil
		},
	})

	return cmd
}
