package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llm-trade-verifier/internal/analytics"
	"llm-trade-verifier/internal/config"
	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/pricing"
	"llm-trade-verifier/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	store  store.DataStore
	prices pricing.PriceSource
}

// NewRootCmd creates the root command for the CLI. When cfg is nil the
// configuration is loaded from the --config directory before any command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Config: cfg,
		Logger: logger,
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "verifier",
		Short: "LLM Trade Verifier - score language-model stock predictions",
		Long: `LLM Trade Verifier records stock predictions made by language models,
settles them against actual closing prices and ranks the models by how well
their calls performed.

Use 'verifier examples' to see common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/llm-trade-verifier)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides config)")

	addCoreCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addAnalyzeCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addPlanningCommands(rootCmd, app)
	addUtilityCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)
	closeAfterRun(rootCmd, app)

	return rootCmd
}

// closeAfterRun wraps every RunE in the tree so the store is released
// whether the command succeeds or fails.
func closeAfterRun(cmd *cobra.Command, app *App) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer app.Close()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, app)
	}
}

func (a *App) init(cmd *cobra.Command) error {
	if a.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		a.Config = cfg
		a.Logger = logging.NewLoggerWithConfig(cfg.Logging)
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		a.Config.Database.Path = db
	}

	// Handle debug flag
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

// Store opens the database on first use.
func (a *App) Store() (store.DataStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.NewSQLiteStore(a.Config.Database.Path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("SQLite store initialized")
	a.store = st
	return st, nil
}

// Analytics returns an aggregation service over the store.
func (a *App) Analytics() (*analytics.Service, error) {
	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	return analytics.NewService(st, st, a.Logger), nil
}

// Prices returns the configured closing price source.
func (a *App) Prices() pricing.PriceSource {
	if a.prices != nil {
		return a.prices
	}
	pc := a.Config.Pricing
	switch pc.Source {
	case config.PriceSourceSample:
		a.prices = pricing.SampleSource{}
	default:
		yahoo := pricing.NewYahooSource(pricing.YahooConfig{
			BaseURL:      pc.BaseURL,
			Timeout:      pc.Timeout,
			MaxRetries:   pc.MaxRetries,
			MarketSuffix: pc.MarketSuffix,
			Location:     a.Config.Location(),
		}, a.Logger)
		if pc.Source == config.PriceSourceAuto {
			live := pricing.NewBreakerSource(yahoo, pricing.DefaultBreakerConfig(), a.Logger)
			a.prices = pricing.NewAutoSource(live, a.Logger)
		} else {
			a.prices = yahoo
		}
	}
	a.Logger.Debug().Str("source", pc.Source).Msg("Price source initialized")
	return a.prices
}

// Close releases the store.
func (a *App) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close store")
	}
	a.store = nil
}

// parseDay parses a YYYY-MM-DD argument as midnight UTC.
func parseDay(flag, value string) (time.Time, error) {
	t, err := time.Parse(analytics.DateLayout, value)
	if err != nil {
		return time.Time{}, errors.NewValidationError(flag, value, "expected YYYY-MM-DD")
	}
	return t, nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("LLM Trade Verifier v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.Path(app.Config.Dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Database")
	output.Printf("  Path:            %s\n", cfg.Database.Path)
	output.Println()

	output.Bold("Pricing")
	output.Printf("  Source:          %s\n", cfg.Pricing.Source)
	output.Printf("  Base URL:        %s\n", cfg.Pricing.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.Pricing.Timeout)
	output.Printf("  Max Retries:     %d\n", cfg.Pricing.MaxRetries)
	output.Printf("  Market Suffix:   %s\n", cfg.Pricing.MarketSuffix)
	output.Printf("  Timezone:        %s\n", cfg.Pricing.Timezone)
	if cfg.Pricing.Source != config.PriceSourceYahoo {
		output.Printf("  Sample Codes:    %s\n", strings.Join(pricing.SampleCodes(), ", "))
	}
	output.Println()

	output.Bold("Import")
	output.Printf("  Responses Dir:   %s\n", cfg.Import.ResponsesDir)
	output.Printf("  Fixed Stock:     %s (%s)\n", cfg.Import.FixedStockCode, pricing.StockName(cfg.Import.FixedStockCode))
	output.Printf("  Default Price:   %s\n", FormatYen(cfg.Import.DefaultPredictedPrice))
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Println()

	output.Bold("LLM")
	output.Printf("  Model:           %s\n", cfg.LLM.Model)
	configured := "no"
	if cfg.Credentials.OpenAI.APIKey != "" {
		configured = "yes"
	}
	output.Printf("  API Key Set:     %s\n", configured)
}

// requireArg formats a missing-flag error the same way for every command.
func requireArg(output *Output, flag string) error {
	output.Error("--%s is required", flag)
	return fmt.Errorf("%w: --%s is required", errors.ErrInputValidation, flag)
}

// missing returns the first flag name in name/value pairs whose value is empty.
func missing(pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return pairs[i]
		}
	}
	return ""
}
