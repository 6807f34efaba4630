// Package config provides configuration management for the trade verifier.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
)

// Price source names.
const (
	PriceSourceYahoo  = "yahoo"
	PriceSourceSample = "sample"
	PriceSourceAuto   = "auto"
)

// Config holds all application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Server      ServerConfig      `mapstructure:"server"`
	Import      ImportConfig      `mapstructure:"import"`
	Prompt      PromptConfig      `mapstructure:"prompt"`
	LLM         LLMConfig         `mapstructure:"llm"`
	UI          UIConfig          `mapstructure:"ui"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	Credentials Credentials       `mapstructure:"-" json:"-"` // Loaded separately
	Dir         string            `mapstructure:"-"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PricingConfig selects and tunes the closing price source.
type PricingConfig struct {
	Source       string        `mapstructure:"source"` // yahoo, sample, auto
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MarketSuffix string        `mapstructure:"market_suffix"`
	Timezone     string        `mapstructure:"timezone"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ImportConfig holds the response importer settings.
type ImportConfig struct {
	ResponsesDir          string            `mapstructure:"responses_dir"`
	FixedStockCode        string            `mapstructure:"fixed_stock_code"`
	DefaultPredictedPrice float64           `mapstructure:"default_predicted_price"`
	ResponseFiles         map[string]string `mapstructure:"response_files"`
}

// PromptConfig holds the weekly prompt settings.
type PromptConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LLMConfig holds the model used by `prompt ask`.
type LLMConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/llm-trade-verifier"
	}
	return filepath.Join(home, ".config", "llm-trade-verifier")
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("database.path", filepath.Join(configDir, "verifier.db"))

	v.SetDefault("pricing.source", PriceSourceAuto)
	v.SetDefault("pricing.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("pricing.timeout", "30s")
	v.SetDefault("pricing.max_retries", 2)
	v.SetDefault("pricing.market_suffix", ".T")
	v.SetDefault("pricing.timezone", "Asia/Tokyo")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("import.responses_dir", filepath.Join(configDir, "ai_responses"))
	v.SetDefault("import.fixed_stock_code", "7203")
	v.SetDefault("import.default_predicted_price", 3000.0)

	v.SetDefault("prompt.output_dir", filepath.Join(configDir, "prompts"))

	v.SetDefault("llm.model", "gpt-4o")

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.console", logDefaults.Console)
	v.SetDefault("logging.file", logDefaults.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "verifier.log"))
	v.SetDefault("logging.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.max_age", logDefaults.MaxAge)
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// created from templates and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A .env next to the config files fills in unset variables only.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	cfg := &Config{Dir: configDir}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, create template and run on defaults
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return err
	}
	if len(cfg.Import.ResponseFiles) == 0 {
		cfg.Import.ResponseFiles = defaultResponseFiles()
	}
	return nil
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	// OpenAI credentials
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}

	if v := os.Getenv("VERIFIER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("VERIFIER_PRICE_SOURCE"); v != "" {
		cfg.Pricing.Source = v
	}
	if v := os.Getenv("VERIFIER_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("VERIFIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path must be set", errors.ErrConfigInvalid)
	}

	switch c.Pricing.Source {
	case PriceSourceYahoo, PriceSourceSample, PriceSourceAuto:
	default:
		return fmt.Errorf("%w: invalid pricing source: %s (must be 'yahoo', 'sample' or 'auto')", errors.ErrConfigInvalid, c.Pricing.Source)
	}
	if c.Pricing.Timeout <= 0 {
		return fmt.Errorf("%w: pricing.timeout must be positive", errors.ErrConfigInvalid)
	}
	if c.Pricing.MaxRetries < 0 {
		return fmt.Errorf("%w: pricing.max_retries must be non-negative", errors.ErrConfigInvalid)
	}
	if _, err := time.LoadLocation(c.Pricing.Timezone); err != nil {
		return fmt.Errorf("%w: unknown pricing.timezone %q", errors.ErrConfigInvalid, c.Pricing.Timezone)
	}

	if c.Import.DefaultPredictedPrice <= 0 {
		return fmt.Errorf("%w: import.default_predicted_price must be positive", errors.ErrConfigInvalid)
	}

	return nil
}

// Location returns the market timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pricing.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func defaultResponseFiles() map[string]string {
	return map[string]string{
		"claude_response.md":  "claude-3-sonnet",
		"chatgpt_response.md": "chatgpt-4",
		"gemini_response.md":  "gemini-pro",
	}
}
