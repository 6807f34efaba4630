// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "llm-trade-verifier", "logs", "verifier.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
// Console output goes to stderr so that --json command output stays clean on stdout.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = io.Discard
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a config level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithModel adds a model id to the logger context.
func WithModel(logger zerolog.Logger, modelID string) zerolog.Logger {
	return logger.With().Str("model_id", modelID).Logger()
}

// WithStock adds a stock code to the logger context.
func WithStock(logger zerolog.Logger, stockCode string) zerolog.Logger {
	return logger.With().Str("stock_code", stockCode).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogTradeRecorded logs a newly stored trade record.
func LogTradeRecorded(logger zerolog.Logger, kind string, id int64, modelID, stockCode string, returnRate float64) {
	logger.Info().
		Str("event", "trade_recorded").
		Str("kind", kind).
		Int64("id", id).
		Str("model_id", modelID).
		Str("stock_code", stockCode).
		Float64("return_rate", returnRate).
		Msg("Trade recorded")
}

// LogSettlement logs a settled record.
func LogSettlement(logger zerolog.Logger, kind string, id int64, buyPrice, sellPrice, returnRate float64) {
	logger.Info().
		Str("event", "settlement").
		Str("kind", kind).
		Int64("id", id).
		Float64("buy_price", buyPrice).
		Float64("sell_price", sellPrice).
		Float64("return_rate", returnRate).
		Msg("Trade settled")
}

// LogAggregation logs one engine aggregation call.
func LogAggregation(logger zerolog.Logger, operation string, fixed, selection int, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "aggregation").
		Str("operation", operation).
		Int("fixed_records", fixed).
		Int("selection_records", selection).
		Dur("duration", duration)

	if err != nil {
		logger.Error().
			Str("event", "aggregation").
			Str("operation", operation).
			Err(err).
			Msg("Aggregation failed")
		return
	}
	event.Msg("Aggregation completed")
}

// LogPriceLookup logs a closing price lookup.
func LogPriceLookup(logger zerolog.Logger, source, stockCode, date string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "price_lookup").
		Str("source", source).
		Str("stock_code", stockCode).
		Str("date", date).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Price lookup failed")
	} else {
		event.Msg("Price lookup completed")
	}
}
