package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"llm-trade-verifier/internal/registry"
)

type migration struct {
	name  string
	apply func(ctx context.Context, tx *sql.Tx) error
}

func execAll(statements ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// migrations run in order. Names are recorded in schema_migrations and never reused.
var migrations = []migration{
	{
		name: "001_initial_schema",
		apply: func(ctx context.Context, tx *sql.Tx) error {
			err := execAll(`
			-- Fixed-stock price predictions
			CREATE TABLE IF NOT EXISTS fixed_stock_analysis (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				execution_date DATETIME NOT NULL,
				model_id TEXT NOT NULL,
				stock_code TEXT NOT NULL,
				buy_date DATE NOT NULL,
				buy_price REAL NOT NULL,
				sell_date DATE NOT NULL,
				sell_price REAL NOT NULL,
				predicted_price REAL NOT NULL,
				profit_loss REAL NOT NULL,
				return_rate REAL NOT NULL,
				prediction_accuracy REAL NOT NULL,
				period_days INTEGER NOT NULL,
				notes TEXT,
				created_at DATETIME NOT NULL
			);

			-- Multi-stock selection picks
			CREATE TABLE IF NOT EXISTS stock_selection_analysis (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				execution_date DATETIME NOT NULL,
				analysis_period TEXT NOT NULL,
				model_id TEXT NOT NULL,
				stock_code TEXT NOT NULL,
				selection_reason TEXT NOT NULL,
				buy_date DATE NOT NULL,
				buy_price REAL NOT NULL,
				sell_date DATE NOT NULL,
				sell_price REAL NOT NULL,
				profit_loss REAL NOT NULL,
				return_rate REAL NOT NULL,
				period_days INTEGER NOT NULL,
				notes TEXT,
				created_at DATETIME NOT NULL
			);

			-- Model registry
			CREATE TABLE IF NOT EXISTS ai_models (
				code TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				provider TEXT,
				active INTEGER DEFAULT 1,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_fixed_model ON fixed_stock_analysis(model_id);
			CREATE INDEX IF NOT EXISTS idx_fixed_execution_date ON fixed_stock_analysis(execution_date);
			CREATE INDEX IF NOT EXISTS idx_selection_model ON stock_selection_analysis(model_id);
			CREATE INDEX IF NOT EXISTS idx_selection_execution_date ON stock_selection_analysis(execution_date);
			`)(ctx, tx)
			if err != nil {
				return err
			}

			for _, m := range registry.DefaultModels() {
				if _, err := tx.ExecContext(ctx, `
					INSERT OR IGNORE INTO ai_models (code, display_name, provider, active)
					VALUES (?, ?, ?, ?)
				`, m.Code, m.DisplayName, m.Provider, boolToInt(m.Active)); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		// Zero profit used to mark unsettled placeholders; make it an explicit status.
		name: "002_add_settlement_status",
		apply: execAll(
			`ALTER TABLE fixed_stock_analysis ADD COLUMN status TEXT NOT NULL DEFAULT 'SETTLED'`,
			`ALTER TABLE stock_selection_analysis ADD COLUMN status TEXT NOT NULL DEFAULT 'SETTLED'`,
			`UPDATE fixed_stock_analysis SET status = 'PENDING' WHERE profit_loss = 0`,
			`UPDATE stock_selection_analysis SET status = 'PENDING' WHERE profit_loss = 0`,
			`CREATE INDEX IF NOT EXISTS idx_fixed_status ON fixed_stock_analysis(status)`,
			`CREATE INDEX IF NOT EXISTS idx_selection_status ON stock_selection_analysis(status)`,
		),
	},
	{
		name: "003_add_prediction_range",
		apply: execAll(
			`ALTER TABLE fixed_stock_analysis ADD COLUMN predicted_high REAL`,
			`ALTER TABLE fixed_stock_analysis ADD COLUMN predicted_low REAL`,
		),
	},
}

// migrate applies every migration in list that has not succeeded yet. It stops
// at the first failure, which is recorded with success = 0.
func migrate(ctx context.Context, db *sql.DB, list []migration) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			executed_at DATETIME NOT NULL,
			success INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	done := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations WHERE success = 1`)
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration: %w", err)
		}
		done[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating migrations: %w", err)
	}

	for _, m := range list {
		if done[m.name] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			_, _ = db.ExecContext(ctx, `
				INSERT OR REPLACE INTO schema_migrations (name, executed_at, success) VALUES (?, ?, 0)
			`, m.name, time.Now().UTC())
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO schema_migrations (name, executed_at, success) VALUES (?, ?, 1)
	`, m.name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
