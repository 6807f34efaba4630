// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrate(context.Background(), db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func dbError(op string, err error) error {
	return errors.NewDataError("sqlite", "", op, fmt.Errorf("%w: %v", errors.ErrDatabaseError, err))
}

// ============================================================================
// Fixed Trade Methods
// ============================================================================

const fixedColumns = `id, execution_date, model_id, stock_code, buy_date, buy_price, sell_date, sell_price,
	predicted_price, predicted_high, predicted_low, profit_loss, return_rate, prediction_accuracy,
	period_days, notes, status, created_at`

// SaveFixedTrade inserts a fixed trade and sets its ID. CreatedAt defaults to now
// and Status to SETTLED.
func (s *SQLiteStore) SaveFixedTrade(ctx context.Context, t *models.FixedTrade) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = models.StatusSettled
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fixed_stock_analysis (execution_date, model_id, stock_code, buy_date, buy_price,
			sell_date, sell_price, predicted_price, predicted_high, predicted_low, profit_loss,
			return_rate, prediction_accuracy, period_days, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ExecutionDate.UTC(), t.ModelID, t.StockCode, t.BuyDate.UTC(), t.BuyPrice,
		t.SellDate.UTC(), t.SellPrice, t.PredictedPrice, nullFloat(t.PredictedHigh), nullFloat(t.PredictedLow),
		t.ProfitLoss, t.ReturnRate, t.PredictionAccuracy, t.PeriodDays, t.Notes, string(t.Status), t.CreatedAt.UTC())
	if err != nil {
		return dbError("failed to save fixed trade", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return dbError("failed to read fixed trade id", err)
	}
	t.ID = id
	return nil
}

// LoadFixedTrades returns every fixed trade, newest first.
func (s *SQLiteStore) LoadFixedTrades(ctx context.Context) ([]models.FixedTrade, error) {
	return s.queryFixed(ctx, "SELECT "+fixedColumns+" FROM fixed_stock_analysis ORDER BY created_at DESC, id DESC")
}

// PendingFixedTrades returns unsettled fixed trades executed at or after since, oldest first.
func (s *SQLiteStore) PendingFixedTrades(ctx context.Context, since time.Time) ([]models.FixedTrade, error) {
	return s.queryFixed(ctx, "SELECT "+fixedColumns+` FROM fixed_stock_analysis
		WHERE status = ? AND execution_date >= ?
		ORDER BY execution_date ASC, id ASC`, string(models.StatusPending), since.UTC())
}

// UpdateFixedSettlement writes the resolved prices, dates and derived figures of t.
func (s *SQLiteStore) UpdateFixedSettlement(ctx context.Context, t *models.FixedTrade) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fixed_stock_analysis
		SET buy_date = ?, buy_price = ?, sell_date = ?, sell_price = ?, profit_loss = ?,
			return_rate = ?, prediction_accuracy = ?, period_days = ?, status = ?
		WHERE id = ?
	`, t.BuyDate.UTC(), t.BuyPrice, t.SellDate.UTC(), t.SellPrice, t.ProfitLoss,
		t.ReturnRate, t.PredictionAccuracy, t.PeriodDays, string(t.Status), t.ID)
	if err != nil {
		return dbError("failed to update fixed trade", err)
	}
	return requireRow(res, "fixed", t.ID)
}

func (s *SQLiteStore) queryFixed(ctx context.Context, query string, args ...interface{}) ([]models.FixedTrade, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query fixed trades", err)
	}
	defer rows.Close()

	trades := []models.FixedTrade{}
	for rows.Next() {
		t, err := scanFixed(rows)
		if err != nil {
			return nil, dbError("failed to scan fixed trade", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating fixed trades", err)
	}
	return trades, nil
}

func scanFixed(row rowScanner) (models.FixedTrade, error) {
	var t models.FixedTrade
	var high, low sql.NullFloat64
	var notes sql.NullString
	var status string
	err := row.Scan(&t.ID, &t.ExecutionDate, &t.ModelID, &t.StockCode, &t.BuyDate, &t.BuyPrice,
		&t.SellDate, &t.SellPrice, &t.PredictedPrice, &high, &low, &t.ProfitLoss, &t.ReturnRate,
		&t.PredictionAccuracy, &t.PeriodDays, &notes, &status, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.PredictedHigh = floatPtr(high)
	t.PredictedLow = floatPtr(low)
	t.Notes = notes.String
	t.Status = models.SettlementStatus(status)
	return t, nil
}

// ============================================================================
// Selection Trade Methods
// ============================================================================

const selectionColumns = `id, execution_date, analysis_period, model_id, stock_code, selection_reason,
	buy_date, buy_price, sell_date, sell_price, profit_loss, return_rate, period_days, notes, status, created_at`

// SaveSelectionTrade inserts a selection trade and sets its ID.
func (s *SQLiteStore) SaveSelectionTrade(ctx context.Context, t *models.SelectionTrade) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = models.StatusSettled
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_selection_analysis (execution_date, analysis_period, model_id, stock_code,
			selection_reason, buy_date, buy_price, sell_date, sell_price, profit_loss, return_rate,
			period_days, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ExecutionDate.UTC(), string(t.AnalysisPeriod), t.ModelID, t.StockCode, t.SelectionReason,
		t.BuyDate.UTC(), t.BuyPrice, t.SellDate.UTC(), t.SellPrice, t.ProfitLoss, t.ReturnRate,
		t.PeriodDays, t.Notes, string(t.Status), t.CreatedAt.UTC())
	if err != nil {
		return dbError("failed to save selection trade", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return dbError("failed to read selection trade id", err)
	}
	t.ID = id
	return nil
}

// LoadSelectionTrades returns every selection trade, newest first.
func (s *SQLiteStore) LoadSelectionTrades(ctx context.Context) ([]models.SelectionTrade, error) {
	return s.querySelection(ctx, "SELECT "+selectionColumns+" FROM stock_selection_analysis ORDER BY created_at DESC, id DESC")
}

// PendingSelectionTrades returns unsettled selection trades executed at or after since, oldest first.
func (s *SQLiteStore) PendingSelectionTrades(ctx context.Context, since time.Time) ([]models.SelectionTrade, error) {
	return s.querySelection(ctx, "SELECT "+selectionColumns+` FROM stock_selection_analysis
		WHERE status = ? AND execution_date >= ?
		ORDER BY execution_date ASC, id ASC`, string(models.StatusPending), since.UTC())
}

// UpdateSelectionSettlement writes the resolved prices, dates and derived figures of t.
func (s *SQLiteStore) UpdateSelectionSettlement(ctx context.Context, t *models.SelectionTrade) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stock_selection_analysis
		SET buy_date = ?, buy_price = ?, sell_date = ?, sell_price = ?, profit_loss = ?,
			return_rate = ?, period_days = ?, status = ?
		WHERE id = ?
	`, t.BuyDate.UTC(), t.BuyPrice, t.SellDate.UTC(), t.SellPrice, t.ProfitLoss,
		t.ReturnRate, t.PeriodDays, string(t.Status), t.ID)
	if err != nil {
		return dbError("failed to update selection trade", err)
	}
	return requireRow(res, "selection", t.ID)
}

func (s *SQLiteStore) querySelection(ctx context.Context, query string, args ...interface{}) ([]models.SelectionTrade, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to query selection trades", err)
	}
	defer rows.Close()

	trades := []models.SelectionTrade{}
	for rows.Next() {
		t, err := scanSelection(rows)
		if err != nil {
			return nil, dbError("failed to scan selection trade", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating selection trades", err)
	}
	return trades, nil
}

func scanSelection(row rowScanner) (models.SelectionTrade, error) {
	var t models.SelectionTrade
	var period, status string
	var notes sql.NullString
	err := row.Scan(&t.ID, &t.ExecutionDate, &period, &t.ModelID, &t.StockCode, &t.SelectionReason,
		&t.BuyDate, &t.BuyPrice, &t.SellDate, &t.SellPrice, &t.ProfitLoss, &t.ReturnRate,
		&t.PeriodDays, &notes, &status, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	t.AnalysisPeriod = models.AnalysisPeriod(period)
	t.Notes = notes.String
	t.Status = models.SettlementStatus(status)
	return t, nil
}

// ============================================================================
// Model Registry Methods
// ============================================================================

// UpsertModel inserts or replaces a registry entry.
func (s *SQLiteStore) UpsertModel(ctx context.Context, m models.AIModel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_models (code, display_name, provider, active, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			display_name = excluded.display_name,
			provider = excluded.provider,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, m.Code, m.DisplayName, m.Provider, boolToInt(m.Active), time.Now().UTC())
	if err != nil {
		return dbError("failed to upsert model", err)
	}
	return nil
}

// GetModels returns every registry entry ordered by code.
func (s *SQLiteStore) GetModels(ctx context.Context) ([]models.AIModel, error) {
	return s.queryModels(ctx, `SELECT code, display_name, provider, active FROM ai_models ORDER BY code`)
}

// GetActiveModels returns the active registry entries ordered by code.
func (s *SQLiteStore) GetActiveModels(ctx context.Context) ([]models.AIModel, error) {
	return s.queryModels(ctx, `SELECT code, display_name, provider, active FROM ai_models WHERE active = 1 ORDER BY code`)
}

// DeactivateModel marks a registry entry inactive. Its records are kept.
func (s *SQLiteStore) DeactivateModel(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_models SET active = 0, updated_at = ? WHERE code = ?
	`, time.Now().UTC(), code)
	if err != nil {
		return dbError("failed to deactivate model", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("failed to deactivate model", err)
	}
	if n == 0 {
		return errors.NewDataError("model", code, "not registered", errors.ErrDataNotFound)
	}
	return nil
}

func (s *SQLiteStore) queryModels(ctx context.Context, query string) ([]models.AIModel, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbError("failed to query models", err)
	}
	defer rows.Close()

	list := []models.AIModel{}
	for rows.Next() {
		var m models.AIModel
		var provider sql.NullString
		var active int
		if err := rows.Scan(&m.Code, &m.DisplayName, &provider, &active); err != nil {
			return nil, dbError("failed to scan model", err)
		}
		m.Provider = provider.String
		m.Active = active == 1
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating models", err)
	}
	return list, nil
}

// ============================================================================
// Schema Methods
// ============================================================================

// Migrations lists the recorded schema migrations in execution order.
func (s *SQLiteStore) Migrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, executed_at, success FROM schema_migrations ORDER BY name
	`)
	if err != nil {
		return nil, dbError("failed to query migrations", err)
	}
	defer rows.Close()

	records := []MigrationRecord{}
	for rows.Next() {
		var r MigrationRecord
		var success int
		if err := rows.Scan(&r.Name, &r.ExecutedAt, &success); err != nil {
			return nil, dbError("failed to scan migration", err)
		}
		r.Success = success == 1
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating migrations", err)
	}
	return records, nil
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("failed to read affected rows", err)
	}
	if n == 0 {
		return errors.NewDataError(kind, fmt.Sprint(id), "record not found", errors.ErrDataNotFound)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
