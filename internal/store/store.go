// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"llm-trade-verifier/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Trade records
	SaveFixedTrade(ctx context.Context, trade *models.FixedTrade) error
	SaveSelectionTrade(ctx context.Context, trade *models.SelectionTrade) error
	LoadFixedTrades(ctx context.Context) ([]models.FixedTrade, error)
	LoadSelectionTrades(ctx context.Context) ([]models.SelectionTrade, error)

	// Settlement
	PendingFixedTrades(ctx context.Context, since time.Time) ([]models.FixedTrade, error)
	PendingSelectionTrades(ctx context.Context, since time.Time) ([]models.SelectionTrade, error)
	UpdateFixedSettlement(ctx context.Context, trade *models.FixedTrade) error
	UpdateSelectionSettlement(ctx context.Context, trade *models.SelectionTrade) error

	// Model registry
	UpsertModel(ctx context.Context, model models.AIModel) error
	GetModels(ctx context.Context) ([]models.AIModel, error)
	GetActiveModels(ctx context.Context) ([]models.AIModel, error)
	DeactivateModel(ctx context.Context, code string) error

	// Schema
	Migrations(ctx context.Context) ([]MigrationRecord, error)

	// Lifecycle
	Close() error
}

// MigrationRecord is one applied (or failed) schema migration.
type MigrationRecord struct {
	Name       string    `json:"name"`
	ExecutedAt time.Time `json:"executed_at"`
	Success    bool      `json:"success"`
}
