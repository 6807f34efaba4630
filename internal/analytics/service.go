package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/registry"
)

// TradeSource loads the raw record collections.
type TradeSource interface {
	LoadFixedTrades(ctx context.Context) ([]models.FixedTrade, error)
	LoadSelectionTrades(ctx context.Context) ([]models.SelectionTrade, error)
}

// ModelSource supplies the registry entries used for display names.
type ModelSource interface {
	GetActiveModels(ctx context.Context) ([]models.AIModel, error)
}

// Service runs the aggregation operations against a fresh snapshot per call.
type Service struct {
	trades TradeSource
	models ModelSource
	logger zerolog.Logger
}

// NewService creates a Service. ms may be nil, in which case every model
// is labelled by its raw id.
func NewService(ts TradeSource, ms ModelSource, logger zerolog.Logger) *Service {
	return &Service{trades: ts, models: ms, logger: logger}
}

// Load reads both collections and the registry.
func (s *Service) Load(ctx context.Context) (Dataset, error) {
	fixed, err := s.trades.LoadFixedTrades(ctx)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "loading fixed trades")
	}
	selection, err := s.trades.LoadSelectionTrades(ctx)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "loading selection trades")
	}

	var reg registry.Registry
	if s.models != nil {
		list, err := s.models.GetActiveModels(ctx)
		if err != nil {
			return Dataset{}, errors.Wrap(err, "loading model registry")
		}
		reg = registry.FromModels(list)
	}

	return Dataset{Fixed: fixed, Selection: selection, Registry: reg}, nil
}

// Ranking returns per-model statistics ordered by overall win rate.
func (s *Service) Ranking(ctx context.Context) ([]ModelStats, error) {
	start := time.Now()
	ds, err := s.Load(ctx)
	if err != nil {
		logging.LogAggregation(s.logger, "ranking", 0, 0, time.Since(start), err)
		return []ModelStats{}, err
	}
	ranking, err := ComputeRanking(ds)
	logging.LogAggregation(s.logger, "ranking", len(ds.Fixed), len(ds.Selection), time.Since(start), err)
	return ranking, err
}

// ChartSummary returns chart series for the top-ranked models.
func (s *Service) ChartSummary(ctx context.Context) (ChartData, error) {
	ranking, err := s.Ranking(ctx)
	if err != nil {
		return Chart(nil), err
	}
	return Chart(ranking), nil
}

// FilterRecords returns a filtered, sorted view.
func (s *Service) FilterRecords(ctx context.Context, spec FilterSpec) (FilteredView, error) {
	start := time.Now()
	if err := spec.WithDefaults().Validate(); err != nil {
		return emptyView(), err
	}
	ds, err := s.Load(ctx)
	if err != nil {
		logging.LogAggregation(s.logger, "filter", 0, 0, time.Since(start), err)
		return emptyView(), err
	}
	view, err := FilterRecords(ds, spec)
	logging.LogAggregation(s.logger, "filter", len(ds.Fixed), len(ds.Selection), time.Since(start), err)
	return view, err
}

// SummaryStats returns the headline figures over every stored record.
func (s *Service) SummaryStats(ctx context.Context) (Summary, error) {
	start := time.Now()
	ds, err := s.Load(ctx)
	if err != nil {
		logging.LogAggregation(s.logger, "summary", 0, 0, time.Since(start), err)
		return Summary{}, err
	}
	summary, err := Summarize(ds)
	logging.LogAggregation(s.logger, "summary", len(ds.Fixed), len(ds.Selection), time.Since(start), err)
	return summary, err
}
