package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/pkg/utils"
)

// placeholderHoldDays is the Monday-to-Friday hold used when backfilling
// imported selection placeholders.
const placeholderHoldDays = 4

var validate = validator.New()

// FixedRequest asks for a fixed-stock prediction to be settled.
type FixedRequest struct {
	ExecutionDate  time.Time
	ModelID        string    `validate:"required"`
	StockCode      string    `validate:"required"`
	PredictedPrice float64   `validate:"gt=0"`
	PredictedHigh  *float64  `validate:"omitempty,gt=0"`
	PredictedLow   *float64  `validate:"omitempty,gt=0"`
	BuyDate        time.Time `validate:"required"`
	SellDate       time.Time `validate:"required,gtfield=BuyDate"`
	Notes          string
}

// SelectionRequest asks for a selection pick to be settled.
type SelectionRequest struct {
	ExecutionDate   time.Time
	ModelID         string                `validate:"required"`
	StockCode       string                `validate:"required"`
	AnalysisPeriod  models.AnalysisPeriod `validate:"required"`
	SelectionReason string                `validate:"required"`
	BuyDate         time.Time             `validate:"required"`
	Notes           string
}

// BackfillReport counts the outcome of a Backfill run.
type BackfillReport struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// SettlementStore is the part of the data store Backfill needs.
type SettlementStore interface {
	PendingFixedTrades(ctx context.Context, since time.Time) ([]models.FixedTrade, error)
	PendingSelectionTrades(ctx context.Context, since time.Time) ([]models.SelectionTrade, error)
	UpdateFixedSettlement(ctx context.Context, trade *models.FixedTrade) error
	UpdateSelectionSettlement(ctx context.Context, trade *models.SelectionTrade) error
}

// Settler resolves buy and sell closes and derives the trade figures.
type Settler struct {
	prices PriceSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewSettler creates a settler backed by prices.
func NewSettler(prices PriceSource, logger zerolog.Logger) *Settler {
	return &Settler{prices: prices, logger: logger, now: time.Now}
}

func checkRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Field(), fe.Value(), fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param()))
		}
		return errors.Wrap(err, "validating request")
	}
	return nil
}

// quotes resolves the buy and sell closes for code.
func (s *Settler) quotes(ctx context.Context, code string, buy, sell time.Time) (models.Quote, models.Quote, error) {
	buyQ, err := s.prices.ClosingPrice(ctx, code, buy)
	if err != nil {
		return models.Quote{}, models.Quote{}, fmt.Errorf("failed to get buy price: %w", err)
	}
	sellQ, err := s.prices.ClosingPrice(ctx, code, sell)
	if err != nil {
		return models.Quote{}, models.Quote{}, fmt.Errorf("failed to get sell price: %w", err)
	}
	return buyQ, sellQ, nil
}

// SettleFixed prices a fixed-stock prediction. The record is not saved.
func (s *Settler) SettleFixed(ctx context.Context, req FixedRequest) (*models.FixedTrade, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	code, err := NormalizeStockCode(req.StockCode)
	if err != nil {
		return nil, err
	}
	if req.ExecutionDate.IsZero() {
		req.ExecutionDate = s.now()
	}

	buyDate, sellDate := utils.DateOnly(req.BuyDate), utils.DateOnly(req.SellDate)
	trade := &models.FixedTrade{
		ExecutionDate:  req.ExecutionDate.UTC(),
		ModelID:        req.ModelID,
		StockCode:      code,
		BuyDate:        buyDate,
		SellDate:       sellDate,
		PredictedPrice: req.PredictedPrice,
		PredictedHigh:  req.PredictedHigh,
		PredictedLow:   req.PredictedLow,
		PeriodDays:     utils.DaysBetween(buyDate, sellDate),
		Notes:          req.Notes,
	}
	if err := s.settleFixed(ctx, trade, false); err != nil {
		return nil, err
	}
	return trade, nil
}

// settleFixed fills in the prices of t. With resolveDates the buy and sell
// dates are replaced by the business days actually priced.
func (s *Settler) settleFixed(ctx context.Context, t *models.FixedTrade, resolveDates bool) error {
	buyQ, sellQ, err := s.quotes(ctx, t.StockCode, t.BuyDate, t.SellDate)
	if err != nil {
		return err
	}
	if resolveDates {
		t.BuyDate = buyQ.Date
		t.SellDate = sellQ.Date
	}
	t.BuyPrice = buyQ.Close
	t.SellPrice = sellQ.Close
	t.ProfitLoss = ProfitLoss(buyQ.Close, sellQ.Close)
	t.ReturnRate = ReturnRate(buyQ.Close, sellQ.Close)
	t.PredictionAccuracy = PredictionAccuracy(sellQ.Close, t.PredictedPrice)
	t.Status = models.StatusSettled

	logging.LogSettlement(s.logger, string(models.KindFixed), t.ID, t.BuyPrice, t.SellPrice, t.ReturnRate)
	return nil
}

// SettleSelection prices a selection pick held for its analysis period.
func (s *Settler) SettleSelection(ctx context.Context, req SelectionRequest) (*models.SelectionTrade, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if !req.AnalysisPeriod.Valid() {
		return nil, errors.NewValidationError("AnalysisPeriod", req.AnalysisPeriod, "unknown analysis period")
	}
	code, err := NormalizeStockCode(req.StockCode)
	if err != nil {
		return nil, err
	}
	if req.ExecutionDate.IsZero() {
		req.ExecutionDate = s.now()
	}

	buyDate := utils.DateOnly(req.BuyDate)
	trade := &models.SelectionTrade{
		ExecutionDate:   req.ExecutionDate.UTC(),
		AnalysisPeriod:  req.AnalysisPeriod,
		ModelID:         req.ModelID,
		StockCode:       code,
		SelectionReason: req.SelectionReason,
		BuyDate:         buyDate,
		Notes:           req.Notes,
	}
	if err := s.settleSelection(ctx, trade, buyDate.AddDate(0, 0, req.AnalysisPeriod.Days())); err != nil {
		return nil, err
	}
	return trade, nil
}

func (s *Settler) settleSelection(ctx context.Context, t *models.SelectionTrade, sellTarget time.Time) error {
	buyQ, sellQ, err := s.quotes(ctx, t.StockCode, t.BuyDate, sellTarget)
	if err != nil {
		return err
	}
	t.BuyDate = buyQ.Date
	t.SellDate = sellQ.Date
	t.BuyPrice = buyQ.Close
	t.SellPrice = sellQ.Close
	t.PeriodDays = utils.DaysBetween(buyQ.Date, sellQ.Date)
	t.ProfitLoss = ProfitLoss(buyQ.Close, sellQ.Close)
	t.ReturnRate = ReturnRate(buyQ.Close, sellQ.Close)
	t.Status = models.StatusSettled

	logging.LogSettlement(s.logger, string(models.KindSelection), t.ID, t.BuyPrice, t.SellPrice, t.ReturnRate)
	return nil
}

// Backfill settles every pending record executed at or after since. Records
// whose sell date has not arrived yet are skipped. A failed record is logged
// and left pending; the run continues.
func (s *Settler) Backfill(ctx context.Context, st SettlementStore, since time.Time) (BackfillReport, error) {
	var report BackfillReport
	today := utils.DateOnly(s.now())

	fixed, err := st.PendingFixedTrades(ctx, since)
	if err != nil {
		return report, err
	}
	for i := range fixed {
		t := &fixed[i]
		if t.SellDate.After(today) {
			report.Skipped++
			continue
		}
		logger := logging.WithStock(logging.WithModel(s.logger, t.ModelID), t.StockCode)
		if err := s.settleFixed(ctx, t, true); err != nil {
			logger.Warn().Err(err).Int64("id", t.ID).Msg("Failed to settle fixed trade")
			report.Failed++
			continue
		}
		if err := st.UpdateFixedSettlement(ctx, t); err != nil {
			logger.Error().Err(err).Int64("id", t.ID).Msg("Failed to save fixed settlement")
			report.Failed++
			continue
		}
		report.Updated++
	}

	selection, err := st.PendingSelectionTrades(ctx, since)
	if err != nil {
		return report, err
	}
	for i := range selection {
		t := &selection[i]
		sellTarget := t.BuyDate.AddDate(0, 0, placeholderHoldDays)
		if sellTarget.After(today) {
			report.Skipped++
			continue
		}
		logger := logging.WithStock(logging.WithModel(s.logger, t.ModelID), t.StockCode)
		if err := s.settleSelection(ctx, t, sellTarget); err != nil {
			logger.Warn().Err(err).Int64("id", t.ID).Msg("Failed to settle selection trade")
			report.Failed++
			continue
		}
		if err := st.UpdateSelectionSettlement(ctx, t); err != nil {
			logger.Error().Err(err).Int64("id", t.ID).Msg("Failed to save selection settlement")
			report.Failed++
			continue
		}
		report.Updated++
	}

	s.logger.Info().
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Time("since", since).
		Msg("Backfill complete")
	return report, nil
}
