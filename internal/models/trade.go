package models

import "time"

// FixedTrade is a prediction for one designated stock, settled against the actual close.
type FixedTrade struct {
	ID                 int64            `json:"id"`
	ExecutionDate      time.Time        `json:"execution_date"`
	ModelID            string           `json:"model_id"`
	StockCode          string           `json:"stock_code"`
	BuyDate            time.Time        `json:"buy_date"`
	BuyPrice           float64          `json:"buy_price"`
	SellDate           time.Time        `json:"sell_date"`
	SellPrice          float64          `json:"sell_price"`
	PredictedPrice     float64          `json:"predicted_price"`
	PredictedHigh      *float64         `json:"predicted_high,omitempty"`
	PredictedLow       *float64         `json:"predicted_low,omitempty"`
	ProfitLoss         float64          `json:"profit_loss"`
	ReturnRate         float64          `json:"return_rate"`
	PredictionAccuracy float64          `json:"prediction_accuracy"`
	PeriodDays         int              `json:"period_days"`
	Notes              string           `json:"notes"`
	Status             SettlementStatus `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
}

// SelectionTrade is one pick from a model's ranked stock selection.
type SelectionTrade struct {
	ID              int64            `json:"id"`
	ExecutionDate   time.Time        `json:"execution_date"`
	AnalysisPeriod  AnalysisPeriod   `json:"analysis_period"`
	ModelID         string           `json:"model_id"`
	StockCode       string           `json:"stock_code"`
	SelectionReason string           `json:"selection_reason"`
	BuyDate         time.Time        `json:"buy_date"`
	BuyPrice        float64          `json:"buy_price"`
	SellDate        time.Time        `json:"sell_date"`
	SellPrice       float64          `json:"sell_price"`
	ProfitLoss      float64          `json:"profit_loss"`
	ReturnRate      float64          `json:"return_rate"`
	PeriodDays      int              `json:"period_days"`
	Notes           string           `json:"notes"`
	Status          SettlementStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
}

// TradeRecord is either a fixed or a selection trade. Exactly one of Fixed and
// Selection is set, matching Kind.
type TradeRecord struct {
	Kind      TradeKind
	Fixed     *FixedTrade
	Selection *SelectionTrade
}

// FixedRecord wraps a fixed trade.
func FixedRecord(t *FixedTrade) TradeRecord {
	return TradeRecord{Kind: KindFixed, Fixed: t}
}

// SelectionRecord wraps a selection trade.
func SelectionRecord(t *SelectionTrade) TradeRecord {
	return TradeRecord{Kind: KindSelection, Selection: t}
}

// Valid reports whether the tag matches the populated variant.
func (r TradeRecord) Valid() bool {
	switch r.Kind {
	case KindFixed:
		return r.Fixed != nil && r.Selection == nil
	case KindSelection:
		return r.Selection != nil && r.Fixed == nil
	}
	return false
}

// fixed and selection return the variant matching the tag, or nil.
func (r TradeRecord) fixed() *FixedTrade {
	if r.Kind == KindFixed {
		return r.Fixed
	}
	return nil
}

func (r TradeRecord) selection() *SelectionTrade {
	if r.Kind == KindSelection {
		return r.Selection
	}
	return nil
}

// The accessors below return zero values for a record that is not Valid.

// ModelID returns the model identifier shared by both variants.
func (r TradeRecord) ModelID() string {
	if f := r.fixed(); f != nil {
		return f.ModelID
	}
	if s := r.selection(); s != nil {
		return s.ModelID
	}
	return ""
}

// ReturnRate returns the stored return rate in percent.
func (r TradeRecord) ReturnRate() float64 {
	if f := r.fixed(); f != nil {
		return f.ReturnRate
	}
	if s := r.selection(); s != nil {
		return s.ReturnRate
	}
	return 0
}

// ProfitLoss returns the stored per-share profit or loss.
func (r TradeRecord) ProfitLoss() float64 {
	if f := r.fixed(); f != nil {
		return f.ProfitLoss
	}
	if s := r.selection(); s != nil {
		return s.ProfitLoss
	}
	return 0
}

// ExecutionDate returns when the model produced the prediction.
func (r TradeRecord) ExecutionDate() time.Time {
	if f := r.fixed(); f != nil {
		return f.ExecutionDate
	}
	if s := r.selection(); s != nil {
		return s.ExecutionDate
	}
	return time.Time{}
}

// Status returns the settlement status.
func (r TradeRecord) Status() SettlementStatus {
	if f := r.fixed(); f != nil {
		return f.Status
	}
	if s := r.selection(); s != nil {
		return s.Status
	}
	return ""
}

// ID returns the store id of the wrapped trade.
func (r TradeRecord) ID() int64 {
	if f := r.fixed(); f != nil {
		return f.ID
	}
	if s := r.selection(); s != nil {
		return s.ID
	}
	return 0
}

// IsWin reports whether the trade closed with a positive return.
func (r TradeRecord) IsWin() bool {
	return r.ReturnRate() > 0
}
