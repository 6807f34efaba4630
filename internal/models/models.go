// Package models provides domain models for the trade verification application.
package models

import (
	"time"
)

// TradeKind tags which record collection a trade belongs to.
type TradeKind string

const (
	KindFixed     TradeKind = "fixed"
	KindSelection TradeKind = "selection"
)

// SettlementStatus tells whether a record's prices have been resolved.
type SettlementStatus string

const (
	StatusPending SettlementStatus = "PENDING"
	StatusSettled SettlementStatus = "SETTLED"
)

// AnalysisPeriod is the holding horizon of a selection pick.
type AnalysisPeriod string

const (
	PeriodOneWeek     AnalysisPeriod = "1週間"
	PeriodOneMonth    AnalysisPeriod = "1ヶ月"
	PeriodThreeMonths AnalysisPeriod = "3ヶ月"
	PeriodSixMonths   AnalysisPeriod = "6ヶ月"
	PeriodOneYear     AnalysisPeriod = "1年"
)

var periodDays = map[AnalysisPeriod]int{
	PeriodOneWeek:     7,
	PeriodOneMonth:    30,
	PeriodThreeMonths: 90,
	PeriodSixMonths:   180,
	PeriodOneYear:     365,
}

// AnalysisPeriods lists the periods in ascending length.
func AnalysisPeriods() []AnalysisPeriod {
	return []AnalysisPeriod{PeriodOneWeek, PeriodOneMonth, PeriodThreeMonths, PeriodSixMonths, PeriodOneYear}
}

// Days returns the calendar length of the period, or 0 for an unknown period.
func (p AnalysisPeriod) Days() int {
	return periodDays[p]
}

// Valid reports whether p is one of the known periods.
func (p AnalysisPeriod) Valid() bool {
	_, ok := periodDays[p]
	return ok
}

// AIModel is a registry entry for a language model under evaluation.
type AIModel struct {
	Code        string `json:"code" yaml:"code"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Provider    string `json:"provider" yaml:"provider"`
	Active      bool   `json:"active" yaml:"active"`
}

// Candle represents daily OHLCV data.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Quote is a resolved closing price for one business day.
type Quote struct {
	StockCode string
	Date      time.Time
	Close     float64
	Source    string
}
