// Package pricing resolves closing prices and settles trade records against them.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ReturnRate is the percentage change from buy to sell. It is 0 when buy is 0.
func ReturnRate(buy, sell float64) float64 {
	if buy == 0 {
		return 0
	}
	b := decimal.NewFromFloat(buy)
	return decimal.NewFromFloat(sell).Sub(b).Div(b).Mul(hundred).InexactFloat64()
}

// PredictionAccuracy scores a predicted close against the actual close on a
// 0-100 scale. A miss by the full actual price or more scores 0, and so does
// an actual price of 0.
func PredictionAccuracy(actual, predicted float64) float64 {
	if actual == 0 {
		return 0
	}
	a := decimal.NewFromFloat(actual)
	errRate := a.Sub(decimal.NewFromFloat(predicted)).Abs().Div(a.Abs())
	acc := decimal.NewFromInt(1).Sub(errRate).Mul(hundred)
	if acc.IsNegative() {
		return 0
	}
	return acc.InexactFloat64()
}

// ProfitLoss is the per-share gain of buying at buy and selling at sell.
func ProfitLoss(buy, sell float64) float64 {
	return decimal.NewFromFloat(sell).Sub(decimal.NewFromFloat(buy)).InexactFloat64()
}

// roundPrice rounds a price to the sen (two decimals), half away from zero.
func roundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
