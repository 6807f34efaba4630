// Package analytics aggregates stored trade records into per-model performance
// statistics, rankings, chart series and summary figures.
//
// Every function here is a pure function of the Dataset it is given. Nothing is
// cached between calls, so callers may run them concurrently.
package analytics

import (
	"math"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/registry"
)

// ChartSize is the number of top-ranked models projected into chart series.
const ChartSize = 5

// Dataset is one snapshot of both record collections plus the model registry.
type Dataset struct {
	Fixed     []models.FixedTrade
	Selection []models.SelectionTrade
	Registry  registry.Registry
}

// ModelStats holds the aggregated performance of one model.
type ModelStats struct {
	ModelID               string  `json:"model_id"`
	ModelName             string  `json:"model_name"`
	FixedAnalyses         int     `json:"fixed_analyses"`
	SelectionAnalyses     int     `json:"selection_analyses"`
	TotalAnalyses         int     `json:"total_analyses"`
	FixedWinRate          float64 `json:"fixed_win_rate"`
	SelectionWinRate      float64 `json:"selection_win_rate"`
	OverallWinRate        float64 `json:"overall_win_rate"`
	AvgPredictionAccuracy float64 `json:"avg_prediction_accuracy"`
	AvgReturnRate         float64 `json:"avg_return_rate"`
	TotalProfitLoss       float64 `json:"total_profit_loss"`
	BestTradeReturn       float64 `json:"best_trade_return"`
	WorstTradeReturn      float64 `json:"worst_trade_return"`
}

// ChartData holds index-aligned series for the top-ranked models.
type ChartData struct {
	Labels     []string  `json:"labels"`
	WinRates   []float64 `json:"win_rates"`
	Accuracies []float64 `json:"accuracies"`
	Returns    []float64 `json:"returns"`
}

// Summary is the coarse headline over every stored record.
type Summary struct {
	TotalAnalyses    int     `json:"total_analyses"`
	WinRate          float64 `json:"win_rate"`
	AvgAccuracy      float64 `json:"avg_accuracy"`
	UniqueModelCount int     `json:"unique_model_count"`
}

type accumulator struct {
	fixedCount     int
	fixedWins      int
	accuracySum    float64
	selectionCount int
	selectionWins  int

	// pooled over fixed and selection records
	returnSum float64
	profitSum float64
	best      float64
	worst     float64
}

func (a *accumulator) addReturn(rate, profit float64) {
	if a.fixedCount+a.selectionCount == 1 {
		a.best, a.worst = rate, rate
	} else {
		a.best = math.Max(a.best, rate)
		a.worst = math.Min(a.worst, rate)
	}
	a.returnSum += rate
	a.profitSum += profit
}

// Records pools both collections into tagged records, fixed first.
func (ds Dataset) Records() []models.TradeRecord {
	records := make([]models.TradeRecord, 0, len(ds.Fixed)+len(ds.Selection))
	for i := range ds.Fixed {
		records = append(records, models.FixedRecord(&ds.Fixed[i]))
	}
	for i := range ds.Selection {
		records = append(records, models.SelectionRecord(&ds.Selection[i]))
	}
	return records
}

// ComputeModelStats merges both collections into one entry per distinct model id.
// Entries appear in first-seen order, scanning fixed records before selection records.
func ComputeModelStats(ds Dataset) ([]ModelStats, error) {
	return MergeRecords(ds.Records(), ds.Registry)
}

// MergeRecords aggregates pooled records per model id in first-seen order. A
// record with a mismatched kind tag or a non-finite number fails the whole
// computation.
func MergeRecords(records []models.TradeRecord, reg registry.Registry) ([]ModelStats, error) {
	if err := validateRecords(records); err != nil {
		return []ModelStats{}, err
	}

	var order []string
	acc := make(map[string]*accumulator)
	for _, r := range records {
		id := r.ModelID()
		a, ok := acc[id]
		if !ok {
			a = &accumulator{}
			acc[id] = a
			order = append(order, id)
		}

		if r.Kind == models.KindFixed {
			a.fixedCount++
			if r.IsWin() {
				a.fixedWins++
			}
			a.accuracySum += r.Fixed.PredictionAccuracy
		} else {
			a.selectionCount++
			if r.IsWin() {
				a.selectionWins++
			}
		}
		a.addReturn(r.ReturnRate(), r.ProfitLoss())
	}

	stats := make([]ModelStats, 0, len(order))
	for _, id := range order {
		a := acc[id]
		total := a.fixedCount + a.selectionCount
		stats = append(stats, ModelStats{
			ModelID:               id,
			ModelName:             reg.DisplayName(id),
			FixedAnalyses:         a.fixedCount,
			SelectionAnalyses:     a.selectionCount,
			TotalAnalyses:         total,
			FixedWinRate:          round(percent(a.fixedWins, a.fixedCount), 1),
			SelectionWinRate:      round(percent(a.selectionWins, a.selectionCount), 1),
			OverallWinRate:        round(percent(a.fixedWins+a.selectionWins, total), 1),
			AvgPredictionAccuracy: round(mean(a.accuracySum, a.fixedCount), 1),
			AvgReturnRate:         round(mean(a.returnSum, total), 2),
			TotalProfitLoss:       round(a.profitSum, 0),
			BestTradeReturn:       round(a.best, 2),
			WorstTradeReturn:      round(a.worst, 2),
		})
	}
	return stats, nil
}

// Rank orders stats by overall win rate, highest first. Ties keep their input order.
// The input slice is not modified.
func Rank(stats []ModelStats) []ModelStats {
	ranked := make([]ModelStats, len(stats))
	copy(ranked, stats)
	slices.SortStableFunc(ranked, func(a, b ModelStats) int {
		switch {
		case a.OverallWinRate > b.OverallWinRate:
			return -1
		case a.OverallWinRate < b.OverallWinRate:
			return 1
		}
		return 0
	})
	return ranked
}

// ComputeRanking computes and ranks the per-model statistics of ds.
func ComputeRanking(ds Dataset) ([]ModelStats, error) {
	stats, err := ComputeModelStats(ds)
	if err != nil {
		return []ModelStats{}, err
	}
	return Rank(stats), nil
}

// Chart projects the first ChartSize entries of a ranking into parallel series.
func Chart(ranking []ModelStats) ChartData {
	n := min(len(ranking), ChartSize)
	chart := ChartData{
		Labels:     make([]string, 0, n),
		WinRates:   make([]float64, 0, n),
		Accuracies: make([]float64, 0, n),
		Returns:    make([]float64, 0, n),
	}
	for _, s := range ranking[:n] {
		chart.Labels = append(chart.Labels, s.ModelName)
		chart.WinRates = append(chart.WinRates, s.OverallWinRate)
		chart.Accuracies = append(chart.Accuracies, s.AvgPredictionAccuracy)
		chart.Returns = append(chart.Returns, s.AvgReturnRate)
	}
	return chart
}

// Summarize computes the headline figures over both collections, unfiltered.
func Summarize(ds Dataset) (Summary, error) {
	return SummarizeRecords(ds.Records())
}

// SummarizeRecords computes the headline figures over pooled records.
func SummarizeRecords(records []models.TradeRecord) (Summary, error) {
	if err := validateRecords(records); err != nil {
		return Summary{}, err
	}

	wins, fixed := 0, 0
	accuracySum := 0.0
	modelIDs := make(map[string]struct{})
	for _, r := range records {
		if r.IsWin() {
			wins++
		}
		if r.Kind == models.KindFixed {
			fixed++
			accuracySum += r.Fixed.PredictionAccuracy
		}
		modelIDs[r.ModelID()] = struct{}{}
	}

	return Summary{
		TotalAnalyses:    len(records),
		WinRate:          round(percent(wins, len(records)), 1),
		AvgAccuracy:      round(mean(accuracySum, fixed), 1),
		UniqueModelCount: len(modelIDs),
	}, nil
}

func validateRecords(records []models.TradeRecord) error {
	for i, r := range records {
		if !r.Valid() {
			return errors.NewDataError(string(r.Kind), strconv.Itoa(i),
				"record kind does not match its contents", errors.ErrInvalidRecord)
		}
		values := []float64{r.ReturnRate(), r.ProfitLoss()}
		if r.Kind == models.KindFixed {
			values = append(values, r.Fixed.PredictionAccuracy)
		}
		if !finite(values...) {
			return errors.NewDataError(string(r.Kind), strconv.FormatInt(r.ID(), 10),
				"non-finite return, profit or accuracy", errors.ErrInvalidRecord)
		}
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// round rounds half away from zero on the shortest decimal form of v,
// so 2.675 rounds to 2.68.
func round(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
