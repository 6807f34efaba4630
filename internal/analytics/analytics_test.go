package analytics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/internal/registry"
)

var baseTime = time.Date(2025, 5, 26, 9, 0, 0, 0, time.UTC)

func fixedTrade(id int64, model string, rate, accuracy float64) models.FixedTrade {
	return models.FixedTrade{
		ID:                 id,
		ExecutionDate:      baseTime.AddDate(0, 0, int(id)),
		ModelID:            model,
		StockCode:          "7203",
		BuyPrice:           1000,
		SellPrice:          1000 * (1 + rate/100),
		ProfitLoss:         10 * rate,
		ReturnRate:         rate,
		PredictionAccuracy: accuracy,
		PeriodDays:         4,
		Status:             models.StatusSettled,
		CreatedAt:          baseTime.Add(time.Duration(id) * time.Hour),
	}
}

func selectionTrade(id int64, model string, rate float64) models.SelectionTrade {
	return models.SelectionTrade{
		ID:             id,
		ExecutionDate:  baseTime.AddDate(0, 0, int(id)),
		AnalysisPeriod: models.PeriodOneWeek,
		ModelID:        model,
		StockCode:      "6758",
		BuyPrice:       1000,
		SellPrice:      1000 * (1 + rate/100),
		ProfitLoss:     10 * rate,
		ReturnRate:     rate,
		PeriodDays:     7,
		Status:         models.StatusSettled,
		CreatedAt:      baseTime.Add(time.Duration(id) * time.Hour),
	}
}

func TestComputeModelStats_MixedCollections(t *testing.T) {
	ds := Dataset{
		Fixed: []models.FixedTrade{
			fixedTrade(1, "gpt-4", 5.0, 90),
			fixedTrade(2, "gpt-4", -2.0, 80),
		},
		Selection: []models.SelectionTrade{
			selectionTrade(3, "gpt-4", 10.0),
		},
		Registry: registry.FromModels([]models.AIModel{{Code: "gpt-4", DisplayName: "GPT-4"}}),
	}

	stats, err := ComputeModelStats(ds)
	if err != nil {
		t.Fatalf("ComputeModelStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(stats))
	}
	s := stats[0]

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"fixed_win_rate", s.FixedWinRate, 50.0},
		{"selection_win_rate", s.SelectionWinRate, 100.0},
		{"overall_win_rate", s.OverallWinRate, 66.7},
		{"avg_return_rate", s.AvgReturnRate, 4.33},
		{"best_trade_return", s.BestTradeReturn, 10.0},
		{"worst_trade_return", s.WorstTradeReturn, -2.0},
		{"avg_prediction_accuracy", s.AvgPredictionAccuracy, 85.0},
		{"total_profit_loss", s.TotalProfitLoss, 130},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if s.ModelName != "GPT-4" {
		t.Errorf("model_name = %q, want GPT-4", s.ModelName)
	}
	if s.FixedAnalyses != 2 || s.SelectionAnalyses != 1 || s.TotalAnalyses != 3 {
		t.Errorf("unexpected counts %+v", s)
	}
}

func TestComputeModelStats_SingleCollectionModels(t *testing.T) {
	ds := Dataset{
		Fixed: []models.FixedTrade{
			fixedTrade(1, "fixed-only", 3.0, 70),
			fixedTrade(2, "fixed-only", 1.0, 60),
		},
		Selection: []models.SelectionTrade{
			selectionTrade(3, "selection-only", -4.0),
		},
	}

	stats, err := ComputeModelStats(ds)
	if err != nil {
		t.Fatalf("ComputeModelStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(stats))
	}

	fixedOnly, selectionOnly := stats[0], stats[1]
	if fixedOnly.ModelID != "fixed-only" || selectionOnly.ModelID != "selection-only" {
		t.Fatalf("unexpected order: %s, %s", fixedOnly.ModelID, selectionOnly.ModelID)
	}

	if fixedOnly.SelectionWinRate != 0 || fixedOnly.SelectionAnalyses != 0 {
		t.Errorf("fixed-only selection stats should be zero: %+v", fixedOnly)
	}
	if fixedOnly.OverallWinRate != 100 {
		t.Errorf("fixed-only overall_win_rate = %v, want 100", fixedOnly.OverallWinRate)
	}
	if fixedOnly.AvgReturnRate != 2 {
		t.Errorf("fixed-only avg_return_rate = %v, want 2", fixedOnly.AvgReturnRate)
	}

	if selectionOnly.FixedWinRate != 0 || selectionOnly.AvgPredictionAccuracy != 0 {
		t.Errorf("selection-only fixed stats should be zero: %+v", selectionOnly)
	}
	if math.IsNaN(selectionOnly.AvgPredictionAccuracy) {
		t.Errorf("avg_prediction_accuracy must not be NaN")
	}
	if selectionOnly.ModelName != "selection-only" {
		t.Errorf("unregistered model should fall back to id, got %q", selectionOnly.ModelName)
	}
	if selectionOnly.BestTradeReturn != -4 || selectionOnly.WorstTradeReturn != -4 {
		t.Errorf("best/worst = %v/%v, want -4/-4", selectionOnly.BestTradeReturn, selectionOnly.WorstTradeReturn)
	}
}

func TestComputeModelStats_ZeroReturnIsNotAWin(t *testing.T) {
	ds := Dataset{Fixed: []models.FixedTrade{fixedTrade(1, "m", 0, 50), fixedTrade(2, "m", 0.01, 50)}}
	stats, err := ComputeModelStats(ds)
	if err != nil {
		t.Fatal(err)
	}
	if stats[0].FixedWinRate != 50 {
		t.Errorf("fixed_win_rate = %v, want 50", stats[0].FixedWinRate)
	}
}

func TestComputeModelStats_NonFiniteRecordFails(t *testing.T) {
	bad := fixedTrade(7, "m", 1, 50)
	bad.ReturnRate = math.NaN()
	ds := Dataset{Fixed: []models.FixedTrade{fixedTrade(1, "m", 1, 50), bad}}

	stats, err := ComputeModelStats(ds)
	if !errors.Is(err, errors.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if stats == nil || len(stats) != 0 {
		t.Errorf("expected empty non-nil result, got %v", stats)
	}

	if _, err := Summarize(ds); !errors.Is(err, errors.ErrInvalidRecord) {
		t.Errorf("Summarize should fail on non-finite record, got %v", err)
	}

	sel := selectionTrade(8, "m", 1)
	sel.ReturnRate = math.Inf(1)
	if _, err := ComputeModelStats(Dataset{Selection: []models.SelectionTrade{sel}}); !errors.Is(err, errors.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for infinite selection return, got %v", err)
	}
}

func TestMergeRecords_MismatchedKindFails(t *testing.T) {
	f := fixedTrade(1, "m", 2, 80)
	s := selectionTrade(2, "m", 3)
	bad := []models.TradeRecord{
		{},
		{Kind: "swap", Fixed: &f},
		{Kind: models.KindFixed, Selection: &s},
		{Kind: models.KindSelection, Fixed: &f, Selection: &s},
	}
	for _, r := range bad {
		records := []models.TradeRecord{models.FixedRecord(&f), r}
		stats, err := MergeRecords(records, registry.Registry{})
		if !errors.Is(err, errors.ErrInvalidRecord) {
			t.Errorf("%+v: expected ErrInvalidRecord, got %v", r, err)
		}
		if stats == nil || len(stats) != 0 {
			t.Errorf("%+v: expected empty non-nil result, got %v", r, stats)
		}
		if _, err := SummarizeRecords(records); !errors.Is(err, errors.ErrInvalidRecord) {
			t.Errorf("%+v: SummarizeRecords expected ErrInvalidRecord, got %v", r, err)
		}
	}
}

func TestMergeRecords_MatchesDataset(t *testing.T) {
	ds := Dataset{
		Fixed:     []models.FixedTrade{fixedTrade(1, "a", 5, 90), fixedTrade(2, "b", -1, 70)},
		Selection: []models.SelectionTrade{selectionTrade(3, "a", 2)},
	}
	records := ds.Records()
	if len(records) != 3 || records[0].Kind != models.KindFixed || records[2].Kind != models.KindSelection {
		t.Fatalf("records = %+v", records)
	}

	fromDataset, err := ComputeModelStats(ds)
	if err != nil {
		t.Fatal(err)
	}
	fromRecords, err := MergeRecords(records, ds.Registry)
	if err != nil {
		t.Fatal(err)
	}
	if len(fromDataset) != 2 || fromDataset[0] != fromRecords[0] || fromDataset[1] != fromRecords[1] {
		t.Errorf("dataset %+v != records %+v", fromDataset, fromRecords)
	}
	if fromRecords[0].TotalProfitLoss != 70 {
		t.Errorf("pooled profit = %v, want 70", fromRecords[0].TotalProfitLoss)
	}
}

func TestComputeModelStats_Empty(t *testing.T) {
	stats, err := ComputeModelStats(Dataset{})
	if err != nil {
		t.Fatal(err)
	}
	if stats == nil || len(stats) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", stats)
	}
}

func TestRank_OrdersByOverallWinRateStable(t *testing.T) {
	stats := []ModelStats{
		{ModelID: "a", OverallWinRate: 40},
		{ModelID: "b", OverallWinRate: 80},
		{ModelID: "c", OverallWinRate: 40},
		{ModelID: "d", OverallWinRate: 100},
	}
	ranked := Rank(stats)
	want := []string{"d", "b", "a", "c"}
	for i, id := range want {
		if ranked[i].ModelID != id {
			t.Errorf("position %d = %s, want %s", i, ranked[i].ModelID, id)
		}
	}
	if stats[0].ModelID != "a" {
		t.Errorf("Rank must not modify its input")
	}
}

func TestChart_TopFive(t *testing.T) {
	var stats []ModelStats
	for i := 0; i < 7; i++ {
		stats = append(stats, ModelStats{
			ModelID:               string(rune('a' + i)),
			ModelName:             "Model " + string(rune('A'+i)),
			OverallWinRate:        float64(10 * i),
			AvgPredictionAccuracy: float64(i),
			AvgReturnRate:         float64(-i),
		})
	}
	chart := Chart(Rank(stats))

	if len(chart.Labels) != ChartSize {
		t.Fatalf("expected %d labels, got %d", ChartSize, len(chart.Labels))
	}
	if chart.Labels[0] != "Model G" || chart.WinRates[0] != 60 || chart.Accuracies[0] != 6 || chart.Returns[0] != -6 {
		t.Errorf("unexpected first entry: %s %v %v %v", chart.Labels[0], chart.WinRates[0], chart.Accuracies[0], chart.Returns[0])
	}
}

func TestChart_EmptyRanking(t *testing.T) {
	chart := Chart(nil)
	if chart.Labels == nil || chart.WinRates == nil || chart.Accuracies == nil || chart.Returns == nil {
		t.Fatalf("empty chart must have non-nil series: %+v", chart)
	}

	b, err := json.Marshal(chart)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"labels":[],"win_rates":[],"accuracies":[],"returns":[]}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestSummarize(t *testing.T) {
	ds := Dataset{
		Fixed: []models.FixedTrade{
			fixedTrade(1, "gpt-4", 5.0, 90),
			fixedTrade(2, "claude", -2.0, 75),
		},
		Selection: []models.SelectionTrade{
			selectionTrade(3, "gpt-4", 10.0),
			selectionTrade(4, "gemini", 0),
		},
	}
	got, err := Summarize(ds)
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{TotalAnalyses: 4, WinRate: 50.0, AvgAccuracy: 82.5, UniqueModelCount: 3}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	got, err := Summarize(Dataset{})
	if err != nil {
		t.Fatal(err)
	}
	if got != (Summary{}) {
		t.Errorf("Summarize(empty) = %+v, want zero", got)
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   float64
	}{
		{66.666666, 1, 66.7},
		{4.333333, 2, 4.33},
		{2.675, 2, 2.68},
		{-2.675, 2, -2.68},
		{0.05, 1, 0.1},
		{-0.05, 1, -0.1},
		{1234.5, 0, 1235},
		{-1234.5, 0, -1235},
	}
	for _, tt := range tests {
		if got := round(tt.in, tt.places); got != tt.want {
			t.Errorf("round(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}
