package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"llm-trade-verifier/internal/analytics"
	"llm-trade-verifier/internal/models"
)

func sampleView() analytics.FilteredView {
	high := 2650.0
	created := time.Date(2025, 5, 24, 9, 0, 0, 0, time.UTC)
	return analytics.FilteredView{
		FixedRecords: []analytics.FixedRow{{
			FixedTrade: models.FixedTrade{
				ID: 1, ExecutionDate: created, ModelID: "chatgpt-4", StockCode: "7203",
				BuyDate: time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC), BuyPrice: 2500,
				SellDate: time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC), SellPrice: 2550,
				PredictedPrice: 2600, PredictedHigh: &high, ProfitLoss: 50, ReturnRate: 2,
				PredictionAccuracy: 98.04, PeriodDays: 4, Notes: "weekly, auto", Status: models.StatusSettled,
				CreatedAt: created,
			},
			ModelDisplayName: "ChatGPT-4",
		}},
		SelectionRecords: []analytics.SelectionRow{{
			SelectionTrade: models.SelectionTrade{
				ID: 2, ExecutionDate: created, AnalysisPeriod: models.PeriodOneWeek, ModelID: "gemini-pro",
				StockCode: "9984", SelectionReason: "AI関連の成長期待",
				BuyDate: time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC), BuyPrice: 35000,
				SellDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), SellPrice: 34300,
				ProfitLoss: -700, ReturnRate: -2, PeriodDays: 7, Status: models.StatusSettled, CreatedAt: created,
			},
			ModelDisplayName: "Gemini Pro",
		}},
		TotalCount: 2,
	}
}

func TestWriteView(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteView(&buf, sampleView()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, bom) {
		t.Fatalf("output should start with a BOM")
	}
	if strings.Count(out, bom) != 1 {
		t.Errorf("BOM should be written once")
	}

	sections := strings.SplitN(strings.TrimPrefix(out, bom), "\n\n", 2)
	if len(sections) != 2 {
		t.Fatalf("expected two sections, got %q", out)
	}

	fixed, err := csv.NewReader(strings.NewReader(sections[0])).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(fixed) != 2 {
		t.Fatalf("expected header plus one fixed row, got %d", len(fixed))
	}
	col := index(fixed[0])
	row := fixed[1]
	checks := map[string]string{
		"モデル":   "ChatGPT-4",
		"銘柄コード": "7203",
		"購入日":   "2025-05-26",
		"予想高値":  "2650",
		"予想安値":  "",
		"騰落率(%)": "2",
		"状態":    "SETTLED",
		"備考":    "weekly, auto",
	}
	for header, want := range checks {
		i, ok := col[header]
		if !ok {
			t.Errorf("missing column %s", header)
			continue
		}
		if row[i] != want {
			t.Errorf("%s = %q, want %q", header, row[i], want)
		}
	}

	selection, err := csv.NewReader(strings.NewReader(sections[1])).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(selection) != 2 {
		t.Fatalf("expected header plus one selection row, got %d", len(selection))
	}
	scol := index(selection[0])
	if selection[1][scol["分析期間"]] != "1週間" || selection[1][scol["損益"]] != "-700" {
		t.Errorf("unexpected selection row %v", selection[1])
	}
}

func TestWriteView_EmptyKeepsHeaders(t *testing.T) {
	var buf bytes.Buffer
	empty := analytics.FilteredView{FixedRecords: []analytics.FixedRow{}, SelectionRecords: []analytics.SelectionRow{}}
	if err := WriteView(&buf, empty); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "銘柄コード") != 2 {
		t.Errorf("both headers should be present: %q", buf.String())
	}
}

func TestWriteType(t *testing.T) {
	tests := []struct {
		dataType     analytics.DataType
		fixedHeader  bool
		selectHeader bool
	}{
		{analytics.DataFixed, true, false},
		{analytics.DataSelection, false, true},
		{analytics.DataAll, true, true},
		{"", true, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := WriteType(&buf, sampleView(), tt.dataType); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.HasPrefix(out, bom) || strings.Count(out, bom) != 1 {
			t.Errorf("%q: output should start with exactly one BOM", tt.dataType)
		}
		if got := strings.Contains(out, "予想高値"); got != tt.fixedHeader {
			t.Errorf("%q: fixed table present = %v, want %v", tt.dataType, got, tt.fixedHeader)
		}
		if got := strings.Contains(out, "分析期間"); got != tt.selectHeader {
			t.Errorf("%q: selection table present = %v, want %v", tt.dataType, got, tt.selectHeader)
		}
	}

	var buf bytes.Buffer
	if err := WriteType(&buf, sampleView(), analytics.DataSelection); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), bom))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][index(rows[0])["銘柄コード"]] != "9984" {
		t.Errorf("unexpected selection export %v", rows)
	}
}

func TestWriteRanking(t *testing.T) {
	ranking := []analytics.ModelStats{
		{ModelID: "gpt-4", ModelName: "GPT-4", TotalAnalyses: 3, OverallWinRate: 66.7},
		{ModelID: "claude", ModelName: "claude", TotalAnalyses: 1},
	}
	var buf bytes.Buffer
	if err := WriteRanking(&buf, ranking); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), bom))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(records))
	}
	col := index(records[0])
	if records[1][col["順位"]] != "1" || records[2][col["順位"]] != "2" {
		t.Errorf("ranks should start at 1")
	}
	if records[1][col["勝率(%)"]] != "66.7" || records[1][col["モデル"]] != "GPT-4" {
		t.Errorf("unexpected first row %v", records[1])
	}
}

func index(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		m[h] = i
	}
	return m
}
