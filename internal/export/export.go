// Package export writes filtered views and rankings as spreadsheet-friendly CSV.
package export

import (
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"llm-trade-verifier/internal/analytics"
)

// bom lets spreadsheet tools detect UTF-8 for the Japanese headers.
const bom = "\ufeff"

const dateLayout = "2006-01-02"

type fixedCSV struct {
	ID                 int64  `csv:"ID"`
	ExecutionDate      string `csv:"実行日"`
	Model              string `csv:"モデル"`
	ModelID            string `csv:"モデルID"`
	StockCode          string `csv:"銘柄コード"`
	BuyDate            string `csv:"購入日"`
	BuyPrice           string `csv:"購入価格"`
	SellDate           string `csv:"売却日"`
	SellPrice          string `csv:"売却価格"`
	PredictedPrice     string `csv:"予想株価"`
	PredictedHigh      string `csv:"予想高値"`
	PredictedLow       string `csv:"予想安値"`
	ProfitLoss         string `csv:"損益"`
	ReturnRate         string `csv:"騰落率(%)"`
	PredictionAccuracy string `csv:"予測精度(%)"`
	PeriodDays         int    `csv:"期間(日)"`
	Status             string `csv:"状態"`
	Notes              string `csv:"備考"`
}

type selectionCSV struct {
	ID              int64  `csv:"ID"`
	ExecutionDate   string `csv:"実行日"`
	AnalysisPeriod  string `csv:"分析期間"`
	Model           string `csv:"モデル"`
	ModelID         string `csv:"モデルID"`
	StockCode       string `csv:"銘柄コード"`
	SelectionReason string `csv:"選定理由"`
	BuyDate         string `csv:"購入日"`
	BuyPrice        string `csv:"購入価格"`
	SellDate        string `csv:"売却日"`
	SellPrice       string `csv:"売却価格"`
	ProfitLoss      string `csv:"損益"`
	ReturnRate      string `csv:"騰落率(%)"`
	PeriodDays      int    `csv:"期間(日)"`
	Status          string `csv:"状態"`
	Notes           string `csv:"備考"`
}

type rankingCSV struct {
	Rank                  int     `csv:"順位"`
	ModelID               string  `csv:"モデルID"`
	ModelName             string  `csv:"モデル"`
	TotalAnalyses         int     `csv:"分析数"`
	FixedAnalyses         int     `csv:"固定銘柄分析数"`
	SelectionAnalyses     int     `csv:"銘柄選定分析数"`
	OverallWinRate        float64 `csv:"勝率(%)"`
	FixedWinRate          float64 `csv:"固定銘柄勝率(%)"`
	SelectionWinRate      float64 `csv:"銘柄選定勝率(%)"`
	AvgPredictionAccuracy float64 `csv:"平均予測精度(%)"`
	AvgReturnRate         float64 `csv:"平均騰落率(%)"`
	TotalProfitLoss       float64 `csv:"累計損益"`
	BestTradeReturn       float64 `csv:"最高騰落率(%)"`
	WorstTradeReturn      float64 `csv:"最低騰落率(%)"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fixedRows(rows []analytics.FixedRow) []*fixedCSV {
	out := make([]*fixedCSV, 0, len(rows))
	for _, r := range rows {
		out = append(out, &fixedCSV{
			ID:                 r.ID,
			ExecutionDate:      formatTimestamp(r.ExecutionDate),
			Model:              r.ModelDisplayName,
			ModelID:            r.ModelID,
			StockCode:          r.StockCode,
			BuyDate:            formatDate(r.BuyDate),
			BuyPrice:           formatFloat(r.BuyPrice),
			SellDate:           formatDate(r.SellDate),
			SellPrice:          formatFloat(r.SellPrice),
			PredictedPrice:     formatFloat(r.PredictedPrice),
			PredictedHigh:      formatOptional(r.PredictedHigh),
			PredictedLow:       formatOptional(r.PredictedLow),
			ProfitLoss:         formatFloat(r.ProfitLoss),
			ReturnRate:         formatFloat(r.ReturnRate),
			PredictionAccuracy: formatFloat(r.PredictionAccuracy),
			PeriodDays:         r.PeriodDays,
			Status:             string(r.Status),
			Notes:              r.Notes,
		})
	}
	return out
}

func selectionRows(rows []analytics.SelectionRow) []*selectionCSV {
	out := make([]*selectionCSV, 0, len(rows))
	for _, r := range rows {
		out = append(out, &selectionCSV{
			ID:              r.ID,
			ExecutionDate:   formatTimestamp(r.ExecutionDate),
			AnalysisPeriod:  string(r.AnalysisPeriod),
			Model:           r.ModelDisplayName,
			ModelID:         r.ModelID,
			StockCode:       r.StockCode,
			SelectionReason: r.SelectionReason,
			BuyDate:         formatDate(r.BuyDate),
			BuyPrice:        formatFloat(r.BuyPrice),
			SellDate:        formatDate(r.SellDate),
			SellPrice:       formatFloat(r.SellPrice),
			ProfitLoss:      formatFloat(r.ProfitLoss),
			ReturnRate:      formatFloat(r.ReturnRate),
			PeriodDays:      r.PeriodDays,
			Status:          string(r.Status),
			Notes:           r.Notes,
		})
	}
	return out
}

// WriteFixed writes the fixed records of view as one CSV table.
func WriteFixed(w io.Writer, view analytics.FilteredView) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	return gocsv.Marshal(fixedRows(view.FixedRecords), w)
}

// WriteSelection writes the selection records of view as one CSV table.
func WriteSelection(w io.Writer, view analytics.FilteredView) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	return gocsv.Marshal(selectionRows(view.SelectionRecords), w)
}

// WriteView writes the fixed table, a blank line, then the selection table.
// Each table carries its own header row.
func WriteView(w io.Writer, view analytics.FilteredView) error {
	if err := WriteFixed(w, view); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return gocsv.Marshal(selectionRows(view.SelectionRecords), w)
}

// WriteType writes only the table dataType selects. DataAll, and an empty
// type, write both tables as WriteView does.
func WriteType(w io.Writer, view analytics.FilteredView, dataType analytics.DataType) error {
	switch dataType {
	case analytics.DataFixed:
		return WriteFixed(w, view)
	case analytics.DataSelection:
		return WriteSelection(w, view)
	default:
		return WriteView(w, view)
	}
}

// WriteRanking writes ranked model statistics, numbering them from 1.
func WriteRanking(w io.Writer, ranking []analytics.ModelStats) error {
	rows := make([]*rankingCSV, 0, len(ranking))
	for i, s := range ranking {
		rows = append(rows, &rankingCSV{
			Rank:                  i + 1,
			ModelID:               s.ModelID,
			ModelName:             s.ModelName,
			TotalAnalyses:         s.TotalAnalyses,
			FixedAnalyses:         s.FixedAnalyses,
			SelectionAnalyses:     s.SelectionAnalyses,
			OverallWinRate:        s.OverallWinRate,
			FixedWinRate:          s.FixedWinRate,
			SelectionWinRate:      s.SelectionWinRate,
			AvgPredictionAccuracy: s.AvgPredictionAccuracy,
			AvgReturnRate:         s.AvgReturnRate,
			TotalProfitLoss:       s.TotalProfitLoss,
			BestTradeReturn:       s.BestTradeReturn,
			WorstTradeReturn:      s.WorstTradeReturn,
		})
	}
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}
