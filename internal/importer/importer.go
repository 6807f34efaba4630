package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/pkg/utils"
)

// DateLayout names the per-day response directories.
const DateLayout = "20060102"

// placeholderHoldDays is Monday to Friday of the buy week.
const placeholderHoldDays = 4

const placeholderPeriodDays = 5

// DefaultResponseFiles maps response file names to model codes.
func DefaultResponseFiles() map[string]string {
	return map[string]string{
		"claude_response.md":  "claude-3-sonnet",
		"chatgpt_response.md": "chatgpt-4",
		"gemini_response.md":  "gemini-pro",
	}
}

// Config configures an Importer.
type Config struct {
	ResponsesDir          string
	ResponseFiles         map[string]string
	FixedStockCode        string
	DefaultPredictedPrice float64
}

// Store is the part of the data store the importer writes to.
type Store interface {
	SaveFixedTrade(ctx context.Context, trade *models.FixedTrade) error
	SaveSelectionTrade(ctx context.Context, trade *models.SelectionTrade) error
}

// ModelImport is the outcome for one response file.
type ModelImport struct {
	ModelID        string  `json:"model_id"`
	File           string  `json:"file"`
	Selections     int     `json:"selections"`
	Fixed          bool    `json:"fixed"`
	PredictedPrice float64 `json:"predicted_price"`
	Error          string  `json:"error,omitempty"`
}

// ImportReport summarises an Import run.
type ImportReport struct {
	Date    string        `json:"date"`
	BuyDate time.Time     `json:"buy_date"`
	Models  []ModelImport `json:"models"`
	Total   int           `json:"total"`
}

// Importer saves pending placeholder records for each parsed response.
type Importer struct {
	cfg    Config
	parser *Parser
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewImporter creates an importer.
func NewImporter(cfg Config, st Store, logger zerolog.Logger) *Importer {
	if len(cfg.ResponseFiles) == 0 {
		cfg.ResponseFiles = DefaultResponseFiles()
	}
	if cfg.FixedStockCode == "" {
		cfg.FixedStockCode = "7203"
	}
	if cfg.DefaultPredictedPrice <= 0 {
		cfg.DefaultPredictedPrice = 3000
	}
	return &Importer{
		cfg:    cfg,
		parser: NewParser(cfg.DefaultPredictedPrice),
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Dir returns the response directory for date.
func (im *Importer) Dir(date time.Time) string {
	return filepath.Join(im.cfg.ResponsesDir, date.Format(DateLayout))
}

// ParseDir reads and parses every configured response file for date. Missing
// files are skipped. It fails when the directory is missing or no file parsed.
func (im *Importer) ParseDir(date time.Time) ([]Prediction, []ModelImport, error) {
	dir := im.Dir(date)
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, errors.NewImportError(dir, "", fmt.Errorf("%w: %v", errors.ErrResponseNotFound, err))
	}

	files := make([]string, 0, len(im.cfg.ResponseFiles))
	for f := range im.cfg.ResponseFiles {
		files = append(files, f)
	}
	sort.Strings(files)

	var preds []Prediction
	var results []ModelImport
	for _, file := range files {
		modelID := im.cfg.ResponseFiles[file]
		path := filepath.Join(dir, file)
		content, err := os.ReadFile(path)
		if err != nil {
			im.logger.Warn().Str("file", path).Str("model", modelID).Msg("Response file not found")
			results = append(results, ModelImport{ModelID: modelID, File: file, Error: "not found"})
			continue
		}
		pred := im.parser.Parse(modelID, string(content))
		if !pred.PriceFound {
			im.logger.Warn().Str("model", modelID).Float64("default", pred.PredictedPrice).
				Msg("No close prediction found, using default")
		}
		preds = append(preds, pred)
		results = append(results, ModelImport{ModelID: modelID, File: file, PredictedPrice: pred.PredictedPrice})
	}

	if len(preds) == 0 {
		return nil, results, errors.NewImportError(dir, "", errors.ErrResponseNotFound)
	}
	return preds, results, nil
}

// Import parses the responses saved for date and stores one pending selection
// record per pick and one pending fixed-stock record per model. Buying starts
// the Monday after date.
func (im *Importer) Import(ctx context.Context, date time.Time) (ImportReport, error) {
	report := ImportReport{Date: date.Format(DateLayout), Models: []ModelImport{}}

	preds, results, err := im.ParseDir(date)
	if err != nil {
		if results != nil {
			report.Models = results
		}
		return report, err
	}

	buyDate := utils.NextMonday(date)
	report.BuyDate = buyDate
	execution := im.now().UTC()

	byModel := make(map[string]Prediction, len(preds))
	for _, p := range preds {
		byModel[p.ModelID] = p
	}

	for i := range results {
		res := &results[i]
		pred, ok := byModel[res.ModelID]
		if !ok || res.Error != "" {
			continue
		}
		logger := logging.WithModel(im.logger, res.ModelID)

		for _, pick := range pred.Picks {
			trade := &models.SelectionTrade{
				ExecutionDate:   execution,
				AnalysisPeriod:  models.PeriodOneWeek,
				ModelID:         res.ModelID,
				StockCode:       pick.StockCode,
				SelectionReason: pick.Reason,
				BuyDate:         buyDate,
				SellDate:        buyDate.AddDate(0, 0, placeholderHoldDays),
				PeriodDays:      placeholderPeriodDays,
				Notes:           fmt.Sprintf("AI自動投入 - %d位選定", pick.Rank),
				Status:          models.StatusPending,
			}
			if err := im.store.SaveSelectionTrade(ctx, trade); err != nil {
				logger.Error().Err(err).Str("stock", pick.StockCode).Msg("Failed to save selection placeholder")
				res.Error = err.Error()
				continue
			}
			logging.LogTradeRecorded(logger, string(models.KindSelection), trade.ID, trade.ModelID, trade.StockCode, 0)
			res.Selections++
			report.Total++
		}

		trade := &models.FixedTrade{
			ExecutionDate:  execution,
			ModelID:        res.ModelID,
			StockCode:      im.cfg.FixedStockCode,
			BuyDate:        buyDate,
			SellDate:       buyDate.AddDate(0, 0, placeholderHoldDays),
			PredictedPrice: pred.PredictedPrice,
			PredictedHigh:  pred.PredictedHigh,
			PredictedLow:   pred.PredictedLow,
			PeriodDays:     placeholderPeriodDays,
			Notes:          "AI自動投入 - AI自動解析による予測",
			Status:         models.StatusPending,
		}
		if err := im.store.SaveFixedTrade(ctx, trade); err != nil {
			logger.Error().Err(err).Msg("Failed to save fixed placeholder")
			res.Error = err.Error()
			continue
		}
		logging.LogTradeRecorded(logger, string(models.KindFixed), trade.ID, trade.ModelID, trade.StockCode, 0)
		res.Fixed = true
		report.Total++
	}

	report.Models = results
	im.logger.Info().
		Str("date", report.Date).
		Time("buy_date", buyDate).
		Int("records", report.Total).
		Msg("Import complete")
	return report, nil
}
