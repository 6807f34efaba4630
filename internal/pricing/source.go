package pricing

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/logging"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/pkg/utils"
)

// PriceSource resolves the closing price of a stock on or after a target date.
type PriceSource interface {
	// ClosingPrice returns the close on target, or on the first business day
	// after it. When no later data exists the last available close is returned.
	ClosingPrice(ctx context.Context, stockCode string, target time.Time) (models.Quote, error)
	Name() string
}

// closestClose picks the candle for target from candles (any order) whose
// timestamps are read in loc. It returns false when candles is empty.
func closestClose(candles []models.Candle, target time.Time, loc *time.Location) (models.Candle, time.Time, bool) {
	if len(candles) == 0 {
		return models.Candle{}, time.Time{}, false
	}
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	want := utils.DateOnly(target)
	for _, c := range sorted {
		day := utils.DateOnly(c.Timestamp.In(loc))
		if !day.Before(want) {
			return c, day, true
		}
	}
	last := sorted[len(sorted)-1]
	return last, utils.DateOnly(last.Timestamp.In(loc)), true
}

// ============================================================================
// Sample Source
// ============================================================================

var sampleBasePrices = map[string]float64{
	"7203": 2500,
	"6758": 12000,
	"9984": 35000,
	"8306": 800,
	"4502": 4500,
	"1234": 1500,
	"5678": 3000,
}

const defaultSampleBasePrice = 1000

// SampleCodes lists the codes with a known sample base price.
func SampleCodes() []string {
	codes := make([]string, 0, len(sampleBasePrices))
	for code := range sampleBasePrices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsSampleCode reports whether code has a known sample base price.
func IsSampleCode(code string) bool {
	_, ok := sampleBasePrices[code]
	return ok
}

// SampleSource generates deterministic synthetic closes for offline use and tests.
// A weekend target resolves to the preceding Friday.
type SampleSource struct{}

// Name implements PriceSource.
func (SampleSource) Name() string { return "sample" }

// ClosingPrice implements PriceSource.
func (SampleSource) ClosingPrice(ctx context.Context, stockCode string, target time.Time) (models.Quote, error) {
	day := utils.PreviousBusinessDay(utils.DateOnly(target))
	return models.Quote{
		StockCode: stockCode,
		Date:      day,
		Close:     samplePrice(stockCode, day),
		Source:    "sample",
	}, nil
}

// samplePrice is the base price varied by up to ±5%, seeded by the date and code.
func samplePrice(code string, day time.Time) float64 {
	base, ok := sampleBasePrices[code]
	if !ok {
		base = defaultSampleBasePrice
	}
	seed, _ := strconv.ParseInt(day.Format("20060102"), 10, 64)
	n, _ := strconv.ParseInt(code, 10, 64)
	rng := rand.New(rand.NewSource(seed + n))
	variation := rng.Float64()*0.10 - 0.05
	return roundPrice(base * (1 + variation))
}

// ============================================================================
// Fallback Source
// ============================================================================

// FallbackSource tries each source in order and returns the first success.
type FallbackSource struct {
	sources []PriceSource
	logger  zerolog.Logger
}

// NewFallbackSource creates a source chain. It needs at least one source.
func NewFallbackSource(logger zerolog.Logger, sources ...PriceSource) *FallbackSource {
	return &FallbackSource{sources: sources, logger: logger}
}

// Name implements PriceSource.
func (f *FallbackSource) Name() string { return "fallback" }

// ClosingPrice implements PriceSource.
func (f *FallbackSource) ClosingPrice(ctx context.Context, stockCode string, target time.Time) (models.Quote, error) {
	var lastErr error = errors.ErrPriceUnavailable
	for _, src := range f.sources {
		start := time.Now()
		q, err := src.ClosingPrice(ctx, stockCode, target)
		logging.LogPriceLookup(f.logger, src.Name(), stockCode, target.Format("2006-01-02"), time.Since(start), err)
		if err == nil {
			return q, nil
		}
		if ctx.Err() != nil {
			return models.Quote{}, ctx.Err()
		}
		lastErr = err
	}
	return models.Quote{}, lastErr
}

// sampleFirst routes the sample codes to the sample source and everything
// else to next.
type sampleFirst struct {
	next PriceSource
}

func (s sampleFirst) Name() string { return s.next.Name() }

func (s sampleFirst) ClosingPrice(ctx context.Context, stockCode string, target time.Time) (models.Quote, error) {
	if IsSampleCode(stockCode) {
		return SampleSource{}.ClosingPrice(ctx, stockCode, target)
	}
	return s.next.ClosingPrice(ctx, stockCode, target)
}

// NewAutoSource serves the sample codes from SampleSource, other codes from
// live, and falls back to SampleSource when live fails.
func NewAutoSource(live PriceSource, logger zerolog.Logger) *FallbackSource {
	return NewFallbackSource(logger, sampleFirst{next: live}, SampleSource{})
}
