package pricing

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
	"llm-trade-verifier/pkg/utils"
)

// DefaultYahooBaseURL is the public chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// lookaround is how far either side of the target the candle window reaches.
const lookaround = 30 * 24 * time.Hour

// YahooConfig configures YahooSource.
type YahooConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	MarketSuffix string
	Location     *time.Location
}

// YahooSource reads daily candles from the Yahoo Finance chart API.
type YahooSource struct {
	client *resty.Client
	cfg    YahooConfig
	retry  utils.RetryConfig
	logger zerolog.Logger
}

// NewYahooSource creates a chart API client.
func NewYahooSource(cfg YahooConfig, logger zerolog.Logger) *YahooSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultYahooBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = utils.TokyoLocation
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "llm-trade-verifier/1.0")

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	retry.InitialDelay = 500 * time.Millisecond

	return &YahooSource{client: client, cfg: cfg, retry: retry, logger: logger}
}

// Name implements PriceSource.
func (y *YahooSource) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Candles fetches daily candles for code between from and to.
func (y *YahooSource) Candles(ctx context.Context, code string, from, to time.Time) ([]models.Candle, error) {
	symbol := Symbol(code, y.cfg.MarketSuffix)

	return utils.RetryWithResult(ctx, y.retry, func() ([]models.Candle, error) {
		var body chartResponse
		resp, err := y.client.R().
			SetContext(ctx).
			SetPathParam("symbol", symbol).
			SetQueryParams(map[string]string{
				"period1":  strconv.FormatInt(from.Unix(), 10),
				"period2":  strconv.FormatInt(to.Unix(), 10),
				"interval": "1d",
			}).
			SetResult(&body).
			SetError(&body).
			Get("/v8/finance/chart/{symbol}")
		if err != nil {
			return nil, requestError(err)
		}

		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			return nil, errors.ErrRateLimited
		case resp.StatusCode() >= 500:
			return nil, fmt.Errorf("chart API returned %d", resp.StatusCode())
		case resp.IsError():
			msg := resp.Status()
			if body.Chart.Error != nil {
				msg = body.Chart.Error.Description
			}
			return nil, utils.Permanent(fmt.Errorf("%w: %s", errors.ErrPriceUnavailable, msg))
		}

		return body.candles(), nil
	})
}

// requestError tags transport timeouts with ErrTimeout. The result stays retryable.
func requestError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
	}
	return fmt.Errorf("chart request failed: %w", err)
}

func (r chartResponse) candles() []models.Candle {
	candles := []models.Candle{}
	if len(r.Chart.Result) == 0 || len(r.Chart.Result[0].Indicators.Quote) == 0 {
		return candles
	}
	res := r.Chart.Result[0]
	q := res.Indicators.Quote[0]
	for i, ts := range res.Timestamp {
		// Yahoo leaves nulls for halted days.
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.Candle{Timestamp: time.Unix(ts, 0).UTC(), Close: *q.Close[i]}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}

// ClosingPrice implements PriceSource.
func (y *YahooSource) ClosingPrice(ctx context.Context, stockCode string, target time.Time) (models.Quote, error) {
	candles, err := y.Candles(ctx, stockCode, target.Add(-lookaround), target.Add(lookaround))
	if err != nil {
		return models.Quote{}, errors.NewPriceError(stockCode, target.Format("2006-01-02"), y.Name(), err)
	}

	c, day, ok := closestClose(candles, target, y.cfg.Location)
	if !ok {
		return models.Quote{}, errors.NewPriceError(stockCode, target.Format("2006-01-02"), y.Name(), errors.ErrPriceUnavailable)
	}
	y.logger.Debug().
		Str("stock", stockCode).
		Time("target", target).
		Time("resolved", day).
		Int("candles", len(candles)).
		Msg("Resolved closing price")

	return models.Quote{
		StockCode: stockCode,
		Date:      day,
		Close:     roundPrice(c.Close),
		Source:    y.Name(),
	}, nil
}
