package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
)

// BreakerState is the state of a BreakerSource.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerConfig configures a BreakerSource.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long an open breaker rejects lookups before letting one through.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the breaker settings used for live sources.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute}
}

// BreakerSource stops calling a failing source for a while, so a backfill
// over many records falls through to the next source instead of waiting
// out every retry. Lookups the source answered with "no data" do not count
// as failures.
type BreakerSource struct {
	next   PriceSource
	cfg    BreakerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreakerSource wraps next.
func NewBreakerSource(next PriceSource, cfg BreakerConfig, logger zerolog.Logger) *BreakerSource {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &BreakerSource{
		next:   next,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		state:  BreakerClosed,
	}
}

// Name implements PriceSource.
func (b *BreakerSource) Name() string { return b.next.Name() }

// State returns the current breaker state.
func (b *BreakerSource) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ClosingPrice implements PriceSource.
func (b *BreakerSource) ClosingPrice(ctx context.Context, stockCode string, target time.Time) (models.Quote, error) {
	if !b.allow() {
		return models.Quote{}, errors.NewPriceError(stockCode, target.Format("2006-01-02"), b.Name(),
			fmt.Errorf("%w: source suspended after repeated failures", errors.ErrPriceUnavailable))
	}

	q, err := b.next.ClosingPrice(ctx, stockCode, target)
	switch {
	case err == nil:
		b.record(true)
	case ctx.Err() != nil:
		// Cancellation says nothing about the source.
	case errors.Is(err, errors.ErrPriceUnavailable):
		b.record(true)
	default:
		b.record(false)
	}
	return q, err
}

func (b *BreakerSource) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.logger.Info().Str("source", b.next.Name()).Msg("Price source breaker half-open")
	}
	return true
}

func (b *BreakerSource) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		if b.state != BreakerClosed {
			b.logger.Info().Str("source", b.next.Name()).Msg("Price source breaker closed")
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
		b.failures = 0
		b.logger.Warn().
			Str("source", b.next.Name()).
			Dur("cooldown", b.cfg.Cooldown).
			Msg("Price source breaker opened")
	}
}
