package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llm-trade-verifier/internal/errors"
)

func TestBreakerSource_OpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	live := &stubSource{name: "live", err: errors.ErrTimeout}
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	b := NewBreakerSource(live, BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, zerolog.Nop())
	b.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		if _, err := b.ClosingPrice(ctx, "1111", day(2025, 5, 26)); !errors.Is(err, errors.ErrTimeout) {
			t.Fatalf("call %d: expected source error, got %v", i, err)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN", b.State())
	}

	_, err := b.ClosingPrice(ctx, "1111", day(2025, 5, 26))
	if !errors.Is(err, errors.ErrPriceUnavailable) || live.calls != 2 {
		t.Errorf("open breaker should reject without calling: %v, calls=%d", err, live.calls)
	}

	// After the cooldown one lookup goes through; success closes the breaker.
	clock = clock.Add(2 * time.Minute)
	live.err = nil
	live.prices = map[string]float64{"2025-05-26": 1500}
	q, err := b.ClosingPrice(ctx, "1111", day(2025, 5, 26))
	if err != nil || q.Close != 1500 || b.State() != BreakerClosed {
		t.Errorf("expected recovery, got %+v, %v, %s", q, err, b.State())
	}
}

func TestBreakerSource_HalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	live := &stubSource{name: "live", err: errors.ErrTimeout}
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	b := NewBreakerSource(live, BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}, zerolog.Nop())
	b.now = func() time.Time { return clock }

	b.ClosingPrice(ctx, "1111", day(2025, 5, 26))
	clock = clock.Add(2 * time.Minute)
	b.ClosingPrice(ctx, "1111", day(2025, 5, 26))
	if b.State() != BreakerOpen || live.calls != 2 {
		t.Errorf("half-open failure should reopen: %s, calls=%d", b.State(), live.calls)
	}
}

func TestBreakerSource_NoDataIsNotAFailure(t *testing.T) {
	live := &stubSource{name: "live", prices: map[string]float64{}}
	b := NewBreakerSource(live, BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := b.ClosingPrice(context.Background(), "1111", day(2025, 5, 26)); !errors.Is(err, errors.ErrPriceUnavailable) {
			t.Fatalf("expected no-data error, got %v", err)
		}
	}
	if b.State() != BreakerClosed || live.calls != 3 {
		t.Errorf("no-data answers should keep the breaker closed: %s, calls=%d", b.State(), live.calls)
	}
}

func TestBreakerSource_FallsThroughInAutoSource(t *testing.T) {
	live := &stubSource{name: "live", err: errors.ErrTimeout}
	auto := NewAutoSource(NewBreakerSource(live, BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}, zerolog.Nop()), zerolog.Nop())

	for i := 0; i < 3; i++ {
		q, err := auto.ClosingPrice(context.Background(), "1111", day(2025, 5, 26))
		if err != nil || q.Source != "sample" {
			t.Fatalf("expected sample fallback, got %+v, %v", q, err)
		}
	}
	if live.calls != 1 {
		t.Errorf("open breaker should spare the live source, calls=%d", live.calls)
	}
}
