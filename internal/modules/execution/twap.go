package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/domain"
)

func (s *Service) scheduleTWAP(o *order, i int, at time.Time) {
	s.scheduler.Schedule(stepID(o, i), at, func(ctx context.Context) {
		s.twapStep(ctx, o, i)
	})
}

// twapStep attempts interval i. An interval whose live price violates the limit
// is skipped without redistributing its amount.
func (s *Service) twapStep(ctx context.Context, o *order, i int) {
	if !o.isActive() {
		return
	}

	slice := o.slice(i)
	var observed float64

	if o.priceLimit > 0 {
		price, err := s.prices.GetPrice(ctx, o.symbol)
		switch {
		case err != nil || price <= 0:
			s.log.Warn().
				Err(err).
				Str("order_id", o.id).
				Int("interval", i+1).
				Msg("Price unavailable, skipping interval")
			s.skipInterval(o, i)
			s.advanceTWAP(o, i)
			return
		case violatesLimit(o.side, price, o.priceLimit):
			s.log.Debug().
				Str("order_id", o.id).
				Int("interval", i+1).
				Float64("price", price).
				Float64("limit", o.priceLimit).
				Msg("Price outside limit, skipping interval")
			s.skipInterval(o, i)
			s.advanceTWAP(o, i)
			return
		}
		observed = price
	}

	res, err := s.placer.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: o.symbol,
		Side:   o.side,
		Amount: slice.Amount,
	})
	if err != nil {
		s.terminate(o, StatusFailed, fmt.Sprintf("interval %d: %v", i, err))
		return
	}

	if observed <= 0 && (res == nil || res.AveragePrice <= 0) {
		observed = s.livePrice(ctx, o.symbol)
	}
	o.recordFill(i, res, observed, s.clock.Now())
	s.advanceTWAP(o, i)
}

func (s *Service) skipInterval(o *order, i int) {
	o.markSkipped(i, s.clock.Now())
}

// advanceTWAP schedules the next interval at its pre-assigned time, or
// completes the order once every interval has been attempted.
func (s *Service) advanceTWAP(o *order, i int) {
	if i+1 >= len(o.slices) {
		s.terminate(o, StatusCompleted, "")
		return
	}
	if !o.isActive() {
		return
	}

	at := o.slice(i + 1).ScheduledAt
	if now := s.clock.Now(); now.After(at) {
		at = now
	}
	s.scheduleTWAP(o, i+1, at)
}

// violatesLimit reports whether price is worse than limit for side.
func violatesLimit(side domain.Side, price, limit float64) bool {
	if side.IsBuy() {
		return price > limit
	}
	return price < limit
}
