package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/domain"
)

func (s *Service) scheduleIceberg(o *order, i int, at time.Time) {
	o.mu.Lock()
	o.slices[i].ScheduledAt = at
	o.mu.Unlock()

	s.scheduler.Schedule(stepID(o, i), at, func(ctx context.Context) {
		s.icebergStep(ctx, o, i)
	})
}

// icebergStep executes slice i and schedules slice i+1 once it has finished.
func (s *Service) icebergStep(ctx context.Context, o *order, i int) {
	if !o.isActive() {
		return
	}

	price, err := s.prices.GetPrice(ctx, o.symbol)
	if err != nil {
		s.terminate(o, StatusFailed, fmt.Sprintf("slice %d: price: %v", i, err))
		return
	}
	if price <= 0 {
		s.terminate(o, StatusFailed, fmt.Sprintf("slice %d: invalid price %v", i, price))
		return
	}

	limit := price * (1 + s.offset()*o.priceRange)
	o.setLimit(i, limit)
	slice := o.slice(i)

	res, err := s.placer.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:     o.symbol,
		Side:       o.side,
		Amount:     slice.Amount,
		LimitPrice: limit,
	})
	if err != nil {
		s.terminate(o, StatusFailed, fmt.Sprintf("slice %d: %v", i, err))
		return
	}

	now := s.clock.Now()
	o.recordFill(i, res, limit, now)

	s.log.Debug().
		Str("order_id", o.id).
		Int("slice", i+1).
		Int("of", len(o.slices)).
		Float64("amount", slice.Amount).
		Float64("limit", limit).
		Msg("Iceberg slice executed")

	if i+1 >= len(o.slices) {
		s.terminate(o, StatusCompleted, "")
		return
	}
	if o.isActive() {
		s.scheduleIceberg(o, i+1, now.Add(o.interval))
	}
}
