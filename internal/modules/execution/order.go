package execution

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/shopspring/decimal"
)

// order is the scheduler-owned state of one execution order.
// status is read lock-free at the top of every step; mu guards everything else.
type order struct {
	id          string
	symbol      string
	side        domain.Side
	algorithm   Algorithm
	totalAmount float64
	total       decimal.Decimal
	createdAt   time.Time

	priceRange float64
	interval   time.Duration
	priceLimit float64

	status atomic.Int32

	mu          sync.Mutex
	slices      []Slice
	executed    decimal.Decimal
	notional    float64
	priced      float64 // executed amount with a known fill price
	completedAt time.Time
	err         string
}

// newOrder keeps total as requested; the slice amounts are an exact decimal split of it.
func newOrder(id string, algorithm Algorithm, symbol string, side domain.Side, total float64, amounts []float64, createdAt time.Time) *order {
	o := &order{
		id:          id,
		symbol:      symbol,
		side:        side,
		algorithm:   algorithm,
		totalAmount: total,
		total:       decimal.NewFromFloat(total),
		createdAt:   createdAt,
		slices:      make([]Slice, len(amounts)),
	}
	for i, amount := range amounts {
		o.slices[i] = Slice{Index: i, Amount: amount}
	}
	return o
}

func (o *order) state() Status {
	return Status(o.status.Load())
}

func (o *order) isActive() bool {
	return o.state() == StatusActive
}

// finish moves an active order to a terminal state. It returns false if the
// order had already left the active state.
func (o *order) finish(to Status, at time.Time, reason string) bool {
	if !o.status.CompareAndSwap(int32(StatusActive), int32(to)) {
		return false
	}
	o.mu.Lock()
	o.completedAt = at
	if reason != "" {
		o.err = reason
	}
	o.mu.Unlock()
	return true
}

func (o *order) slice(i int) Slice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slices[i]
}

func (o *order) setLimit(i int, limit float64) {
	o.mu.Lock()
	o.slices[i].LimitPrice = limit
	o.mu.Unlock()
}

// recordFill marks slice i executed and updates the accumulators.
// A venue that reports no executed amount is taken to have filled the slice in full.
func (o *order) recordFill(i int, res *domain.OrderResult, fallbackPrice float64, at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := &o.slices[i]
	amount := s.Amount
	price := fallbackPrice
	if res != nil {
		if res.ExecutedAmount > 0 && res.ExecutedAmount < amount {
			amount = res.ExecutedAmount
		}
		if res.AveragePrice > 0 {
			price = res.AveragePrice
		}
		s.VenueOrderID = res.OrderID
	}

	s.Executed = true
	s.FillAmount = amount
	s.FillPrice = price
	s.ExecutedAt = at

	o.executed = o.executed.Add(decimal.NewFromFloat(amount))
	if price > 0 {
		o.notional += amount * price
		o.priced += amount
	}
}

func (o *order) markSkipped(i int, at time.Time) {
	o.mu.Lock()
	o.slices[i].Skipped = true
	o.slices[i].ExecutedAt = at
	o.mu.Unlock()
}

func (o *order) snapshot(withSlices bool) OrderStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := OrderStatus{
		OrderID:        o.id,
		Symbol:         o.symbol,
		Side:           o.side,
		Algorithm:      o.algorithm,
		Status:         o.state(),
		ExecutedAmount: o.executed.InexactFloat64(),
		TotalAmount:    o.totalAmount,
		SlicesTotal:    len(o.slices),
		CreatedAt:      o.createdAt,
		CompletedAt:    o.completedAt,
		Error:          o.err,
	}
	if o.total.IsPositive() {
		st.Progress = o.executed.Div(o.total).InexactFloat64()
	}
	if o.priced > 0 {
		st.AveragePrice = o.notional / o.priced
	}
	for _, s := range o.slices {
		if s.Executed {
			st.SlicesExecuted++
		}
		if s.Skipped {
			st.SlicesSkipped++
		}
	}
	if withSlices {
		st.Slices = append([]Slice(nil), o.slices...)
	}
	return st
}
