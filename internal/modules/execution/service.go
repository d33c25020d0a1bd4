package execution

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/work"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TerminalFunc is called once when an order reaches a terminal state.
type TerminalFunc func(status OrderStatus)

// Service owns every execution order and paces them on a shared work scheduler.
// Orders never share mutable state; only the order registry is locked.
type Service struct {
	placer    domain.OrderPlacer
	prices    domain.PriceSource
	scheduler *work.Scheduler
	clock     work.Clock
	log       zerolog.Logger

	mu     sync.RWMutex
	orders map[string]*order

	rngMu sync.Mutex
	rng   *rand.Rand

	hooksMu sync.RWMutex
	hooks   []TerminalFunc
}

// NewService creates an execution service placing orders through placer.
func NewService(placer domain.OrderPlacer, prices domain.PriceSource, scheduler *work.Scheduler, log zerolog.Logger) *Service {
	return &Service{
		placer:    placer,
		prices:    prices,
		scheduler: scheduler,
		clock:     scheduler.Clock(),
		log:       log.With().Str("service", "execution").Logger(),
		orders:    make(map[string]*order),
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// SetSeed makes iceberg price perturbation reproducible.
func (s *Service) SetSeed(seed uint64) {
	s.rngMu.Lock()
	s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s.rngMu.Unlock()
}

// OnTerminal registers fn to be called whenever an order completes, fails or is cancelled.
func (s *Service) OnTerminal(fn TerminalFunc) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hooksMu.Unlock()
}

// ExecuteMarket places a single market order synchronously.
// The order ID is returned even when placement fails so the failure stays queryable.
func (s *Service) ExecuteMarket(ctx context.Context, symbol string, side domain.Side, amount float64) (string, error) {
	if err := validateAmount(amount); err != nil {
		return "", err
	}

	o := s.register(AlgorithmMarket, symbol, side, amount, []float64{amount})
	o.mu.Lock()
	o.slices[0].ScheduledAt = o.createdAt
	o.mu.Unlock()

	res, err := s.placer.PlaceOrder(ctx, domain.OrderRequest{Symbol: symbol, Side: side, Amount: amount})
	if err != nil {
		s.terminate(o, StatusFailed, err.Error())
		return o.id, fmt.Errorf("market order %s %s %.8f: %w", side, symbol, amount, err)
	}

	var fallback float64
	if res == nil || res.AveragePrice <= 0 {
		fallback = s.livePrice(ctx, symbol)
	}
	o.recordFill(0, res, fallback, s.clock.Now())
	s.terminate(o, StatusCompleted, "")
	return o.id, nil
}

// SubmitIceberg registers an iceberg order and schedules its first slice immediately.
func (s *Service) SubmitIceberg(p IcebergParams) (string, error) {
	amounts, err := SplitIceberg(p.TotalAmount, p.SliceSize)
	if err != nil {
		return "", err
	}
	if p.PriceRange < 0 {
		return "", fmt.Errorf("price range must be non-negative, got %v", p.PriceRange)
	}

	o := s.register(AlgorithmIceberg, p.Symbol, p.Side, p.TotalAmount, amounts)
	o.priceRange = p.PriceRange
	o.interval = p.Interval

	s.log.Info().
		Str("order_id", o.id).
		Str("symbol", p.Symbol).
		Str("side", string(p.Side)).
		Float64("total", p.TotalAmount).
		Int("slices", len(amounts)).
		Dur("interval", p.Interval).
		Msg("Iceberg order submitted")

	s.scheduleIceberg(o, 0, s.clock.Now())
	return o.id, nil
}

// SubmitTWAP registers a TWAP order with every interval pre-assigned an absolute time.
func (s *Service) SubmitTWAP(p TWAPParams) (string, error) {
	amounts, err := SplitTWAP(p.TotalAmount, p.Intervals)
	if err != nil {
		return "", err
	}
	if p.Duration < 0 {
		return "", fmt.Errorf("duration must be non-negative, got %s", p.Duration)
	}

	o := s.register(AlgorithmTWAP, p.Symbol, p.Side, p.TotalAmount, amounts)
	o.priceLimit = p.PriceLimit

	start := o.createdAt
	step := p.Duration / time.Duration(p.Intervals)
	o.mu.Lock()
	for i := range o.slices {
		o.slices[i].ScheduledAt = start.Add(time.Duration(i) * step)
	}
	first := o.slices[0].ScheduledAt
	o.mu.Unlock()

	s.log.Info().
		Str("order_id", o.id).
		Str("symbol", p.Symbol).
		Str("side", string(p.Side)).
		Float64("total", p.TotalAmount).
		Int("intervals", p.Intervals).
		Dur("duration", p.Duration).
		Float64("price_limit", p.PriceLimit).
		Msg("TWAP order submitted")

	s.scheduleTWAP(o, 0, first)
	return o.id, nil
}

// Cancel stops an active order. A step that is already placing an order is
// allowed to finish, but no further step will do any work.
func (s *Service) Cancel(orderID string) error {
	o, ok := s.lookup(orderID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if !s.terminate(o, StatusCancelled, "") {
		return fmt.Errorf("%w: %s is %s", domain.ErrOrderNotActive, orderID, o.state())
	}
	s.log.Info().Str("order_id", orderID).Msg("Order cancelled")
	return nil
}

// Status returns the current state of an order, including its slices.
func (s *Service) Status(orderID string) (OrderStatus, error) {
	o, ok := s.lookup(orderID)
	if !ok {
		return OrderStatus{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return o.snapshot(true), nil
}

// Orders returns a summary of every known order, oldest first.
func (s *Service) Orders() []OrderStatus {
	s.mu.RLock()
	out := make([]OrderStatus, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.snapshot(false))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ActiveCount returns the number of orders still being paced.
func (s *Service) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.orders {
		if o.isActive() {
			n++
		}
	}
	return n
}

func (s *Service) register(algorithm Algorithm, symbol string, side domain.Side, total float64, amounts []float64) *order {
	o := newOrder(uuid.New().String(), algorithm, symbol, side, total, amounts, s.clock.Now())
	s.mu.Lock()
	s.orders[o.id] = o
	s.mu.Unlock()
	return o
}

func (s *Service) lookup(orderID string) (*order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	return o, ok
}

// terminate performs the terminal transition and notifies hooks exactly once.
func (s *Service) terminate(o *order, to Status, reason string) bool {
	if !o.finish(to, s.clock.Now(), reason) {
		return false
	}

	status := o.snapshot(false)
	if to == StatusFailed {
		s.log.Error().
			Str("order_id", o.id).
			Str("symbol", o.symbol).
			Str("algorithm", string(o.algorithm)).
			Float64("executed", status.ExecutedAmount).
			Float64("total", status.TotalAmount).
			Str("reason", reason).
			Msg("Order failed")
	} else {
		s.log.Info().
			Str("order_id", o.id).
			Str("status", to.String()).
			Float64("executed", status.ExecutedAmount).
			Float64("average_price", status.AveragePrice).
			Msg("Order finished")
	}

	s.hooksMu.RLock()
	hooks := append([]TerminalFunc(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(status)
	}
	return true
}

// Prune forgets terminal orders that finished more than olderThan ago and
// returns how many were removed. Active orders are never pruned.
func (s *Service) Prune(olderThan time.Duration) int {
	cutoff := s.clock.Now().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, o := range s.orders {
		if o.isActive() {
			continue
		}
		o.mu.Lock()
		done := o.completedAt
		o.mu.Unlock()
		if done.Before(cutoff) {
			delete(s.orders, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Dur("older_than", olderThan).Msg("Pruned finished orders")
	}
	return removed
}

// livePrice is the fill price used when a venue reports none. It returns 0 if
// the price source cannot answer, which leaves the fill out of the average price.
func (s *Service) livePrice(ctx context.Context, symbol string) float64 {
	price, err := s.prices.GetPrice(ctx, symbol)
	if err != nil || price <= 0 {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("No fill price reported and live price unavailable")
		return 0
	}
	return price
}

// offset returns a uniform value in [-1, 1).
func (s *Service) offset() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return 2*s.rng.Float64() - 1
}

func stepID(o *order, i int) string {
	return fmt.Sprintf("%s:%s:%d", o.id, o.algorithm, i)
}
