package paper

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/rs/zerolog"
)

// Fill is one simulated execution.
type Fill struct {
	Venue   string
	OrderID string
	Symbol  string
	Side    domain.Side
	Amount  float64
	Price   float64
	Fee     float64 // in quote currency
	At      time.Time
}

// VenueConfig describes a simulated venue.
type VenueConfig struct {
	Name string
	// Fee is the taker fee rate (0.001 = 0.1%).
	Fee float64
	// Latency is simulated on every quote and order.
	Latency time.Duration
	// Liquidity is the largest quantity filled per order. 0 means unlimited.
	Liquidity float64
	// Spread is the full bid/ask spread as a fraction of the mid price.
	Spread float64
}

// Venue is a simulated exchange over a Market. It implements
// domain.QuoteProvider and domain.OrderPlacer.
type Venue struct {
	cfg    VenueConfig
	market *Market
	log    zerolog.Logger
	seq    atomic.Int64

	mu     sync.RWMutex
	onFill []func(Fill)
}

// NewVenue creates a simulated venue.
func NewVenue(cfg VenueConfig, market *Market, log zerolog.Logger) *Venue {
	return &Venue{
		cfg:    cfg,
		market: market,
		log:    log.With().Str("client", "paper").Str("venue", cfg.Name).Logger(),
	}
}

// Name returns the venue name.
func (v *Venue) Name() string {
	return v.cfg.Name
}

// OnFill registers fn to be called after every fill.
func (v *Venue) OnFill(fn func(Fill)) {
	v.mu.Lock()
	v.onFill = append(v.onFill, fn)
	v.mu.Unlock()
}

// Quote returns the venue's touch price for side.
func (v *Venue) Quote(ctx context.Context, symbol string, side domain.Side, amount float64) (*domain.VenueQuote, error) {
	if err := v.wait(ctx); err != nil {
		return nil, err
	}
	price, err := v.touch(ctx, symbol, side)
	if err != nil {
		return nil, err
	}

	available := v.cfg.Liquidity
	if available <= 0 {
		available = math.Max(amount, 0)
	}
	return &domain.VenueQuote{
		Price:           price,
		AvailableAmount: available,
		Fee:             v.cfg.Fee,
		Latency:         v.cfg.Latency,
	}, nil
}

// PlaceOrder fills up to the venue's liquidity. Limit orders fill at the limit
// price; market orders fill at the touch.
func (v *Venue) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, req.Amount)
	}
	if err := v.wait(ctx); err != nil {
		return nil, err
	}

	price := req.LimitPrice
	if price <= 0 {
		p, err := v.touch(ctx, req.Symbol, req.Side)
		if err != nil {
			return nil, err
		}
		price = p
	}

	amount := req.Amount
	if v.cfg.Liquidity > 0 && amount > v.cfg.Liquidity {
		amount = v.cfg.Liquidity
	}

	fill := Fill{
		Venue:   v.cfg.Name,
		OrderID: fmt.Sprintf("PAPER-%s-%d", v.cfg.Name, v.seq.Add(1)),
		Symbol:  req.Symbol,
		Side:    req.Side,
		Amount:  amount,
		Price:   price,
		Fee:     amount * price * v.cfg.Fee,
		At:      time.Now(),
	}

	v.log.Info().
		Str("order_id", fill.OrderID).
		Str("symbol", fill.Symbol).
		Str("side", string(fill.Side)).
		Float64("amount", fill.Amount).
		Float64("price", fill.Price).
		Msg("Paper order filled")

	v.mu.RLock()
	hooks := append(([]func(Fill))(nil), v.onFill...)
	v.mu.RUnlock()
	for _, fn := range hooks {
		fn(fill)
	}

	return &domain.OrderResult{
		OrderID:        fill.OrderID,
		ExecutedAmount: fill.Amount,
		AveragePrice:   fill.Price,
	}, nil
}

func (v *Venue) touch(ctx context.Context, symbol string, side domain.Side) (float64, error) {
	mid, err := v.market.GetPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	half := v.cfg.Spread / 2
	if side.IsBuy() {
		return mid * (1 + half), nil
	}
	return mid * (1 - half), nil
}

func (v *Venue) wait(ctx context.Context) error {
	if v.cfg.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(v.cfg.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
