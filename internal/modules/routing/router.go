package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultQuoteTimeout bounds each venue's quote request.
	DefaultQuoteTimeout = 2 * time.Second
	// DefaultMaxConcurrency bounds the quote fan-out.
	DefaultMaxConcurrency = 8
)

// Venue is one execution venue: where to get a quote and where to place the order.
type Venue struct {
	Name   string
	Quotes domain.QuoteProvider
	Orders domain.OrderPlacer
	// Limiter throttles quote requests to this venue. Nil means unthrottled.
	Limiter *rate.Limiter
}

// Options tunes the router.
type Options struct {
	QuoteTimeout   time.Duration
	MaxConcurrency int
	Weights        Weights
}

// DefaultOptions returns the standard router options.
func DefaultOptions() Options {
	return Options{
		QuoteTimeout:   DefaultQuoteTimeout,
		MaxConcurrency: DefaultMaxConcurrency,
		Weights:        DefaultWeights,
	}
}

// ExecutionResult is the outcome of a routed order.
type ExecutionResult struct {
	Venue           string      `json:"venue"`
	OrderID         string      `json:"order_id"`
	Symbol          string      `json:"symbol"`
	Side            domain.Side `json:"side"`
	RequestedAmount float64     `json:"requested_amount"`
	ExecutedAmount  float64     `json:"executed_amount"`
	AveragePrice    float64     `json:"average_price"`
	Score           float64     `json:"score"`
	QuotesReceived  int         `json:"quotes_received"`
}

// Router scores venue quotes and executes against the best venue.
type Router struct {
	venues []Venue
	opts   Options
	log    zerolog.Logger
}

// NewRouter creates a router over venues.
func NewRouter(venues []Venue, opts Options, log zerolog.Logger) *Router {
	if opts.QuoteTimeout <= 0 {
		opts.QuoteTimeout = DefaultQuoteTimeout
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights
	}
	return &Router{
		venues: venues,
		opts:   opts,
		log:    log.With().Str("service", "router").Logger(),
	}
}

// Venues returns the configured venues.
func (r *Router) Venues() []Venue {
	return r.venues
}

// PlaceOrder routes req across the configured venues. It lets the router stand
// in wherever a single order placer is expected.
func (r *Router) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	res, err := r.route(ctx, req, r.venues)
	if err != nil {
		return nil, err
	}
	return &domain.OrderResult{
		OrderID:        res.OrderID,
		ExecutedAmount: res.ExecutedAmount,
		AveragePrice:   res.AveragePrice,
	}, nil
}

// RouteAndExecute quotes every venue, picks the best composite score and places
// a single order there. It fails with domain.ErrNoLiquidity when no venue quotes.
func (r *Router) RouteAndExecute(ctx context.Context, symbol string, side domain.Side, amount float64, venues []Venue) (*ExecutionResult, error) {
	return r.route(ctx, domain.OrderRequest{Symbol: symbol, Side: side, Amount: amount}, venues)
}

func (r *Router) route(ctx context.Context, req domain.OrderRequest, venues []Venue) (*ExecutionResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, req.Amount)
	}

	quotes := r.GatherQuotes(ctx, req.Symbol, req.Side, req.Amount, venues)
	collected := make([]VenueQuote, 0, len(quotes))
	byName := make(map[string]Venue, len(venues))
	for i, q := range quotes {
		if q == nil {
			continue
		}
		collected = append(collected, VenueQuote{Venue: venues[i].Name, Quote: *q})
		byName[venues[i].Name] = venues[i]
	}

	scored := ScoreQuotes(req.Side, req.Amount, collected, r.opts.Weights)
	if len(scored) == 0 {
		r.log.Warn().
			Str("symbol", req.Symbol).
			Str("side", string(req.Side)).
			Float64("amount", req.Amount).
			Int("venues", len(venues)).
			Msg("No venue returned a usable quote")
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNoLiquidity, req.Side, req.Symbol)
	}

	best := scored[0]
	venue := byName[best.Venue]

	r.log.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Str("venue", best.Venue).
		Float64("score", best.Score).
		Float64("price", best.Quote.Price).
		Int("quotes", len(scored)).
		Msg("Routing order")

	placed, err := venue.Orders.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("venue %s: %w", best.Venue, err)
	}

	return &ExecutionResult{
		Venue:           best.Venue,
		OrderID:         placed.OrderID,
		Symbol:          req.Symbol,
		Side:            req.Side,
		RequestedAmount: req.Amount,
		ExecutedAmount:  placed.ExecutedAmount,
		AveragePrice:    placed.AveragePrice,
		Score:           best.Score,
		QuotesReceived:  len(scored),
	}, nil
}

// GatherQuotes requests a quote from every venue concurrently. The result is
// index-aligned with venues; a venue that errored or timed out yields nil and
// never affects its siblings.
func (r *Router) GatherQuotes(ctx context.Context, symbol string, side domain.Side, amount float64, venues []Venue) []*domain.VenueQuote {
	results := make([]*domain.VenueQuote, len(venues))

	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrency)
	for i, v := range venues {
		g.Go(func() error {
			q, err := r.quoteOne(ctx, v, symbol, side, amount)
			if err != nil {
				r.log.Debug().Err(err).Str("venue", v.Name).Str("symbol", symbol).Msg("Quote failed")
				return nil
			}
			results[i] = q
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Router) quoteOne(ctx context.Context, v Venue, symbol string, side domain.Side, amount float64) (*domain.VenueQuote, error) {
	if v.Quotes == nil || v.Orders == nil {
		return nil, fmt.Errorf("venue %s is not fully configured", v.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.QuoteTimeout)
	defer cancel()

	if v.Limiter != nil {
		if err := v.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	type reply struct {
		quote *domain.VenueQuote
		err   error
	}
	ch := make(chan reply, 1)
	go func() {
		q, err := v.Quotes.Quote(ctx, symbol, side, amount)
		ch <- reply{quote: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case rep := <-ch:
		if rep.err != nil {
			return nil, rep.err
		}
		if rep.quote == nil {
			return nil, fmt.Errorf("venue %s returned no quote", v.Name)
		}
		return rep.quote, nil
	}
}
