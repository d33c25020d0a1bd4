package domain

import "context"

// OrderPlacer is the sole boundary between the engine and an exchange.
// Authentication, signing, and transport all live behind it.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// OrderPlacerFunc adapts a plain function to OrderPlacer.
type OrderPlacerFunc func(ctx context.Context, req OrderRequest) (*OrderResult, error)

// PlaceOrder calls f(ctx, req).
func (f OrderPlacerFunc) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	return f(ctx, req)
}

// PriceSource provides live prices.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// QuoteProvider returns a venue's quote for an order, or an error.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string, side Side, amount float64) (*VenueQuote, error)
}

// MarketFeed supplies the per-cycle snapshot of the asset universe: prices,
// volatilities, expected returns, and return history. The engine treats the
// numbers as opaque inputs regardless of where they originate.
type MarketFeed interface {
	Snapshot(ctx context.Context) (MarketSnapshot, error)
}
