package domain

import "time"

// Venue-agnostic types exchanged with the order placement and quoting ports.

// OrderRequest is one order handed to an OrderPlacer
type OrderRequest struct {
	Symbol     string  // Asset symbol
	Side       Side    // BUY or SELL
	Amount     float64 // Quantity in asset units
	LimitPrice float64 // 0 means market order
}

// OrderResult represents the result of placing an order
type OrderResult struct {
	OrderID        string  // Venue order confirmation ID
	ExecutedAmount float64 // Filled quantity
	AveragePrice   float64 // Average fill price
}

// VenueQuote is a venue's indicative terms for an order
type VenueQuote struct {
	Price           float64       // Quoted price
	AvailableAmount float64       // Quantity the venue can fill at that price
	Fee             float64       // Fee rate as fraction (0.001 = 0.1%)
	Latency         time.Duration // Expected round-trip latency
}
