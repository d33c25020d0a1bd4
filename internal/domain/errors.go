package domain

import "errors"

var (
	// ErrNoLiquidity is returned when no venue produced a usable quote.
	ErrNoLiquidity = errors.New("no liquidity")
	// ErrOrderNotFound is returned for unknown order identifiers.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotActive is returned when acting on a terminal order.
	ErrOrderNotActive = errors.New("order not active")
	// ErrInvalidAmount is returned for non-positive or non-finite order amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotInitialized is returned by the portfolio manager before Initialize.
	ErrNotInitialized = errors.New("portfolio not initialized")
)
