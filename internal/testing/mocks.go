// Package testing provides mocks and fixtures shared by package tests.
package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/conductor/internal/domain"
)

// ErrMockFailure is the default error returned by failing mocks.
var ErrMockFailure = errors.New("mock failure")

// MockOrderPlacer is a mock implementation of domain.OrderPlacer for testing.
// Orders fill in full at the configured price unless a failure is programmed.
type MockOrderPlacer struct {
	mu        sync.Mutex
	requests  []domain.OrderRequest
	price     float64
	fillRatio float64
	failOn    map[int]error
	err       error
	hook      func(call int, req domain.OrderRequest)
}

// NewMockOrderPlacer creates a placer that fills every order at price
func NewMockOrderPlacer(price float64) *MockOrderPlacer {
	return &MockOrderPlacer{
		price:     price,
		fillRatio: 1,
		failOn:    make(map[int]error),
	}
}

// SetError makes every subsequent call fail with err
func (m *MockOrderPlacer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailOnCall makes the n-th call (1-based) fail with err
func (m *MockOrderPlacer) FailOnCall(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[n] = err
}

// SetFillRatio sets the fraction of each request reported as executed
func (m *MockOrderPlacer) SetFillRatio(ratio float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fillRatio = ratio
}

// SetPrice changes the fill price
func (m *MockOrderPlacer) SetPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = price
}

// OnCall registers a hook invoked (outside the lock) before each call returns
func (m *MockOrderPlacer) OnCall(fn func(call int, req domain.OrderRequest)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

// PlaceOrder records the request and returns the programmed result
func (m *MockOrderPlacer) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	call := len(m.requests)
	hook := m.hook
	err := m.err
	if e, ok := m.failOn[call]; ok {
		err = e
	}
	price := m.price
	if req.LimitPrice > 0 {
		price = req.LimitPrice
	}
	executed := req.Amount * m.fillRatio
	m.mu.Unlock()

	if hook != nil {
		hook(call, req)
	}
	if err != nil {
		return nil, err
	}
	return &domain.OrderResult{
		OrderID:        fmt.Sprintf("MOCK-%d", call),
		ExecutedAmount: executed,
		AveragePrice:   price,
	}, nil
}

// Requests returns a copy of every request received
func (m *MockOrderPlacer) Requests() []domain.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderRequest(nil), m.requests...)
}

// Calls returns the number of PlaceOrder calls
func (m *MockOrderPlacer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// MockPriceSource is a mock implementation of domain.PriceSource for testing
type MockPriceSource struct {
	mu     sync.RWMutex
	prices map[string]float64
	err    error
}

// NewMockPriceSource creates a new mock price source
func NewMockPriceSource(prices map[string]float64) *MockPriceSource {
	p := make(map[string]float64, len(prices))
	for k, v := range prices {
		p[k] = v
	}
	return &MockPriceSource{prices: p}
}

// SetPrice sets the price for symbol
func (m *MockPriceSource) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetError sets the error to return
func (m *MockPriceSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetPrice returns the configured price
func (m *MockPriceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	price, ok := m.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return price, nil
}

// MockQuoteProvider is a mock implementation of domain.QuoteProvider for testing
type MockQuoteProvider struct {
	mu    sync.Mutex
	quote *domain.VenueQuote
	err   error
	delay time.Duration
	calls int
}

// NewMockQuoteProvider creates a provider that always returns quote
func NewMockQuoteProvider(quote domain.VenueQuote) *MockQuoteProvider {
	return &MockQuoteProvider{quote: &quote}
}

// SetError sets the error to return
func (m *MockQuoteProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes Quote block for d or until the context is done
func (m *MockQuoteProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Quote returns the configured quote
func (m *MockQuoteProvider) Quote(ctx context.Context, symbol string, side domain.Side, amount float64) (*domain.VenueQuote, error) {
	m.mu.Lock()
	m.calls++
	delay := m.delay
	err := m.err
	quote := m.quote
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	q := *quote
	return &q, nil
}

// Calls returns the number of Quote calls
func (m *MockQuoteProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockMarketFeed is a mock implementation of domain.MarketFeed for testing
type MockMarketFeed struct {
	mu       sync.RWMutex
	snapshot domain.MarketSnapshot
	err      error
}

// NewMockMarketFeed creates a feed returning snapshot
func NewMockMarketFeed(snapshot domain.MarketSnapshot) *MockMarketFeed {
	return &MockMarketFeed{snapshot: snapshot}
}

// SetSnapshot replaces the snapshot
func (m *MockMarketFeed) SetSnapshot(snapshot domain.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
}

// SetError sets the error to return
func (m *MockMarketFeed) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Snapshot returns the configured snapshot
func (m *MockMarketFeed) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return domain.MarketSnapshot{}, m.err
	}
	return m.snapshot, nil
}
