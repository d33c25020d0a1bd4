// Package paper simulates market data and execution venues for dry runs.
package paper

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
)

// Market is a simulated price process: each Tick moves every symbol by a
// normally distributed daily return.
type Market struct {
	mu         sync.RWMutex
	history    map[string][]float64
	volatility map[string]float64
	drift      float64
	maxHistory int
	rng        *rand.Rand
}

// MarketConfig seeds a simulated market.
type MarketConfig struct {
	// Prices is the starting price of every symbol.
	Prices map[string]float64
	// Volatility is the annualized volatility per symbol; missing symbols use DefaultVolatility.
	Volatility        map[string]float64
	DefaultVolatility float64
	// Drift is the annualized expected return applied to every symbol.
	Drift float64
	// WarmupDays of synthetic history are generated before the first Tick.
	WarmupDays int
	// MaxHistory bounds the stored history per symbol. 0 keeps everything.
	MaxHistory int
	Seed       uint64
}

// NewMarket creates a simulated market and generates its warm-up history.
func NewMarket(cfg MarketConfig) *Market {
	m := &Market{
		history:    make(map[string][]float64, len(cfg.Prices)),
		volatility: make(map[string]float64, len(cfg.Prices)),
		drift:      cfg.Drift,
		maxHistory: cfg.MaxHistory,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d)),
	}

	defaultVol := cfg.DefaultVolatility
	if defaultVol <= 0 {
		defaultVol = 0.5
	}
	for symbol, price := range cfg.Prices {
		m.history[symbol] = []float64{price}
		vol := cfg.Volatility[symbol]
		if vol <= 0 {
			vol = defaultVol
		}
		m.volatility[symbol] = vol
	}

	for i := 0; i < cfg.WarmupDays; i++ {
		m.Tick()
	}
	return m
}

// Symbols returns every simulated symbol in lexical order.
func (m *Market) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.history))
	for s := range m.history {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Tick advances every symbol by one simulated trading day.
func (m *Market) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Iterate in a fixed order so a seed always reproduces the same path.
	symbols := make([]string, 0, len(m.history))
	for s := range m.history {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	dailyDrift := m.drift / 252
	for _, s := range symbols {
		h := m.history[s]
		last := h[len(h)-1]
		sigma := m.volatility[s] / math.Sqrt(252)
		next := last * math.Exp(dailyDrift-sigma*sigma/2+sigma*m.rng.NormFloat64())
		h = append(h, next)
		if m.maxHistory > 0 && len(h) > m.maxHistory {
			h = h[len(h)-m.maxHistory:]
		}
		m.history[s] = h
	}
}

// GetPrice returns the latest simulated price.
func (m *Market) GetPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.history[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %s", symbol)
	}
	return h[len(h)-1], nil
}

// History returns a copy of the simulated price history, oldest first.
func (m *Market) History(ctx context.Context, symbol string) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.history[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return append([]float64(nil), h...), nil
}

// Prices returns the latest price of every symbol.
func (m *Market) Prices() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.history))
	for s, h := range m.history {
		out[s] = h[len(h)-1]
	}
	return out
}
