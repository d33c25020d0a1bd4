// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side represents the direction of an order
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SideFromString parses a side in any letter case.
func SideFromString(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid side: %q", s)
	}
}

// IsBuy returns true for buy orders
func (s Side) IsBuy() bool { return s == SideBuy }

// Asset is one member of the optimizer universe. Assets are upserted by symbol.
type Asset struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	MarketCap  float64 `json:"market_cap"`
	Volume24h  float64 `json:"volume_24h"`
	Volatility float64 `json:"volatility"` // annualized; 0 means unknown
	Beta       float64 `json:"beta"`
}

// Allocation is the target versus current position of one symbol.
type Allocation struct {
	Symbol          string  `json:"symbol"`
	TargetWeight    float64 `json:"target_weight"`
	CurrentWeight   float64 `json:"current_weight"`
	TargetAmount    float64 `json:"target_amount"`
	CurrentAmount   float64 `json:"current_amount"`
	RebalanceAmount float64 `json:"rebalance_amount"` // TargetAmount - CurrentAmount
}

// TradeRecord is an immutable closed-trade entry in the ledger.
type TradeRecord struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	Fees       float64   `json:"fees"`
	PnL        float64   `json:"pnl"`
}

// NewTradeRecord derives realized P&L from the entry and exit legs.
// A long (BUY entry) gains when the exit is higher; a short (SELL entry) when it is lower.
func NewTradeRecord(symbol string, side Side, entryTime, exitTime time.Time, entryPrice, exitPrice, quantity, fees float64) TradeRecord {
	gross := (exitPrice - entryPrice) * quantity
	if side == SideSell {
		gross = -gross
	}
	return TradeRecord{
		Symbol:     symbol,
		Side:       side,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   quantity,
		Fees:       fees,
		PnL:        gross - fees,
	}
}

// PerformanceSnapshot is one point of the portfolio value series.
type PerformanceSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DrawdownPeriod is derived from the value series on demand.
type DrawdownPeriod struct {
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Duration  time.Duration `json:"duration"`
	Drawdown  float64       `json:"drawdown"`
	Recovery  float64       `json:"recovery"`
	Recovered bool          `json:"recovered"`
}

// MarketSnapshot is the point-in-time input of one rebalance cycle.
type MarketSnapshot struct {
	Assets          []Asset              `json:"assets"`
	ExpectedReturns map[string]float64   `json:"expected_returns"`
	ReturnHistory   map[string][]float64 `json:"return_history"`
	TakenAt         time.Time            `json:"taken_at"`
}
