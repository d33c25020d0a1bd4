package portfolio

import (
	"fmt"
	"time"
)

// Thresholds decide which rebalance legs trade and how they are executed.
type Thresholds struct {
	// Dust is the smallest absolute quantity worth trading.
	Dust float64 `json:"dust"`
	// SmallNotional and LargeNotional split legs into market, TWAP and iceberg execution.
	SmallNotional float64 `json:"small_notional"`
	LargeNotional float64 `json:"large_notional"`

	TWAPDuration  time.Duration `json:"twap_duration"`
	TWAPIntervals int           `json:"twap_intervals"`

	IcebergSlices     int           `json:"iceberg_slices"`
	IcebergInterval   time.Duration `json:"iceberg_interval"`
	IcebergPriceRange float64       `json:"iceberg_price_range"`

	// MaxLegRetries is how many further cycles a rejected leg is retried before it is abandoned.
	MaxLegRetries int `json:"max_leg_retries"`
}

// DefaultThresholds returns the standard execution thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Dust:              1e-6,
		SmallNotional:     1000,
		LargeNotional:     10000,
		TWAPDuration:      5 * time.Minute,
		TWAPIntervals:     5,
		IcebergSlices:     5,
		IcebergInterval:   30 * time.Second,
		IcebergPriceRange: 0.001,
		MaxLegRetries:     3,
	}
}

// Validate checks the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if t.Dust < 0 {
		return fmt.Errorf("dust threshold must be non-negative, got %v", t.Dust)
	}
	if t.SmallNotional < 0 || t.LargeNotional < t.SmallNotional {
		return fmt.Errorf("notional thresholds must satisfy 0 <= small <= large, got small=%v large=%v", t.SmallNotional, t.LargeNotional)
	}
	if t.TWAPIntervals < 1 {
		return fmt.Errorf("twap intervals must be at least 1, got %d", t.TWAPIntervals)
	}
	if t.TWAPDuration < 0 {
		return fmt.Errorf("twap duration must be non-negative, got %s", t.TWAPDuration)
	}
	if t.IcebergSlices < 1 {
		return fmt.Errorf("iceberg slices must be at least 1, got %d", t.IcebergSlices)
	}
	if t.IcebergInterval < 0 || t.IcebergPriceRange < 0 {
		return fmt.Errorf("iceberg interval and price range must be non-negative")
	}
	if t.MaxLegRetries < 0 {
		return fmt.Errorf("max leg retries must be non-negative, got %d", t.MaxLegRetries)
	}
	return nil
}
