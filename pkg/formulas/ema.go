package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateEMA returns the latest exponential moving average of a series.
// If the series is shorter than the period, the simple mean is returned instead.
func CalculateEMA(values []float64, length int) float64 {
	if len(values) == 0 {
		return 0
	}
	if length < 2 || len(values) < length {
		return Mean(values)
	}

	// Use go-talib for EMA calculation
	ema := talib.Ema(values, length)
	last := ema[len(ema)-1]
	if math.IsNaN(last) {
		return Mean(values)
	}
	return last
}
