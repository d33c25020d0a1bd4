package formulas

import "math"

// zeroTolerance treats denominators this close to 0 as 0, so float noise in a
// flat series cannot produce an enormous ratio.
const zeroTolerance = 1e-12

// MaxAnnualizedReturn caps compounding over very short spans, where a modest
// gain raised to a huge power overflows. Results above it are reported as the cap.
const MaxAnnualizedReturn = 1e9

// TotalReturn is (final - initial) / initial; a non-positive initial value yields 0.
func TotalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (final - initial) / initial
}

// AnnualizedReturn compounds a total return over a span measured in years.
//
// Formula: (1 + totalReturn)^(1/years) - 1
//
// Non-positive spans and total losses (≤ -100%) yield 0 and -1 respectively.
// Gains are capped at MaxAnnualizedReturn rather than overflowing to +Inf.
func AnnualizedReturn(totalReturn, years float64) float64 {
	if years <= 0 || math.IsNaN(totalReturn) {
		return 0
	}
	if totalReturn <= -1 {
		return -1
	}
	r := math.Pow(1+totalReturn, 1/years) - 1
	if math.IsNaN(r) {
		return 0
	}
	return math.Min(r, MaxAnnualizedReturn)
}

// SharpeRatio is (annualizedReturn - riskFreeRate) / volatility, 0 when volatility is 0.
func SharpeRatio(annualizedReturn, riskFreeRate, volatility float64) float64 {
	if math.Abs(volatility) < zeroTolerance {
		return 0
	}
	return finite((annualizedReturn - riskFreeRate) / volatility)
}

// SortinoRatio is (annualizedReturn - riskFreeRate) / downsideDeviation,
// 0 when there is no downside deviation.
func SortinoRatio(annualizedReturn, riskFreeRate, downsideDeviation float64) float64 {
	if math.Abs(downsideDeviation) < zeroTolerance {
		return 0
	}
	return finite((annualizedReturn - riskFreeRate) / downsideDeviation)
}

// CalmarRatio is annualizedReturn / |maxDrawdown|, 0 when there was no drawdown.
func CalmarRatio(annualizedReturn, maxDrawdown float64) float64 {
	if math.Abs(maxDrawdown) < zeroTolerance {
		return 0
	}
	return finite(annualizedReturn / math.Abs(maxDrawdown))
}
