package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation factor for daily-sampled series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
// Fewer than two values yield 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return finite(stat.StdDev(data, nil))
}

// Variance calculates the sample variance of a slice of float64 values.
// Fewer than two values yield 0.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return finite(stat.Variance(data, nil))
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// DownsideDeviation is the annualized standard deviation of the negative
// returns only. It is 0 when there are fewer than two negative returns.
func DownsideDeviation(dailyReturns []float64) float64 {
	negatives := make([]float64, 0, len(dailyReturns))
	for _, r := range dailyReturns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	return AnnualizedVolatility(negatives)
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; a zero base price yields 0.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// AlignSuffix trims both series to their overlapping-length suffix.
func AlignSuffix(x, y []float64) ([]float64, []float64) {
	n := min(len(x), len(y))
	return x[len(x)-n:], y[len(y)-n:]
}

// Correlation calculates the Pearson correlation coefficient between two datasets.
// Series of different length are compared over their overlapping suffix.
// A zero denominator (constant series) yields 0 rather than NaN.
func Correlation(x, y []float64) float64 {
	x, y = AlignSuffix(x, y)
	if len(x) < 2 {
		return 0
	}
	return finite(stat.Correlation(x, y, nil))
}

// Covariance calculates the sample covariance between two datasets over their
// overlapping suffix.
func Covariance(x, y []float64) float64 {
	x, y = AlignSuffix(x, y)
	if len(x) < 2 {
		return 0
	}
	return finite(stat.Covariance(x, y, nil))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
