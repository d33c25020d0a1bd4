package analytics

import (
	"math"

	"github.com/aristath/conductor/pkg/formulas"
)

// CompareBenchmark relates the portfolio's period returns to a benchmark's.
// Both series are trimmed to their overlapping-length suffix; fewer than two
// overlapping points yield a zeroed comparison.
func CompareBenchmark(portfolioReturns, benchmarkReturns []float64) BenchmarkComparison {
	p, b := formulas.AlignSuffix(portfolioReturns, benchmarkReturns)
	cmp := BenchmarkComparison{Observations: len(p)}
	if len(p) < 2 {
		return cmp
	}

	if v := formulas.Variance(b); v != 0 {
		cmp.Beta = formulas.Covariance(p, b) / v
	}
	cmp.Alpha = formulas.Mean(p) - cmp.Beta*formulas.Mean(b)
	cmp.Correlation = formulas.Correlation(p, b)

	diff := make([]float64, len(p))
	for i := range p {
		diff[i] = p[i] - b[i]
	}
	cmp.TrackingError = formulas.StdDev(diff) * math.Sqrt(formulas.TradingDaysPerYear)
	if cmp.TrackingError > 1e-12 {
		cmp.InformationRatio = cmp.Alpha / cmp.TrackingError
	}
	return cmp
}

// CompareBenchmark compares the recorded value series against benchmark period returns.
func (s *Service) CompareBenchmark(benchmarkReturns []float64) BenchmarkComparison {
	returns := formulas.CalculateReturns(valuesOf(s.Snapshots()))
	return CompareBenchmark(returns, benchmarkReturns)
}
