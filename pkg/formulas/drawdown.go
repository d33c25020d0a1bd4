package formulas

// DrawdownRun is one contiguous stretch of a series spent below its running peak.
type DrawdownRun struct {
	StartIndex int     // first index below the peak
	EndIndex   int     // index where a new peak was set, or the last index if still open
	Peak       float64 // peak the run is measured against
	Trough     float64 // lowest value inside the run
	Magnitude  float64 // (Peak - Trough) / Peak
	Recovery   float64 // relative gain from Trough to the closing value, 0 while open
	Closed     bool
}

// CalculateMaxDrawdown calculates the maximum drawdown of a value series.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// The result is a fraction in [0, 1]; fewer than two values yield 0.
func CalculateMaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return maxDrawdown
}

// CalculateCurrentDrawdown returns the drawdown of the last value from the running peak.
func CalculateCurrentDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 0
	}
	return (peak - values[len(values)-1]) / peak
}

// CalculateDrawdownRuns segments a value series into runs where the value sits
// strictly below its running peak. A run closes at the first value that reaches
// or exceeds the peak; an unclosed run at the end is reported with Recovery 0.
func CalculateDrawdownRuns(values []float64) []DrawdownRun {
	runs := make([]DrawdownRun, 0)
	if len(values) < 2 {
		return runs
	}

	peak := values[0]
	var current *DrawdownRun

	for i, v := range values {
		if current == nil {
			if v >= peak {
				peak = v
				continue
			}
			current = &DrawdownRun{StartIndex: i, Peak: peak, Trough: v}
		}

		if v >= current.Peak {
			current.EndIndex = i
			current.Closed = true
			if current.Trough > 0 {
				current.Recovery = (v - current.Trough) / current.Trough
			}
			runs = append(runs, *current)
			current = nil
			peak = v
			continue
		}

		if v < current.Trough {
			current.Trough = v
		}
		if current.Peak > 0 {
			current.Magnitude = (current.Peak - current.Trough) / current.Peak
		}
	}

	if current != nil {
		current.EndIndex = len(values) - 1
		runs = append(runs, *current)
	}

	return runs
}
