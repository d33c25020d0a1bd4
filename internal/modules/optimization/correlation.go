package optimization

import (
	"math"

	"github.com/aristath/conductor/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix maps symbol -> symbol -> Pearson correlation in [-1, 1].
// It is rebuilt from scratch for every optimization and never mutated afterwards.
type CorrelationMatrix map[string]map[string]float64

// Get returns the correlation of a and b. A symbol with itself is 1; unknown pairs are 0.
func (m CorrelationMatrix) Get(a, b string) float64 {
	if a == b {
		return 1
	}
	if row, ok := m[a]; ok {
		return row[b]
	}
	return 0
}

// Len returns the number of symbols covered.
func (m CorrelationMatrix) Len() int {
	return len(m)
}

// BuildCorrelationMatrix computes pairwise correlations of the given symbols'
// return histories. Symbols with fewer than two observations are left out.
// Equal-length histories are computed in one pass as a gonum matrix; otherwise
// each pair is correlated over its overlapping suffix. Zero-variance series
// correlate 0 with everything else.
func BuildCorrelationMatrix(symbols []string, history map[string][]float64) CorrelationMatrix {
	present := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if len(history[s]) >= 2 {
			present = append(present, s)
		}
	}

	m := make(CorrelationMatrix, len(present))
	for _, s := range present {
		m[s] = map[string]float64{s: 1}
	}
	if len(present) < 2 {
		return m
	}

	if rows, ok := equalLength(present, history); ok {
		data := mat.NewDense(rows, len(present), nil)
		for j, s := range present {
			data.SetCol(j, history[s])
		}
		corr := mat.NewSymDense(len(present), nil)
		stat.CorrelationMatrix(corr, data, nil)
		for i, a := range present {
			for j, b := range present {
				if i == j {
					continue
				}
				m[a][b] = finiteOrZero(corr.At(i, j))
			}
		}
		return m
	}

	for i, a := range present {
		for _, b := range present[i+1:] {
			c := formulas.Correlation(history[a], history[b])
			m[a][b] = c
			m[b][a] = c
		}
	}
	return m
}

func equalLength(symbols []string, history map[string][]float64) (int, bool) {
	n := len(history[symbols[0]])
	for _, s := range symbols[1:] {
		if len(history[s]) != n {
			return 0, false
		}
	}
	return n, true
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
