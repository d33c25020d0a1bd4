package optimization

import (
	"testing"

	"github.com/aristath/conductor/pkg/formulas"
	"github.com/stretchr/testify/assert"
)

func TestBuildCorrelationMatrix_EqualLength(t *testing.T) {
	history := map[string][]float64{
		"A": {1, 2, 3, 4, 5},
		"B": {2, 4, 6, 8, 10},
		"C": {5, 4, 3, 2, 1},
		"D": {3, 3, 3, 3, 3},
	}
	m := BuildCorrelationMatrix([]string{"A", "B", "C", "D"}, history)

	assert.Equal(t, 4, m.Len())
	assert.InDelta(t, 1.0, m.Get("A", "B"), 1e-12)
	assert.InDelta(t, -1.0, m.Get("A", "C"), 1e-12)
	assert.Equal(t, 0.0, m.Get("A", "D"), "zero variance correlates 0, not NaN")
	assert.Equal(t, m.Get("A", "C"), m.Get("C", "A"))

	for _, s := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, 1.0, m.Get(s, s))
	}
}

func TestBuildCorrelationMatrix_UnequalLengthUsesSuffix(t *testing.T) {
	history := map[string][]float64{
		"A": {9, 9, 1, 2, 3},
		"B": {1, 2, 3},
		"X": {1},
	}
	m := BuildCorrelationMatrix([]string{"A", "B", "X"}, history)

	assert.Equal(t, 2, m.Len(), "symbols with fewer than two points are left out")
	assert.InDelta(t, 1.0, m.Get("A", "B"), 1e-12)
	assert.Equal(t, 0.0, m.Get("A", "X"))
	assert.Equal(t, 1.0, m.Get("X", "X"))
}

func TestBuildCorrelationMatrix_MatchesPairwise(t *testing.T) {
	a := []float64{0.01, -0.02, 0.015, 0.003, -0.007, 0.02}
	b := []float64{0.005, -0.01, 0.02, -0.004, 0.001, 0.012}
	m := BuildCorrelationMatrix([]string{"A", "B"}, map[string][]float64{"A": a, "B": b})

	assert.InDelta(t, formulas.Correlation(a, b), m.Get("A", "B"), 1e-12)
}
