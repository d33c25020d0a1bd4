package formulas

import (
	"math"
	"testing"
)

func TestStdDev(t *testing.T) {
	tests := []struct {
		name      string
		data      []float64
		expected  float64
		tolerance float64
	}{
		{name: "empty", data: []float64{}, expected: 0, tolerance: 0},
		{name: "single value", data: []float64{0.01}, expected: 0, tolerance: 0},
		{name: "constant", data: []float64{0.02, 0.02, 0.02}, expected: 0, tolerance: 1e-12},
		{name: "sample deviation", data: []float64{1, 2, 3, 4}, expected: 1.2910, tolerance: 1e-4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StdDev(tt.data)
			if math.Abs(result-tt.expected) > tt.tolerance {
				t.Errorf("StdDev() = %v, want %v (±%v)", result, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01}
	expected := StdDev(returns) * math.Sqrt(252)

	if got := AnnualizedVolatility(returns); math.Abs(got-expected) > 1e-12 {
		t.Errorf("AnnualizedVolatility() = %v, want %v", got, expected)
	}
	if got := AnnualizedVolatility(nil); got != 0 {
		t.Errorf("AnnualizedVolatility(nil) = %v, want 0", got)
	}
}

func TestDownsideDeviation(t *testing.T) {
	if got := DownsideDeviation([]float64{0.01, 0.02, 0.03}); got != 0 {
		t.Errorf("no negative returns: got %v, want 0", got)
	}

	returns := []float64{0.01, -0.02, 0.03, -0.04}
	expected := StdDev([]float64{-0.02, -0.04}) * math.Sqrt(252)
	if got := DownsideDeviation(returns); math.Abs(got-expected) > 1e-12 {
		t.Errorf("DownsideDeviation() = %v, want %v", got, expected)
	}
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-0.10) > 1e-12 || math.Abs(returns[1]-(-0.10)) > 1e-12 {
		t.Errorf("unexpected returns %v", returns)
	}

	if got := CalculateReturns([]float64{0, 10}); got[0] != 0 {
		t.Errorf("zero base price should yield 0 return, got %v", got[0])
	}
	if got := CalculateReturns([]float64{5}); len(got) != 0 {
		t.Errorf("single price should yield no returns, got %v", got)
	}
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name     string
		x, y     []float64
		expected float64
	}{
		{name: "perfect positive", x: []float64{1, 2, 3}, y: []float64{2, 4, 6}, expected: 1},
		{name: "perfect negative", x: []float64{1, 2, 3}, y: []float64{3, 2, 1}, expected: -1},
		{name: "constant series yields zero", x: []float64{1, 1, 1}, y: []float64{1, 2, 3}, expected: 0},
		{name: "too short", x: []float64{1}, y: []float64{2}, expected: 0},
		{name: "overlapping suffix", x: []float64{9, 1, 2, 3}, y: []float64{2, 4, 6}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Correlation(tt.x, tt.y)
			if math.IsNaN(result) || math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Correlation() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCalculateEMA(t *testing.T) {
	constant := make([]float64, 20)
	for i := range constant {
		constant[i] = 5
	}
	if got := CalculateEMA(constant, 10); math.Abs(got-5) > 1e-9 {
		t.Errorf("CalculateEMA(constant) = %v, want 5", got)
	}
	if got := CalculateEMA([]float64{1, 2, 3}, 10); math.Abs(got-2) > 1e-12 {
		t.Errorf("short series should fall back to mean, got %v", got)
	}
	if got := CalculateEMA(nil, 10); got != 0 {
		t.Errorf("empty series should yield 0, got %v", got)
	}
}
