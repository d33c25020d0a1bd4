package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	bisectIterations = 200
	minRawWeight     = 1e-9
)

// normalize scales weights to sum to 1. A zero or negative total yields equal weights.
func normalize(w []float64) []float64 {
	out := make([]float64, len(w))
	if len(w) == 0 {
		return out
	}
	for i, v := range w {
		out[i] = math.Max(v, 0)
	}
	sum := floats.Sum(out)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range out {
			out[i] = 1 / float64(len(w))
		}
		return out
	}
	floats.Scale(1/sum, out)
	return out
}

// normalizeWithBounds finds the scale λ such that Σ clamp(λ·wᵢ, min, max) = 1.
// The clamped sum is continuous and non-decreasing in λ, so bisection converges
// whenever n·min ≤ 1 ≤ n·max. It returns false when the bounds are infeasible,
// in which case the weights are clamped and plainly renormalized instead.
func normalizeWithBounds(w []float64, c Constraints) ([]float64, bool) {
	n := len(w)
	if n == 0 {
		return []float64{}, true
	}
	if !c.Feasible(n) {
		clamped := make([]float64, n)
		for i, v := range w {
			clamped[i] = clamp(v, c.MinWeight, c.MaxWeight)
		}
		return normalize(clamped), false
	}

	raw := make([]float64, n)
	for i, v := range w {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		raw[i] = v
	}

	sumAt := func(lambda float64) float64 {
		s := 0.0
		for _, v := range raw {
			s += clamp(v*lambda, c.MinWeight, c.MaxWeight)
		}
		return s
	}
	apply := func(lambda float64) []float64 {
		out := make([]float64, n)
		for i, v := range raw {
			out[i] = clamp(v*lambda, c.MinWeight, c.MaxWeight)
		}
		return out
	}

	// Zero weights are pinned at the lower bound; give them a sliver so the
	// sum can always reach 1.
	hi := 1.0
	for i := 0; sumAt(hi) < 1 && i < 2*bisectIterations; i++ {
		hi *= 2
	}
	if sumAt(hi) < 1 {
		for i := range raw {
			raw[i] = math.Max(raw[i], minRawWeight)
		}
		for i := 0; sumAt(hi) < 1 && i < 2*bisectIterations; i++ {
			hi *= 2
		}
	}

	lo := 0.0
	for i := 0; i < bisectIterations; i++ {
		mid := (lo + hi) / 2
		if mid == lo || mid == hi {
			break
		}
		if sumAt(mid) < 1 {
			lo = mid
		} else {
			hi = mid
		}
	}

	out := apply(hi)
	spreadResidual(out, c)
	return out, true
}

// spreadResidual pushes the last rounding residue into weights that still have
// room inside their bounds, so the total is 1 to within float precision.
func spreadResidual(w []float64, c Constraints) {
	residual := 1 - total(w)
	for i := range w {
		if residual == 0 {
			return
		}
		next := clamp(w[i]+residual, c.MinWeight, c.MaxWeight)
		residual -= next - w[i]
		w[i] = next
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func total(w []float64) float64 {
	return floats.Sum(w)
}
