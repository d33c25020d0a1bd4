package execution

import (
	"fmt"
	"math"

	"github.com/aristath/conductor/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxSlices bounds how many child units a single order may be split into.
const MaxSlices = 10000

// twapPrecision is the number of decimal places each TWAP interval is rounded to.
const twapPrecision = 12

// SplitIceberg splits total into fixed-size slices. The last slice carries the
// remainder, so the slices always add up to total.
func SplitIceberg(total, sliceSize float64) ([]float64, error) {
	if err := validateAmount(total); err != nil {
		return nil, err
	}
	if err := validateAmount(sliceSize); err != nil {
		return nil, fmt.Errorf("slice size: %w", err)
	}

	t := decimal.NewFromFloat(total)
	s := decimal.NewFromFloat(sliceSize)
	if s.GreaterThanOrEqual(t) {
		return []float64{total}, nil
	}

	full := t.Div(s).Floor()
	remainder := t.Sub(s.Mul(full))

	count := full.IntPart()
	if remainder.IsPositive() {
		count++
	}
	if count > MaxSlices {
		return nil, fmt.Errorf("%w: %d slices exceeds limit of %d", domain.ErrInvalidAmount, count, MaxSlices)
	}

	amounts := make([]float64, 0, count)
	for i := int64(0); i < full.IntPart(); i++ {
		amounts = append(amounts, s.InexactFloat64())
	}
	if remainder.IsPositive() {
		amounts = append(amounts, remainder.InexactFloat64())
	}
	return amounts, nil
}

// SplitTWAP splits total into n equal intervals. Rounding residue goes to the last interval.
func SplitTWAP(total float64, n int) ([]float64, error) {
	if err := validateAmount(total); err != nil {
		return nil, err
	}
	if n <= 0 || n > MaxSlices {
		return nil, fmt.Errorf("%w: %d intervals", domain.ErrInvalidAmount, n)
	}

	t := decimal.NewFromFloat(total)
	each := t.DivRound(decimal.NewFromInt(int64(n)), twapPrecision)
	last := t.Sub(each.Mul(decimal.NewFromInt(int64(n - 1))))

	amounts := make([]float64, n)
	for i := 0; i < n-1; i++ {
		amounts[i] = each.InexactFloat64()
	}
	amounts[n-1] = last.InexactFloat64()
	return amounts, nil
}

func validateAmount(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, v)
	}
	return nil
}
