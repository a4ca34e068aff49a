package restock

import "math"

// roundFloat rounds v to the given number of decimal places, ties to even.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.RoundToEven(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*factor) / factor
}

// safeDiv returns num/den, or 0 when den is zero or the result is not finite.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

// finite maps NaN and infinities to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
