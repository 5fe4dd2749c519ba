package analytics

import "math"

// roundHalfUp rounds to the nearest integer, halves toward +Inf
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ratio divides when the denominator is positive and the result is finite
func ratio(num, den float64) (float64, bool) {
	if den <= 0 || !finite(num) {
		return 0, false
	}
	r := num / den
	if !finite(r) {
		return 0, false
	}
	return r, true
}

func nonNegative(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	return x
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func fptr(v float64) *float64 {
	return &v
}

func iptr(v int) *int {
	return &v
}
