package marketmaker

import "github.com/shopspring/decimal"

// roundNearest rounds value to digits decimal places, nearest (matches
// Python's round() used throughout the original for book fields).
func roundNearest(value float64, digits int32) float64 {
	f, _ := decimal.NewFromFloat(value).Round(digits).Float64()
	return f
}

// roundUp rounds value up (toward +inf) to digits decimal places, used for
// take-profit and mid-price targets where rounding down would under-price
// the order relative to its intent.
func roundUp(value float64, digits int32) float64 {
	factor := decimal.New(1, digits)
	f, _ := decimal.NewFromFloat(value).Mul(factor).Ceil().Div(factor).Float64()
	return f
}

// roundDown rounds value down (toward -inf) to digits decimal places, used
// for the position size floor in the quoting loop.
func roundDown(value float64, digits int32) float64 {
	factor := decimal.New(1, digits)
	f, _ := decimal.NewFromFloat(value).Mul(factor).Floor().Div(factor).Float64()
	return f
}
