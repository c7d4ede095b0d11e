package strategy

import "errors"

// ErrBookUnavailable: the book snapshot is missing a required field — the
// strategy exits without trading against partial data and returns this error.
var ErrBookUnavailable = errors.New("strategy: book unavailable")

// ErrInsufficientLiquidity: the available ask size is not positive, or the
// computed target size is below the configured minimum — the strategy exits
// without trading and returns this error.
var ErrInsufficientLiquidity = errors.New("strategy: insufficient liquidity")

// ErrPartialFill names a Dutch Arb leg that filled less than requested. No
// code path returns it: a short leg is recognized by position delta and
// handled in place (unwind or merge).
var ErrPartialFill = errors.New("strategy: partial fill")

// SafeDiv divides a by b, defaulting to 0 on division error — missing
// liquidity means "do not trade", not a crash.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
