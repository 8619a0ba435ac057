// ============================================================================
// FIXED-POINT PRICE SCALAR
// ============================================================================
//
// Price is the pipeline's only monetary type: a 64-bit unsigned fixed-point
// value carrying USD with 4 fractional decimal digits (raw = dollars × 10000).
//
// Design constraints:
//   - Arithmetic is modular. No overflow or underflow checks anywhere:
//     a wrapped subtraction produces a wildly wrong price, which is the
//     intended fail-fast signal for logic errors upstream.
//   - Zero is a sentinel meaning unknown/uninitialized. Derived quantities
//     (mid, spread) treat a zero side as absent.
//   - The raw representation is the wire representation; Price fields embed
//     directly into the 192-byte L2 message with no conversion step.

package types

// Price is USD scaled by 10^4. The zero value means "unknown".
type Price uint64

// Raw-value constants shared across the pipeline.
const (
	PriceScale = 10000 // raw units per dollar

	ZeroPrice Price = 0
	OneCent   Price = 100
	OneDollar Price = PriceScale
	MaxPrice  Price = ^Price(0)
)

// ────────────────────────────── Constructors ───────────────────────────────

// PriceFromRaw wraps an already-scaled raw value.
//
//go:inline
func PriceFromRaw(raw uint64) Price { return Price(raw) }

// PriceFromDollars converts floating dollars to fixed point by truncation.
//
//go:inline
func PriceFromDollars(dollars float64) Price {
	return Price(uint64(dollars * PriceScale))
}

// PriceFromCents converts a raw cent count (10^-4 dollars) — kept for
// symmetry with the raw constructor; a "cent" here is one raw tick.
//
//go:inline
func PriceFromCents(cents uint64) Price { return Price(cents) }

// ─────────────────────────────── Arithmetic ────────────────────────────────
//
// All operations wrap on overflow/underflow. No branches, no checks.

//go:inline
func (p Price) Add(rhs Price) Price { return p + rhs }

//go:inline
func (p Price) Sub(rhs Price) Price { return p - rhs }

//go:inline
func (p Price) Mul(multiplier uint64) Price { return p * Price(multiplier) }

//go:inline
func (p Price) Div(divisor uint64) Price { return p / Price(divisor) }

// AbsDiff returns |p - other| without wrapping.
//
//go:inline
func (p Price) AbsDiff(other Price) Price {
	if p >= other {
		return p - other
	}
	return other - p
}

// ─────────────────────────────── Conversions ───────────────────────────────

// Raw returns the scaled integer representation.
//
//go:inline
func (p Price) Raw() uint64 { return uint64(p) }

// Dollars converts back to floating dollars for display paths.
//
//go:inline
func (p Price) Dollars() float64 { return float64(p) / PriceScale }

// IsZero reports the unknown/uninitialized sentinel.
//
//go:inline
func (p Price) IsZero() bool { return p == 0 }
