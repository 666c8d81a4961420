// Package amount provides fixed-point helpers over sdkmath.Int for share
// balances, token balances and 18-decimal USD values.
package amount

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Decimals is the precision of shares and USD values.
const Decimals = 18

// BpsDenominator is the denominator for every basis-point parameter.
const BpsDenominator = 10_000

// Unit is 1.0 at 18 decimals.
var Unit = sdkmath.NewIntWithDecimal(1, Decimals)

// Zero returns a zero Int.
func Zero() sdkmath.Int { return sdkmath.ZeroInt() }

// Pow10 returns 10^n as an Int.
func Pow10(n uint8) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, int(n))
}

// MulDiv returns floor(a * b / c). c must be positive.
func MulDiv(a, b, c sdkmath.Int) sdkmath.Int {
	return a.Mul(b).Quo(c)
}

// Bps returns floor(a * bps / 10000).
func Bps(a sdkmath.Int, bps uint32) sdkmath.Int {
	return a.MulRaw(int64(bps)).QuoRaw(BpsDenominator)
}

// Max returns the larger of a and b.
func Max(a, b sdkmath.Int) sdkmath.Int {
	if a.GT(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b sdkmath.Int) sdkmath.Int {
	if a.LT(b) {
		return a
	}
	return b
}

// Parse reads a base-10 integer string.
func Parse(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid integer amount %q", s)
	}
	return v, nil
}

// OrZero returns v, or zero when v is nil.
func OrZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}

// Format renders a base-unit amount as a decimal string with the given precision.
func Format(v sdkmath.Int, decimals uint8) string {
	if v.IsNil() {
		return "0"
	}
	return decimal.NewFromBigInt(v.BigInt(), -int32(decimals)).String()
}

// ParseUnits reads a decimal string such as "12.5" into base units with the
// given precision. Digits beyond the precision are rejected.
func ParseUnits(s string, decimals uint8) (sdkmath.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("invalid decimal amount %q: %w", s, err)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return sdkmath.Int{}, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return sdkmath.NewIntFromBigInt(shifted.BigInt()), nil
}

// FormatUSD renders an 18-decimal USD value with two decimal places.
func FormatUSD(v sdkmath.Int) string {
	if v.IsNil() {
		return "0.00"
	}
	return decimal.NewFromBigInt(v.BigInt(), -Decimals).StringFixed(2)
}

// Fraction is a rational portion num/den used to scale withdrawals.
type Fraction struct {
	Num sdkmath.Int
	Den sdkmath.Int
}

// NewFraction builds a fraction, rejecting non-positive denominators and
// numerators larger than the denominator.
func NewFraction(num, den sdkmath.Int) (Fraction, error) {
	if !den.IsPositive() {
		return Fraction{}, fmt.Errorf("fraction denominator must be positive")
	}
	if num.IsNegative() || num.GT(den) {
		return Fraction{}, fmt.Errorf("fraction %s/%s out of range", num, den)
	}
	return Fraction{Num: num, Den: den}, nil
}

// Of returns floor(v * num / den).
func (f Fraction) Of(v sdkmath.Int) sdkmath.Int {
	return MulDiv(v, f.Num, f.Den)
}

// IsWhole reports whether the fraction equals one.
func (f Fraction) IsWhole() bool {
	return f.Num.Equal(f.Den)
}

// String implements fmt.Stringer.
func (f Fraction) String() string {
	return f.Num.String() + "/" + f.Den.String()
}

// WithinBps reports whether got is within tol basis points of want.
func WithinBps(got, want sdkmath.Int, tol uint32) bool {
	diff := got.Sub(want).Abs()
	if want.IsZero() {
		return diff.IsZero()
	}
	return diff.MulRaw(BpsDenominator).LTE(want.Abs().MulRaw(int64(tol)))
}
