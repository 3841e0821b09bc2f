// Package decimal implements the fixed-point numeric type used throughout
// the connector for prices and sizes.
//
// Every Decimal carries the same fixed scale (18 fractional digits) so
// arithmetic never introduces silent precision loss. Construction rounds
// its input to that scale; beyond that, rendering to the wire format
// (WireString) is the one place rounding happens, and it must
// match the exact normalization the exchange's signature verifier expects
// — any deviation produces a signature that recovers to the wrong address.
package decimal

import (
	"strings"

	shopspring "github.com/shopspring/decimal"
)

// Scale is the number of fractional digits a Decimal is stored at.
const Scale = 18

// WireScale is the number of fractional digits used when rendering a
// Decimal for inclusion in a signed action (§4.1 of the design).
const WireScale = 8

// Decimal is a fixed-scale decimal value backed by shopspring/decimal's
// arbitrary-precision coefficient. Construction always normalizes to
// Scale fractional digits so two Decimals built from equivalent inputs
// compare equal.
type Decimal struct {
	v shopspring.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{v: shopspring.Zero}

// NewFromString parses a decimal literal of the form [-]?[0-9]+(\.[0-9]+)?.
func NewFromString(s string) (Decimal, error) {
	d, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{v: d.Round(Scale)}, nil
}

// MustNewFromString is NewFromString but panics on error; used for
// constants derived from literals known to be valid at compile time.
func MustNewFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewFromFloat converts an IEEE 754 double to the nearest representable
// Decimal at Scale fractional digits.
func NewFromFloat(f float64) Decimal {
	return Decimal{v: shopspring.NewFromFloat(f).Round(Scale)}
}

// NewFromInt wraps a plain integer amount at Scale fractional digits.
func NewFromInt(i int64) Decimal {
	return Decimal{v: shopspring.NewFromInt(i).Round(Scale)}
}

// ToFloat returns the nearest float64 approximation. Lossy for values
// that don't fit in a double's 53-bit mantissa; never used for anything
// that crosses the wire.
func (d Decimal) ToFloat() float64 {
	f, _ := d.v.Float64()
	return f
}

// Add returns d + other, rounded back to Scale.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{v: d.v.Add(other.v).Round(Scale)}
}

// Sub returns d - other, rounded back to Scale.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{v: d.v.Sub(other.v).Round(Scale)}
}

// MulInt returns d * n, rounded back to Scale.
func (d Decimal) MulInt(n int64) Decimal {
	return Decimal{v: d.v.Mul(shopspring.NewFromInt(n)).Round(Scale)}
}

// Cmp returns -1, 0, or 1 comparing d to other.
func (d Decimal) Cmp(other Decimal) int {
	return d.v.Cmp(other.v)
}

// Equal reports whether d and other represent the same value.
func (d Decimal) Equal(other Decimal) bool {
	return d.v.Equal(other.v)
}

// LessThanOrEqual reports whether d <= other.
func (d Decimal) LessThanOrEqual(other Decimal) bool {
	return d.Cmp(other) <= 0
}

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool {
	return d.v.IsZero()
}

// WireString renders d the way the canonical action encoder must: round
// half-away-from-zero to 8 fractional digits, then strip trailing zeros
// and a trailing decimal point if one remains.
//
// Examples (§4.1): 87000.0 -> "87000", 87736.5 -> "87736.5",
// 0.0010 -> "0.001", 1.0 -> "1".
func (d Decimal) WireString() string {
	s := d.v.Round(WireScale).StringFixed(WireScale)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// String implements fmt.Stringer with the full Scale-precision value,
// mainly useful for debugging and log output.
func (d Decimal) String() string {
	return d.v.String()
}

// ParseWireString reparses a rendered wire string back into a Decimal,
// for tests and for reconstructing values out of exchange responses.
func ParseWireString(s string) (Decimal, error) {
	return NewFromString(s)
}
