// Package types provides common types used across Recur.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision used for all token quantities.
// Every Amount, price, and rate in Recur is scaled to 18 decimals.
const Decimals = 18

// Scale returns 10^18 as a big.Int. Callers must not mutate the result.
func Scale() *big.Int { return new(big.Int).Set(scale) }

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Amount represents a token quantity as an 18-decimal fixed-point integer.
// All arithmetic is integer-only — no floating point.
//
// Examples:
//   - Tokens(49) = 49.0 tokens (49 * 10^18 base units)
//   - NewAmount(1) = the smallest representable unit (10^-18 tokens)
//
// The zero value is a valid zero amount.
type Amount struct {
	i *big.Int // nil means zero
}

// NewAmount creates an Amount from raw base units (18-decimal scaled).
func NewAmount(units int64) Amount {
	return Amount{i: big.NewInt(units)}
}

// Tokens creates an Amount of whole tokens (scaled up by 10^18).
func Tokens(whole int64) Amount {
	return Amount{i: new(big.Int).Mul(big.NewInt(whole), scale)}
}

// AmountFromBig creates an Amount from a big.Int of base units.
// The value is copied; nil is treated as zero.
func AmountFromBig(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{i: new(big.Int).Set(v)}
}

// AmountFromDecimal creates an Amount from a decimal token quantity,
// scaling it to 18-decimal base units. Fractional parts beyond 18
// decimals are truncated.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{i: d.Shift(Decimals).BigInt()}
}

// ParseAmount parses a base-10 string of base units.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("amount: parse %q: not a base-10 integer", s)
	}
	return Amount{i: v}, nil
}

// MustAmount is like ParseAmount but panics on error. Use for hardcoded values.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Big returns a copy of the underlying base-unit integer.
func (a Amount) Big() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.i)
}

// Decimal returns the amount as a decimal token quantity (base units
// shifted down by 18 decimals).
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.Big(), -Decimals)
}

// Arithmetic operations

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{i: new(big.Int).Add(a.ref(), b.ref())}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{i: new(big.Int).Sub(a.ref(), b.ref())}
}

// MulDiv returns floor(a * mul / div). Panics if div is zero.
func (a Amount) MulDiv(mul, div *big.Int) Amount {
	if div.Sign() == 0 {
		panic("amount: division by zero")
	}
	p := new(big.Int).Mul(a.ref(), mul)
	return Amount{i: p.Quo(p, div)}
}

// MulDivCeil returns ceil(a * mul / div). Panics if div is zero.
// Used for fee computation so rounding never under-collects.
func (a Amount) MulDivCeil(mul, div *big.Int) Amount {
	if div.Sign() == 0 {
		panic("amount: division by zero")
	}
	p := new(big.Int).Mul(a.ref(), mul)
	q, r := new(big.Int).QuoRem(p, div, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return Amount{i: q}
}

// Comparison methods

// Cmp compares a and b, returning -1, 0, or +1.
func (a Amount) Cmp(b Amount) int { return a.ref().Cmp(b.ref()) }

// Equal returns true if both amounts are equal.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.ref().Sign() == 0 }

// Sign returns -1, 0, or +1 depending on the sign of the amount.
func (a Amount) Sign() int { return a.ref().Sign() }

// String returns the amount in base units as a base-10 string.
func (a Amount) String() string { return a.ref().String() }

func (a Amount) ref() *big.Int {
	if a.i == nil {
		return amountZero
	}
	return a.i
}

var amountZero = new(big.Int)

// JSON encoding: base-unit string, so 256-bit values survive engines that
// parse JSON numbers as float64.

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer, storing the amount as text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		*a = NewAmount(v)
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T", src)
	}
}
