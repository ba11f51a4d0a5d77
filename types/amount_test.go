package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name  string
		a     Amount
		units string
	}{
		{"NewAmount", NewAmount(4900), "4900"},
		{"Tokens", Tokens(49), "49000000000000000000"},
		{"Zero value", Amount{}, "0"},
		{"FromBig", AmountFromBig(big.NewInt(123)), "123"},
		{"FromBig nil", AmountFromBig(nil), "0"},
		{"FromDecimal", AmountFromDecimal(decimal.RequireFromString("1.5")), "1500000000000000000"},
		{"MustAmount", MustAmount("340282366920938463463374607431768211456"), "340282366920938463463374607431768211456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.String(); got != tt.units {
				t.Errorf("String: got %s, want %s", got, tt.units)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return NewAmount(100).Add(NewAmount(200)) }, NewAmount(300)},
		{"Sub", func() Amount { return NewAmount(500).Sub(NewAmount(200)) }, NewAmount(300)},
		{"MulDiv exact", func() Amount { return NewAmount(900).MulDiv(big.NewInt(2), big.NewInt(3)) }, NewAmount(600)},
		{"MulDiv floors", func() Amount { return NewAmount(10).MulDiv(big.NewInt(1), big.NewInt(3)) }, NewAmount(3)},
		{"MulDivCeil exact", func() Amount { return NewAmount(900).MulDivCeil(big.NewInt(2), big.NewInt(3)) }, NewAmount(600)},
		{"MulDivCeil rounds up", func() Amount { return NewAmount(10).MulDivCeil(big.NewInt(1), big.NewInt(3)) }, NewAmount(4)},
		{"MulDivCeil one unit", func() Amount { return NewAmount(1).MulDivCeil(big.NewInt(1), Scale()) }, NewAmount(1)},
		{"Zero value participates", func() Amount { return Amount{}.Add(NewAmount(7)) }, NewAmount(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for zero divisor")
		}
	}()

	_ = NewAmount(100).MulDivCeil(big.NewInt(1), big.NewInt(0))
}

func TestAmountJSON(t *testing.T) {
	a := Tokens(49)
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"49000000000000000000"` {
		t.Errorf("Marshal: got %s", data)
	}

	var back Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(a) {
		t.Errorf("Round trip: got %v, want %v", back, a)
	}
}

func TestAmountScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want Amount
	}{
		{"string", "12345", NewAmount(12345)},
		{"bytes", []byte("678"), NewAmount(678)},
		{"int64", int64(42), NewAmount(42)},
		{"nil", nil, Amount{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			if err := a.Scan(tt.src); err != nil {
				t.Fatal(err)
			}
			if !a.Equal(tt.want) {
				t.Errorf("Got %v, want %v", a, tt.want)
			}
		})
	}
}

func TestAddressIsZero(t *testing.T) {
	tests := []struct {
		name string
		addr Address
		zero bool
	}{
		{"empty", ZeroAddress, true},
		{"zero hex", Addr("0x0000000000000000000000000000000000000000"), true},
		{"bare prefix", Addr("0x"), true},
		{"real address", Addr("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"), false},
		{"opaque id", Addr("acct-12"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.addr.IsZero(); got != tt.zero {
				t.Errorf("IsZero: got %v, want %v", got, tt.zero)
			}
		})
	}
}

func TestAddressEqual(t *testing.T) {
	a := Addr("0xAB5801a7d398351B8be11c439E05c5b3259AEc9b")
	b := Addr("0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if !a.Equal(b) {
		t.Error("Expected case-insensitive equality")
	}
}
