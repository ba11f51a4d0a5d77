package types

import "strings"

// Address identifies an account, token contract, or price feed.
// Addresses are opaque case-insensitive strings (hex-encoded on EVM-style
// substrates); Recur only ever compares them and tests for the zero value.
type Address string

// ZeroAddress is the sentinel "no address" value.
const ZeroAddress Address = ""

// Addr normalizes a raw string into an Address (lowercased, trimmed).
func Addr(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether the address is empty or an all-zero hex address.
func (a Address) IsZero() bool {
	if a == ZeroAddress {
		return true
	}
	s := strings.TrimPrefix(strings.ToLower(string(a)), "0x")
	if s == "" {
		return true
	}
	for _, c := range s {
		if c != '0' {
			return false
		}
	}
	return true
}

// Equal compares two addresses case-insensitively.
func (a Address) Equal(b Address) bool {
	return strings.EqualFold(string(a), string(b))
}

// String returns the address string.
func (a Address) String() string { return string(a) }
