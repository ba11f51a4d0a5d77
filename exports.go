package recur

import "github.com/xraph/recur/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount and Address constructors
var (
	Addr              = types.Addr
	AmountFromBig     = types.AmountFromBig
	AmountFromDecimal = types.AmountFromDecimal
	ParseAmount       = types.ParseAmount
	ZeroAddress       = types.ZeroAddress
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
