package token

import (
	"context"

	"github.com/xraph/recur/types"
)

// Transferor moves fungible tokens between accounts on behalf of the
// billing engine. Implementations must be atomic per call: a transfer
// either fully succeeds or returns an error with no funds moved.
//
// The engine acts as the spender: it pulls owed amounts from
// subscribers with TransferFrom (against a pre-granted allowance) into
// its own custody, and pays out of custody with Transfer.
type Transferor interface {
	// Allowance returns how much of owner's token balance the spender
	// is currently authorized to pull.
	Allowance(ctx context.Context, token, owner, spender types.Address) (types.Amount, error)

	// TransferFrom moves amount of token from from to to, consuming
	// the from→caller allowance.
	TransferFrom(ctx context.Context, token, from, to types.Address, amount types.Amount) error

	// Transfer moves amount of token from the engine's custody to to.
	Transfer(ctx context.Context, token, to types.Address, amount types.Amount) error
}
