package token

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/recur/types"
)

var (
	custody = types.Addr("0xCustody")
	holder  = types.Addr("0xHolder")
	other   = types.Addr("0xOther")
	usdc    = types.Addr("0xUSDC")
	weth    = types.Addr("0xWETH")
)

func TestBankTransferFrom(t *testing.T) {
	ctx := context.Background()
	b := NewBank(custody)

	b.Mint(usdc, holder, types.Tokens(100))
	b.Approve(usdc, holder, custody, types.Tokens(30))

	if err := b.TransferFrom(ctx, usdc, holder, custody, types.Tokens(10)); err != nil {
		t.Fatalf("TransferFrom() error = %v", err)
	}
	if got := b.BalanceOf(usdc, holder); !got.Equal(types.Tokens(90)) {
		t.Errorf("holder balance = %s, want 90", got)
	}
	if got := b.BalanceOf(usdc, custody); !got.Equal(types.Tokens(10)) {
		t.Errorf("custody balance = %s, want 10", got)
	}

	// Each pull consumes allowance.
	remaining, err := b.Allowance(ctx, usdc, holder, custody)
	if err != nil {
		t.Fatalf("Allowance() error = %v", err)
	}
	if !remaining.Equal(types.Tokens(20)) {
		t.Errorf("allowance = %s, want 20 after a 10 pull", remaining)
	}

	if err := b.TransferFrom(ctx, usdc, holder, custody, types.Tokens(25)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("over-allowance TransferFrom() error = %v, want ErrInsufficientAllowance", err)
	}
	if got := b.BalanceOf(usdc, holder); !got.Equal(types.Tokens(90)) {
		t.Errorf("holder balance = %s after failed pull, want unchanged 90", got)
	}
}

func TestBankTransferFromInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	b := NewBank(custody)

	// Approved beyond the actual balance.
	b.Mint(usdc, holder, types.Tokens(5))
	b.Approve(usdc, holder, custody, types.Tokens(50))

	err := b.TransferFrom(ctx, usdc, holder, custody, types.Tokens(10))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("TransferFrom() error = %v, want ErrInsufficientBalance", err)
	}
	// Allowance stays untouched when the debit fails.
	remaining, err := b.Allowance(ctx, usdc, holder, custody)
	if err != nil {
		t.Fatalf("Allowance() error = %v", err)
	}
	if !remaining.Equal(types.Tokens(50)) {
		t.Errorf("allowance = %s, want untouched 50", remaining)
	}
}

func TestBankApproveIsAbsolute(t *testing.T) {
	ctx := context.Background()
	b := NewBank(custody)

	b.Approve(usdc, holder, custody, types.Tokens(10))
	b.Approve(usdc, holder, custody, types.Tokens(3))

	got, err := b.Allowance(ctx, usdc, holder, custody)
	if err != nil {
		t.Fatalf("Allowance() error = %v", err)
	}
	if !got.Equal(types.Tokens(3)) {
		t.Errorf("allowance = %s, want replaced value 3", got)
	}
}

func TestBankTransferSpendsFromSelf(t *testing.T) {
	ctx := context.Background()
	b := NewBank(custody)

	b.Mint(usdc, custody, types.Tokens(10))
	if err := b.Transfer(ctx, usdc, other, types.Tokens(4)); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if got := b.BalanceOf(usdc, custody); !got.Equal(types.Tokens(6)) {
		t.Errorf("custody balance = %s, want 6", got)
	}
	if got := b.BalanceOf(usdc, other); !got.Equal(types.Tokens(4)) {
		t.Errorf("recipient balance = %s, want 4", got)
	}

	if err := b.Transfer(ctx, usdc, other, types.Tokens(100)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraw Transfer() error = %v, want ErrInsufficientBalance", err)
	}
}

func TestBankTokensAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := NewBank(custody)

	b.Mint(usdc, holder, types.Tokens(10))
	b.Approve(usdc, holder, custody, types.Tokens(10))

	// The approval covers usdc only.
	b.Mint(weth, holder, types.Tokens(10))
	if err := b.TransferFrom(ctx, weth, holder, custody, types.Tokens(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("cross-token TransferFrom() error = %v, want ErrInsufficientAllowance", err)
	}
	if got := b.BalanceOf(weth, holder); !got.Equal(types.Tokens(10)) {
		t.Errorf("weth balance = %s, want untouched 10", got)
	}
}
