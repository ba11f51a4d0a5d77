package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/recur/types"
)

// Transfer failure sentinels.
var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Bank is an in-memory Transferor. It tracks balances and allowances
// per token and applies each transfer atomically under a single lock,
// which makes it the reference implementation for tests, examples, and
// single-process deployments — the same role the memory store plays for
// persistence.
type Bank struct {
	mu   sync.RWMutex
	self types.Address

	// balances[token][account]
	balances map[types.Address]map[types.Address]types.Amount
	// allowances[token][owner][spender]
	allowances map[types.Address]map[types.Address]map[types.Address]types.Amount
}

// NewBank creates a Bank whose Transfer method spends from self.
func NewBank(self types.Address) *Bank {
	return &Bank{
		self:       self,
		balances:   make(map[types.Address]map[types.Address]types.Amount),
		allowances: make(map[types.Address]map[types.Address]map[types.Address]types.Amount),
	}
}

// Mint credits amount of token to account.
func (b *Bank) Mint(token, account types.Address, amount types.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(token, account, amount)
}

// Approve authorizes spender to pull up to amount of owner's token.
// The allowance is absolute, not additive.
func (b *Bank) Approve(token, owner, spender types.Address, amount types.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byOwner, ok := b.allowances[token]
	if !ok {
		byOwner = make(map[types.Address]map[types.Address]types.Amount)
		b.allowances[token] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[types.Address]types.Amount)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = amount
}

// BalanceOf returns account's balance of token.
func (b *Bank) BalanceOf(token, account types.Address) types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[token][account]
}

// Allowance implements Transferor.
func (b *Bank) Allowance(_ context.Context, token, owner, spender types.Address) (types.Amount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.allowances[token][owner][spender], nil
}

// TransferFrom implements Transferor. The allowance consumed is the one
// owner granted to the bank's configured spender identity.
func (b *Bank) TransferFrom(_ context.Context, token, from, to types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	allowed := b.allowances[token][from][b.self]
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s owner %s", ErrInsufficientAllowance, token, from)
	}

	if err := b.debit(token, from, amount); err != nil {
		return err
	}
	b.allowances[token][from][b.self] = allowed.Sub(amount)
	b.credit(token, to, amount)
	return nil
}

// Transfer implements Transferor, spending from the bank's self account.
func (b *Bank) Transfer(_ context.Context, token, to types.Address, amount types.Amount) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.debit(token, b.self, amount); err != nil {
		return err
	}
	b.credit(token, to, amount)
	return nil
}

func (b *Bank) credit(token, account types.Address, amount types.Amount) {
	accounts, ok := b.balances[token]
	if !ok {
		accounts = make(map[types.Address]types.Amount)
		b.balances[token] = accounts
	}
	accounts[account] = accounts[account].Add(amount)
}

func (b *Bank) debit(token, account types.Address, amount types.Amount) error {
	balance := b.balances[token][account]
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s account %s", ErrInsufficientBalance, token, account)
	}
	b.balances[token][account] = balance.Sub(amount)
	return nil
}
