// Package token defines the narrow value-transfer contract the raffle engine
// sequences calls against, plus an in-memory implementation used by tests and
// local deployments. The engine never moves currency itself; it only reacts
// to the success or failure of these calls.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Errors
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Transferor moves value between identities. Transfer pushes from the
// engine's own holdings; TransferFrom pulls pre-authorized funds from a payer.
type Transferor interface {
	Transfer(ctx context.Context, recipient string, amount int64) error
	TransferFrom(ctx context.Context, payer, recipient string, amount int64) error
}

// Memory is a thread-safe in-process token with balances and allowances,
// mirroring the approve/transferFrom flow of an ERC-20 style token.
type Memory struct {
	mu         sync.Mutex
	holder     string // the engine's own account, debited by Transfer
	balances   map[string]int64
	allowances map[string]map[string]int64 // owner -> spender -> amount
}

// NewMemory creates an empty token. holder identifies the engine account
// that Transfer pushes from and TransferFrom spends allowances of.
func NewMemory(holder string) *Memory {
	return &Memory{
		holder:     holder,
		balances:   make(map[string]int64),
		allowances: make(map[string]map[string]int64),
	}
}

// Mint credits amount to an account out of thin air.
func (m *Memory) Mint(account string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
}

// Approve authorizes the engine to pull up to amount from owner.
func (m *Memory) Approve(owner string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spenders, ok := m.allowances[owner]
	if !ok {
		spenders = make(map[string]int64)
		m.allowances[owner] = spenders
	}
	spenders[m.holder] = amount
}

// BalanceOf returns the balance of an account.
func (m *Memory) BalanceOf(account string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

// Transfer moves amount from the engine's holdings to recipient.
func (m *Memory) Transfer(_ context.Context, recipient string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(m.holder, recipient, amount)
}

// TransferFrom pulls amount from payer into recipient, consuming allowance.
func (m *Memory) TransferFrom(_ context.Context, payer, recipient string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := m.allowances[payer][m.holder]
	if allowed < amount {
		return fmt.Errorf("%w: payer %s allowed %d, needs %d", ErrInsufficientAllowance, payer, allowed, amount)
	}
	if err := m.move(payer, recipient, amount); err != nil {
		return err
	}
	m.allowances[payer][m.holder] = allowed - amount
	return nil
}

func (m *Memory) move(from, to string, amount int64) error {
	if m.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, m.balances[from], amount)
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}
