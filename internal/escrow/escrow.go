// Package escrow tracks the value pooled during a round and the prize/profit
// split derived from it.
//
// Like the ticket ledger, an Account covers a single round and relies on the
// raffle manager's serializer for mutual exclusion.
package escrow

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrNegativeAmount     = errors.New("escrow amount must not be negative")
	ErrInvalidFactor      = errors.New("profit factor must be between 0 and 100")
	ErrAlreadyRedeemed    = errors.New("already redeemed")
	ErrInsufficientEscrow = errors.New("insufficient escrow")
)

// Party identifies who a withdrawal is for. Each party withdraws at most once
// per round.
type Party string

const (
	PartyWinner      Party = "winner"
	PartyBeneficiary Party = "beneficiary"
)

// Account accumulates the funds collected for one round.
type Account struct {
	total     int64
	withdrawn int64
	redeemed  map[Party]bool
}

// New creates an empty escrow account.
func New() *Account {
	return &Account{redeemed: make(map[Party]bool)}
}

// Credit adds amount to the pooled total.
func (a *Account) Credit(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, amount)
	}
	a.total += amount
	return nil
}

// Total returns the pooled value collected so far.
func (a *Account) Total() int64 {
	return a.total
}

// Remaining returns the un-withdrawn portion of the pool.
func (a *Account) Remaining() int64 {
	return a.total - a.withdrawn
}

// ComputeSplit divides total into (prize, profit). The profit side is floored
// so the rounding remainder always lands on the prize and
// prize + profit == total holds exactly.
func ComputeSplit(total, profitFactor int64) (prize, profit int64, err error) {
	if total < 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrNegativeAmount, total)
	}
	if profitFactor < 0 || profitFactor > 100 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidFactor, profitFactor)
	}
	profit = total * profitFactor / 100
	prize = total - profit
	return prize, profit, nil
}

// Withdraw marks amount as taken by party. It fails with ErrAlreadyRedeemed
// on a second withdrawal for the same party and with ErrInsufficientEscrow
// when amount exceeds what remains, recording nothing on error.
func (a *Account) Withdraw(amount int64, party Party) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, amount)
	}
	if a.redeemed[party] {
		return fmt.Errorf("%w: %s", ErrAlreadyRedeemed, party)
	}
	if amount > a.Remaining() {
		return fmt.Errorf("%w: requested %d, remaining %d", ErrInsufficientEscrow, amount, a.Remaining())
	}
	a.redeemed[party] = true
	a.withdrawn += amount
	return nil
}

// Restore reverses a Withdraw after the outbound transfer failed, so the
// party may retry. Only valid for a party that has withdrawn.
func (a *Account) Restore(amount int64, party Party) {
	if !a.redeemed[party] {
		return
	}
	delete(a.redeemed, party)
	a.withdrawn -= amount
}

// Redeemed reports whether party has already withdrawn.
func (a *Account) Redeemed(party Party) bool {
	return a.redeemed[party]
}
