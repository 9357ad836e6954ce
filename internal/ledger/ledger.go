// Package ledger tracks which ticket numbers of a round are sold and to whom.
//
// The ledger is not safe for concurrent use on its own; the raffle manager
// serializes every mutation behind a single lock together with the escrow and
// state updates it belongs to.
package ledger

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidTicketNumber = errors.New("ticket number outside the configured range")
	ErrTicketAlreadySold   = errors.New("ticket already sold")
)

// Ledger records ticket sales for a single round. Sold numbers keep their
// purchase order; the winner is later picked by index into that sequence.
type Ledger struct {
	min    int
	max    int
	sold   []int
	owners map[int]string
}

// New creates an empty ledger accepting ticket numbers in [min, max].
// Range validity (min <= max) is the caller's concern.
func New(min, max int) *Ledger {
	return &Ledger{
		min:    min,
		max:    max,
		owners: make(map[int]string),
	}
}

// CanSell reports whether a sale of number would succeed, without recording
// anything. The manager uses it to validate before pulling funds.
func (l *Ledger) CanSell(number int) error {
	if number < l.min || number > l.max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidTicketNumber, number, l.min, l.max)
	}
	if _, sold := l.owners[number]; sold {
		return fmt.Errorf("%w: %d", ErrTicketAlreadySold, number)
	}
	return nil
}

// Sell records the sale of number to buyer. It fails with
// ErrInvalidTicketNumber or ErrTicketAlreadySold and records nothing on error.
func (l *Ledger) Sell(number int, buyer string) error {
	if err := l.CanSell(number); err != nil {
		return err
	}
	l.owners[number] = buyer
	l.sold = append(l.sold, number)
	return nil
}

// IsSold reports whether number has been sold.
func (l *Ledger) IsSold(number int) bool {
	_, sold := l.owners[number]
	return sold
}

// OwnerOf returns the buyer of number, if sold.
func (l *Ledger) OwnerOf(number int) (string, bool) {
	owner, ok := l.owners[number]
	return owner, ok
}

// SoldCount returns the number of tickets sold.
func (l *Ledger) SoldCount() int {
	return len(l.sold)
}

// SoldNumbers returns the sold ticket numbers in purchase order.
func (l *Ledger) SoldNumbers() []int {
	return append([]int(nil), l.sold...)
}

// TicketAt returns the ticket number at the given purchase-order index.
func (l *Ledger) TicketAt(index int) (int, bool) {
	if index < 0 || index >= len(l.sold) {
		return 0, false
	}
	return l.sold[index], true
}

// Owners returns a copy of the ticket number -> buyer mapping.
func (l *Ledger) Owners() map[int]string {
	out := make(map[int]string, len(l.owners))
	for n, owner := range l.owners {
		out[n] = owner
	}
	return out
}

// Bounds returns the accepted ticket number range.
func (l *Ledger) Bounds() (min, max int) {
	return l.min, l.max
}
