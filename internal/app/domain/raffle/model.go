// Package raffle holds the domain model for raffle rounds.
package raffle

import "time"

// State is the lifecycle state of a raffle round.
type State string

const (
	// StateClosed is the manager's idle state: no active round.
	StateClosed State = "closed"
	// StateOpen accepts ticket purchases.
	StateOpen State = "open"
	// StateSalesFinished awaits the randomness callback.
	StateSalesFinished State = "sales_finished"
	// StateSettled has a winner; prize and profits are redeemable.
	StateSettled State = "settled"
	// StateCancelled makes collected funds refundable to buyers.
	StateCancelled State = "cancelled"
)

// Round is one raffle cycle from opening sales to settlement or cancellation.
// The engine keeps the active round in memory behind its serializer; archived
// snapshots of this struct are what the store persists.
type Round struct {
	Number       int64 `json:"number"`
	State        State `json:"state"`
	TicketPrice  int64 `json:"ticket_price"`
	TicketMin    int   `json:"ticket_min"`
	TicketMax    int   `json:"ticket_max"`
	ProfitFactor int64 `json:"profit_factor"`

	SoldTickets  []int          `json:"sold_tickets"`  // insertion order = purchase order
	TicketOwners map[int]string `json:"ticket_owners"` // ticket number -> buyer identity

	TotalEscrowed int64 `json:"total_escrowed"`
	PrizeAmount   int64 `json:"prize_amount"`
	ProfitAmount  int64 `json:"profit_amount"`

	RandomRequestID string `json:"random_request_id,omitempty"`
	RandomValue     uint64 `json:"random_value"`
	RandomReceived  bool   `json:"random_received"`

	WinnerTicket int    `json:"winner_ticket"`
	Winner       string `json:"winner,omitempty"`

	PrizeRedeemed  bool `json:"prize_redeemed"`
	ProfitRedeemed bool `json:"profit_redeemed"`

	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at,omitempty"`
	SettledAt   time.Time `json:"settled_at,omitempty"`
	CancelledAt time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a deep copy so callers cannot mutate shared slices or maps.
func (r Round) Snapshot() Round {
	out := r
	if r.SoldTickets != nil {
		out.SoldTickets = append([]int(nil), r.SoldTickets...)
	}
	if r.TicketOwners != nil {
		owners := make(map[int]string, len(r.TicketOwners))
		for n, owner := range r.TicketOwners {
			owners[n] = owner
		}
		out.TicketOwners = owners
	}
	return out
}
