package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
)

// ErrNotFound is returned when a round or refund balance does not exist.
var ErrNotFound = errors.New("not found")

// RaffleStore persists round snapshots and cancellation refund balances.
// The active round is owned by the raffle manager's serializer; the store
// records outcomes and survives restarts for the archive and refund queries.
type RaffleStore interface {
	// SaveRound inserts or replaces the snapshot for round.Number.
	SaveRound(ctx context.Context, round raffle.Round) (raffle.Round, error)
	GetRound(ctx context.Context, number int64) (raffle.Round, error)
	ListRounds(ctx context.Context, limit int) ([]raffle.Round, error)
	// LastRoundNumber returns the highest stored round number, 0 when empty.
	LastRoundNumber(ctx context.Context) (int64, error)

	// SetRefundBalances replaces all refund balances recorded for a round.
	SetRefundBalances(ctx context.Context, roundNumber int64, balances map[string]int64) error
	GetRefundBalance(ctx context.Context, roundNumber int64, identity string) (int64, error)
	// ClearRefundBalance zeroes a claimed balance. Clearing an absent
	// balance is not an error.
	ClearRefundBalance(ctx context.Context, roundNumber int64, identity string) error
	ListRefundBalances(ctx context.Context, roundNumber int64) (map[string]int64, error)
}
