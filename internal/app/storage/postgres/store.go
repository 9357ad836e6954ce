// Package postgres implements the raffle store backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
	"github.com/R3E-Network/raffle-engine/internal/app/storage"
)

// Store implements storage.RaffleStore backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.RaffleStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveRound(ctx context.Context, round raffle.Round) (raffle.Round, error) {
	now := time.Now().UTC()
	if round.CreatedAt.IsZero() {
		round.CreatedAt = now
	}
	round.UpdatedAt = now

	soldJSON, err := json.Marshal(round.SoldTickets)
	if err != nil {
		return raffle.Round{}, fmt.Errorf("marshal sold tickets: %w", err)
	}
	ownersJSON, err := json.Marshal(round.TicketOwners)
	if err != nil {
		return raffle.Round{}, fmt.Errorf("marshal ticket owners: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raffle_rounds (
			number, state, ticket_price, ticket_min, ticket_max, profit_factor,
			sold_tickets, ticket_owners, total_escrowed, prize_amount, profit_amount,
			random_request_id, random_value, random_received,
			winner_ticket, winner, prize_redeemed, profit_redeemed,
			opened_at, closed_at, settled_at, cancelled_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (number) DO UPDATE SET
			state = EXCLUDED.state,
			sold_tickets = EXCLUDED.sold_tickets,
			ticket_owners = EXCLUDED.ticket_owners,
			total_escrowed = EXCLUDED.total_escrowed,
			prize_amount = EXCLUDED.prize_amount,
			profit_amount = EXCLUDED.profit_amount,
			random_request_id = EXCLUDED.random_request_id,
			random_value = EXCLUDED.random_value,
			random_received = EXCLUDED.random_received,
			winner_ticket = EXCLUDED.winner_ticket,
			winner = EXCLUDED.winner,
			prize_redeemed = EXCLUDED.prize_redeemed,
			profit_redeemed = EXCLUDED.profit_redeemed,
			closed_at = EXCLUDED.closed_at,
			settled_at = EXCLUDED.settled_at,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = EXCLUDED.updated_at
	`,
		round.Number, round.State, round.TicketPrice, round.TicketMin, round.TicketMax, round.ProfitFactor,
		soldJSON, ownersJSON, round.TotalEscrowed, round.PrizeAmount, round.ProfitAmount,
		// random_value is a BIGINT; raw values above MaxInt64 store as their
		// two's-complement negative and scanRound restores them losslessly.
		round.RandomRequestID, int64(round.RandomValue), round.RandomReceived,
		round.WinnerTicket, round.Winner, round.PrizeRedeemed, round.ProfitRedeemed,
		round.OpenedAt, round.ClosedAt, round.SettledAt, round.CancelledAt, round.CreatedAt, round.UpdatedAt,
	)
	if err != nil {
		return raffle.Round{}, fmt.Errorf("save round %d: %w", round.Number, err)
	}
	return round, nil
}

const roundColumns = `
	number, state, ticket_price, ticket_min, ticket_max, profit_factor,
	sold_tickets, ticket_owners, total_escrowed, prize_amount, profit_amount,
	random_request_id, random_value, random_received,
	winner_ticket, winner, prize_redeemed, profit_redeemed,
	opened_at, closed_at, settled_at, cancelled_at, created_at, updated_at`

func (s *Store) GetRound(ctx context.Context, number int64) (raffle.Round, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+roundColumns+`
		FROM raffle_rounds
		WHERE number = $1
	`, number)

	round, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return raffle.Round{}, storage.ErrNotFound
	}
	if err != nil {
		return raffle.Round{}, fmt.Errorf("get round %d: %w", number, err)
	}
	return round, nil
}

func (s *Store) ListRounds(ctx context.Context, limit int) ([]raffle.Round, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+roundColumns+`
		FROM raffle_rounds
		ORDER BY number DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []raffle.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		out = append(out, round)
	}
	return out, rows.Err()
}

func (s *Store) LastRoundNumber(ctx context.Context) (int64, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(number) FROM raffle_rounds`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last round number: %w", err)
	}
	return last.Int64, nil
}

func (s *Store) SetRefundBalances(ctx context.Context, roundNumber int64, balances map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refund tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM raffle_refunds WHERE round_number = $1
	`, roundNumber); err != nil {
		return fmt.Errorf("reset refunds for round %d: %w", roundNumber, err)
	}

	now := time.Now().UTC()
	for identity, amount := range balances {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO raffle_refunds (id, round_number, identity, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), roundNumber, identity, amount, now); err != nil {
			return fmt.Errorf("insert refund for %s: %w", identity, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetRefundBalance(ctx context.Context, roundNumber int64, identity string) (int64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM raffle_refunds
		WHERE round_number = $1 AND identity = $2
	`, roundNumber, identity).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get refund balance: %w", err)
	}
	return amount, nil
}

func (s *Store) ClearRefundBalance(ctx context.Context, roundNumber int64, identity string) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM raffle_refunds
		WHERE round_number = $1 AND identity = $2
	`, roundNumber, identity); err != nil {
		return fmt.Errorf("clear refund balance: %w", err)
	}
	return nil
}

func (s *Store) ListRefundBalances(ctx context.Context, roundNumber int64) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, amount FROM raffle_refunds
		WHERE round_number = $1
	`, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("list refund balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var identity string
		var amount int64
		if err := rows.Scan(&identity, &amount); err != nil {
			return nil, fmt.Errorf("scan refund balance: %w", err)
		}
		out[identity] = amount
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (raffle.Round, error) {
	var (
		round       raffle.Round
		soldJSON    []byte
		ownersJSON  []byte
		randomValue int64
	)
	err := row.Scan(
		&round.Number, &round.State, &round.TicketPrice, &round.TicketMin, &round.TicketMax, &round.ProfitFactor,
		&soldJSON, &ownersJSON, &round.TotalEscrowed, &round.PrizeAmount, &round.ProfitAmount,
		&round.RandomRequestID, &randomValue, &round.RandomReceived,
		&round.WinnerTicket, &round.Winner, &round.PrizeRedeemed, &round.ProfitRedeemed,
		&round.OpenedAt, &round.ClosedAt, &round.SettledAt, &round.CancelledAt, &round.CreatedAt, &round.UpdatedAt,
	)
	if err != nil {
		return raffle.Round{}, err
	}
	round.RandomValue = uint64(randomValue)

	if len(soldJSON) > 0 {
		if err := json.Unmarshal(soldJSON, &round.SoldTickets); err != nil {
			return raffle.Round{}, fmt.Errorf("unmarshal sold tickets: %w", err)
		}
	}
	if len(ownersJSON) > 0 {
		if err := json.Unmarshal(ownersJSON, &round.TicketOwners); err != nil {
			return raffle.Round{}, fmt.Errorf("unmarshal ticket owners: %w", err)
		}
	}
	return round, nil
}
