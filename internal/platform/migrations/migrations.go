// Package migrations applies the database schema for the raffle engine.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// statements are executed in order. Each statement is idempotent so Apply
// can run on every startup.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS raffle_rounds (
		number BIGINT PRIMARY KEY,
		state TEXT NOT NULL,
		ticket_price BIGINT NOT NULL,
		ticket_min INTEGER NOT NULL,
		ticket_max INTEGER NOT NULL,
		profit_factor BIGINT NOT NULL,
		sold_tickets JSONB NOT NULL DEFAULT '[]',
		ticket_owners JSONB NOT NULL DEFAULT '{}',
		total_escrowed BIGINT NOT NULL DEFAULT 0,
		prize_amount BIGINT NOT NULL DEFAULT 0,
		profit_amount BIGINT NOT NULL DEFAULT 0,
		random_request_id TEXT NOT NULL DEFAULT '',
		random_value BIGINT NOT NULL DEFAULT 0,
		random_received BOOLEAN NOT NULL DEFAULT FALSE,
		winner_ticket INTEGER NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT '',
		prize_redeemed BOOLEAN NOT NULL DEFAULT FALSE,
		profit_redeemed BOOLEAN NOT NULL DEFAULT FALSE,
		opened_at TIMESTAMPTZ,
		closed_at TIMESTAMPTZ,
		settled_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raffle_rounds_state ON raffle_rounds (state)`,
	`CREATE TABLE IF NOT EXISTS raffle_refunds (
		id UUID PRIMARY KEY,
		round_number BIGINT NOT NULL,
		identity TEXT NOT NULL,
		amount BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (round_number, identity)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raffle_refunds_round ON raffle_refunds (round_number)`,
}

// Apply executes all schema statements against db.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
