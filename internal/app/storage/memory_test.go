package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
)

func TestMemorySaveAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	saved, err := m.SaveRound(ctx, raffle.Round{
		Number:       1,
		State:        raffle.StateOpen,
		TicketPrice:  5,
		TicketMin:    1,
		TicketMax:    200,
		SoldTickets:  []int{7, 51},
		TicketOwners: map[int]string{7: "p1", 51: "p2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("SaveRound did not stamp timestamps")
	}

	got, err := m.GetRound(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != raffle.StateOpen || len(got.SoldTickets) != 2 {
		t.Errorf("GetRound returned %+v", got)
	}

	// The stored round is a snapshot, not a shared reference.
	got.TicketOwners[7] = "tampered"
	again, _ := m.GetRound(ctx, 1)
	if again.TicketOwners[7] != "p1" {
		t.Error("GetRound exposed internal state")
	}
}

func TestMemorySaveUpserts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.SaveRound(ctx, raffle.Round{Number: 1, State: raffle.StateOpen})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := m.SaveRound(ctx, raffle.Round{Number: 1, State: raffle.StateSettled})
	if err != nil {
		t.Fatal(err)
	}
	if updated.State != raffle.StateSettled {
		t.Errorf("upsert state = %s", updated.State)
	}
	if !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Error("upsert changed CreatedAt")
	}
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.GetRound(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRound = %v, want ErrNotFound", err)
	}
}

func TestMemoryListRounds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for n := int64(1); n <= 5; n++ {
		if _, err := m.SaveRound(ctx, raffle.Round{Number: n}); err != nil {
			t.Fatal(err)
		}
	}

	rounds, err := m.ListRounds(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 3 {
		t.Fatalf("ListRounds returned %d rounds, want 3", len(rounds))
	}
	// Newest first.
	for i, want := range []int64{5, 4, 3} {
		if rounds[i].Number != want {
			t.Errorf("rounds[%d].Number = %d, want %d", i, rounds[i].Number, want)
		}
	}
}

func TestMemoryLastRoundNumber(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	last, err := m.LastRoundNumber(ctx)
	if err != nil || last != 0 {
		t.Fatalf("empty store: (%d, %v), want (0, nil)", last, err)
	}

	_, _ = m.SaveRound(ctx, raffle.Round{Number: 3})
	_, _ = m.SaveRound(ctx, raffle.Round{Number: 7})
	last, err = m.LastRoundNumber(ctx)
	if err != nil || last != 7 {
		t.Fatalf("LastRoundNumber = (%d, %v), want (7, nil)", last, err)
	}
}

func TestMemoryRefunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.SetRefundBalances(ctx, 1, map[string]int64{"p1": 10, "p2": 5}); err != nil {
		t.Fatal(err)
	}

	balance, err := m.GetRefundBalance(ctx, 1, "p1")
	if err != nil || balance != 10 {
		t.Fatalf("GetRefundBalance = (%d, %v), want (10, nil)", balance, err)
	}
	balance, _ = m.GetRefundBalance(ctx, 1, "stranger")
	if balance != 0 {
		t.Errorf("stranger balance = %d, want 0", balance)
	}
	balance, _ = m.GetRefundBalance(ctx, 2, "p1")
	if balance != 0 {
		t.Errorf("unknown round balance = %d, want 0", balance)
	}

	if err := m.ClearRefundBalance(ctx, 1, "p1"); err != nil {
		t.Fatal(err)
	}
	balance, _ = m.GetRefundBalance(ctx, 1, "p1")
	if balance != 0 {
		t.Errorf("balance after clear = %d, want 0", balance)
	}

	remaining, err := m.ListRefundBalances(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining["p2"] != 5 {
		t.Errorf("ListRefundBalances = %v", remaining)
	}
}
