package token

import (
	"context"
	"errors"
	"testing"
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes from the holder account", func(t *testing.T) {
		m := NewMemory("escrow")
		m.Mint("escrow", 100)

		if err := m.Transfer(ctx, "alice", 30); err != nil {
			t.Fatal(err)
		}
		if got := m.BalanceOf("alice"); got != 30 {
			t.Errorf("alice balance = %d, want 30", got)
		}
		if got := m.BalanceOf("escrow"); got != 70 {
			t.Errorf("escrow balance = %d, want 70", got)
		}
	})

	t.Run("fails on insufficient holdings", func(t *testing.T) {
		m := NewMemory("escrow")
		m.Mint("escrow", 10)

		err := m.Transfer(ctx, "alice", 11)
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("Transfer = %v, want ErrInsufficientBalance", err)
		}
		if got := m.BalanceOf("alice"); got != 0 {
			t.Errorf("failed transfer moved funds: alice has %d", got)
		}
	})
}

func TestTransferFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("pulls approved funds", func(t *testing.T) {
		m := NewMemory("escrow")
		m.Mint("alice", 50)
		m.Approve("alice", 20)

		if err := m.TransferFrom(ctx, "alice", "escrow", 5); err != nil {
			t.Fatal(err)
		}
		if got := m.BalanceOf("escrow"); got != 5 {
			t.Errorf("escrow balance = %d, want 5", got)
		}
		if got := m.BalanceOf("alice"); got != 45 {
			t.Errorf("alice balance = %d, want 45", got)
		}

		// Allowance is consumed, not reset.
		if err := m.TransferFrom(ctx, "alice", "escrow", 15); err != nil {
			t.Fatal(err)
		}
		if err := m.TransferFrom(ctx, "alice", "escrow", 1); !errors.Is(err, ErrInsufficientAllowance) {
			t.Fatalf("pull past allowance = %v, want ErrInsufficientAllowance", err)
		}
	})

	t.Run("fails without approval", func(t *testing.T) {
		m := NewMemory("escrow")
		m.Mint("alice", 50)

		err := m.TransferFrom(ctx, "alice", "escrow", 5)
		if !errors.Is(err, ErrInsufficientAllowance) {
			t.Fatalf("TransferFrom = %v, want ErrInsufficientAllowance", err)
		}
	})

	t.Run("approval does not cover a missing balance", func(t *testing.T) {
		m := NewMemory("escrow")
		m.Mint("alice", 3)
		m.Approve("alice", 100)

		err := m.TransferFrom(ctx, "alice", "escrow", 5)
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("TransferFrom = %v, want ErrInsufficientBalance", err)
		}
		// A failed pull must not consume allowance.
		if err := m.TransferFrom(ctx, "alice", "escrow", 3); err != nil {
			t.Fatalf("pull after failed pull: %v", err)
		}
	})
}
