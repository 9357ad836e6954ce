package escrow

import (
	"errors"
	"testing"
)

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		factor     int64
		wantPrize  int64
		wantProfit int64
	}{
		{"twenty percent of twenty", 20, 20, 16, 4},
		{"flooring lands on prize", 19, 20, 16, 3},
		{"zero factor", 100, 0, 100, 0},
		{"full factor", 100, 100, 0, 100},
		{"zero total", 0, 50, 0, 0},
		{"small total floors to zero profit", 3, 20, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prize, profit, err := ComputeSplit(tt.total, tt.factor)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %d): %v", tt.total, tt.factor, err)
			}
			if prize != tt.wantPrize || profit != tt.wantProfit {
				t.Errorf("ComputeSplit(%d, %d) = (%d, %d), want (%d, %d)",
					tt.total, tt.factor, prize, profit, tt.wantPrize, tt.wantProfit)
			}
		})
	}
}

// The split must always be exact, whatever the factor.
func TestComputeSplitConservation(t *testing.T) {
	totals := []int64{0, 1, 3, 19, 20, 99, 100, 1001, 123457}
	for factor := int64(0); factor <= 100; factor++ {
		for _, total := range totals {
			prize, profit, err := ComputeSplit(total, factor)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %d): %v", total, factor, err)
			}
			if prize+profit != total {
				t.Fatalf("ComputeSplit(%d, %d): prize %d + profit %d != total", total, factor, prize, profit)
			}
			if prize < 0 || profit < 0 {
				t.Fatalf("ComputeSplit(%d, %d) produced a negative share", total, factor)
			}
		}
	}
}

func TestComputeSplitErrors(t *testing.T) {
	if _, _, err := ComputeSplit(-1, 20); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("negative total = %v, want ErrNegativeAmount", err)
	}
	if _, _, err := ComputeSplit(100, -1); !errors.Is(err, ErrInvalidFactor) {
		t.Errorf("factor -1 = %v, want ErrInvalidFactor", err)
	}
	if _, _, err := ComputeSplit(100, 101); !errors.Is(err, ErrInvalidFactor) {
		t.Errorf("factor 101 = %v, want ErrInvalidFactor", err)
	}
}

func TestCredit(t *testing.T) {
	a := New()
	if err := a.Credit(5); err != nil {
		t.Fatal(err)
	}
	if err := a.Credit(15); err != nil {
		t.Fatal(err)
	}
	if a.Total() != 20 {
		t.Errorf("Total() = %d, want 20", a.Total())
	}
	if err := a.Credit(-1); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("Credit(-1) = %v, want ErrNegativeAmount", err)
	}
	if a.Total() != 20 {
		t.Errorf("Total() changed after rejected credit: %d", a.Total())
	}
}

func TestWithdraw(t *testing.T) {
	t.Run("each party withdraws once", func(t *testing.T) {
		a := New()
		_ = a.Credit(20)

		if err := a.Withdraw(16, PartyWinner); err != nil {
			t.Fatalf("winner withdraw: %v", err)
		}
		if err := a.Withdraw(16, PartyWinner); !errors.Is(err, ErrAlreadyRedeemed) {
			t.Fatalf("second winner withdraw = %v, want ErrAlreadyRedeemed", err)
		}
		if err := a.Withdraw(4, PartyBeneficiary); err != nil {
			t.Fatalf("beneficiary withdraw: %v", err)
		}
		if a.Remaining() != 0 {
			t.Errorf("Remaining() = %d, want 0", a.Remaining())
		}
	})

	t.Run("cannot overdraw", func(t *testing.T) {
		a := New()
		_ = a.Credit(10)
		if err := a.Withdraw(11, PartyWinner); !errors.Is(err, ErrInsufficientEscrow) {
			t.Fatalf("overdraw = %v, want ErrInsufficientEscrow", err)
		}
		// A failed withdraw must not consume the party's redemption.
		if a.Redeemed(PartyWinner) {
			t.Error("failed withdraw marked party redeemed")
		}
	})
}

func TestRestore(t *testing.T) {
	a := New()
	_ = a.Credit(20)
	if err := a.Withdraw(16, PartyWinner); err != nil {
		t.Fatal(err)
	}

	a.Restore(16, PartyWinner)
	if a.Redeemed(PartyWinner) {
		t.Fatal("Restore left party marked redeemed")
	}
	if a.Remaining() != 20 {
		t.Fatalf("Remaining() = %d after restore, want 20", a.Remaining())
	}

	// Restore on a party that never withdrew is a no-op.
	a.Restore(4, PartyBeneficiary)
	if a.Remaining() != 20 {
		t.Fatalf("Remaining() = %d after no-op restore, want 20", a.Remaining())
	}

	// The party can withdraw again after a restore.
	if err := a.Withdraw(16, PartyWinner); err != nil {
		t.Fatalf("withdraw after restore: %v", err)
	}
}
