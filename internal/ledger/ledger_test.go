package ledger

import (
	"errors"
	"testing"
)

func TestSell(t *testing.T) {
	t.Run("records sale and purchase order", func(t *testing.T) {
		l := New(1, 100)

		for i, number := range []int{7, 51, 3} {
			if err := l.Sell(number, "buyer"); err != nil {
				t.Fatalf("sell %d: %v", number, err)
			}
			if got, _ := l.TicketAt(i); got != number {
				t.Errorf("TicketAt(%d) = %d, want %d", i, got, number)
			}
		}
		if l.SoldCount() != 3 {
			t.Errorf("SoldCount() = %d, want 3", l.SoldCount())
		}
	})

	t.Run("rejects out of range numbers", func(t *testing.T) {
		l := New(10, 20)
		for _, number := range []int{9, 21, -1, 0} {
			if err := l.Sell(number, "buyer"); !errors.Is(err, ErrInvalidTicketNumber) {
				t.Errorf("Sell(%d) = %v, want ErrInvalidTicketNumber", number, err)
			}
		}
		if l.SoldCount() != 0 {
			t.Errorf("SoldCount() = %d after rejected sales, want 0", l.SoldCount())
		}
	})

	t.Run("rejects double sale", func(t *testing.T) {
		l := New(1, 100)
		if err := l.Sell(42, "first"); err != nil {
			t.Fatalf("first sale: %v", err)
		}
		if err := l.Sell(42, "second"); !errors.Is(err, ErrTicketAlreadySold) {
			t.Fatalf("second sale = %v, want ErrTicketAlreadySold", err)
		}
		if owner, _ := l.OwnerOf(42); owner != "first" {
			t.Errorf("OwnerOf(42) = %q, want %q", owner, "first")
		}
		if l.SoldCount() != 1 {
			t.Errorf("SoldCount() = %d, want 1", l.SoldCount())
		}
	})

	t.Run("accepts range boundaries", func(t *testing.T) {
		l := New(5, 6)
		if err := l.Sell(5, "a"); err != nil {
			t.Errorf("Sell(min): %v", err)
		}
		if err := l.Sell(6, "b"); err != nil {
			t.Errorf("Sell(max): %v", err)
		}
	})
}

func TestCanSell(t *testing.T) {
	l := New(1, 10)
	if err := l.CanSell(5); err != nil {
		t.Fatalf("CanSell(5) = %v, want nil", err)
	}
	// CanSell must not record anything.
	if l.IsSold(5) {
		t.Fatal("CanSell recorded a sale")
	}
}

func TestOwnerOf(t *testing.T) {
	l := New(1, 10)
	if _, ok := l.OwnerOf(3); ok {
		t.Fatal("OwnerOf on unsold ticket reported ok")
	}
	if err := l.Sell(3, "alice"); err != nil {
		t.Fatal(err)
	}
	owner, ok := l.OwnerOf(3)
	if !ok || owner != "alice" {
		t.Fatalf("OwnerOf(3) = (%q, %v), want (alice, true)", owner, ok)
	}
}

func TestTicketAt(t *testing.T) {
	l := New(1, 10)
	_ = l.Sell(8, "a")
	_ = l.Sell(2, "b")

	if _, ok := l.TicketAt(-1); ok {
		t.Error("TicketAt(-1) reported ok")
	}
	if _, ok := l.TicketAt(2); ok {
		t.Error("TicketAt past end reported ok")
	}
	if got, _ := l.TicketAt(1); got != 2 {
		t.Errorf("TicketAt(1) = %d, want 2", got)
	}
}

func TestSoldNumbersIsACopy(t *testing.T) {
	l := New(1, 10)
	_ = l.Sell(1, "a")

	numbers := l.SoldNumbers()
	numbers[0] = 99
	if got, _ := l.TicketAt(0); got != 1 {
		t.Fatal("SoldNumbers exposed internal slice")
	}
}

func TestSingleTicketRange(t *testing.T) {
	l := New(7, 7)
	if err := l.Sell(7, "only"); err != nil {
		t.Fatalf("Sell in single-number range: %v", err)
	}
	if err := l.CanSell(7); !errors.Is(err, ErrTicketAlreadySold) {
		t.Fatalf("CanSell after sellout = %v, want ErrTicketAlreadySold", err)
	}
}
