package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
	raffleservice "github.com/R3E-Network/raffle-engine/internal/app/services/raffle"
	"github.com/R3E-Network/raffle-engine/internal/app/storage"
	"github.com/R3E-Network/raffle-engine/internal/randomness"
	"github.com/R3E-Network/raffle-engine/internal/token"
)

func newService(t *testing.T) (*raffleservice.Service, *token.Memory) {
	t.Helper()
	tok := token.NewMemory("escrow")
	service, err := raffleservice.New(raffleservice.Config{
		Owner:         "owner",
		Beneficiary:   "beneficiary",
		EscrowAccount: "escrow",
		ProfitFactor:  20,
	}, storage.NewMemory(), tok, randomness.New(nil), nil)
	require.NoError(t, err)
	return service, tok
}

func TestNewRejectsBadSpec(t *testing.T) {
	service, _ := newService(t)
	_, err := New(service, "owner", "not a cron spec", nil)
	assert.Error(t, err)
}

func TestNewAcceptsStandardSpecs(t *testing.T) {
	service, _ := newService(t)
	for _, spec := range []string{"0 * * * *", "*/5 * * * *", "@every 1h"} {
		_, err := New(service, "owner", spec, nil)
		assert.NoError(t, err, spec)
	}
}

func TestScheduledClose(t *testing.T) {
	service, tok := newService(t)
	tok.Mint("p1", 100)
	tok.Approve("p1", 100)

	ctx := context.Background()
	_, err := service.OpenRound(ctx, "owner", 5, 1, 10)
	require.NoError(t, err)
	_, err = service.BuyTicket(ctx, "p1", 3)
	require.NoError(t, err)

	sched, err := New(service, "owner", "@every 10ms", nil)
	require.NoError(t, err)
	sched.Start()
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for service.State() != domain.StateSalesFinished {
		if time.Now().After(deadline) {
			t.Fatalf("round never closed, state %s", service.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTickWithoutOpenRoundIsANoop(t *testing.T) {
	service, _ := newService(t)
	sched, err := New(service, "owner", "@every 10ms", nil)
	require.NoError(t, err)
	sched.Start()
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	assert.Equal(t, domain.StateClosed, service.State())
}
