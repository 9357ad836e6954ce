package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
)

// Memory is a thread-safe in-memory RaffleStore. It is intended for tests
// and single-process deployments and deliberately keeps the implementation
// simple.
type Memory struct {
	mu      sync.RWMutex
	rounds  map[int64]raffle.Round
	refunds map[int64]map[string]int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rounds:  make(map[int64]raffle.Round),
		refunds: make(map[int64]map[string]int64),
	}
}

var _ RaffleStore = (*Memory)(nil)

func (m *Memory) SaveRound(_ context.Context, round raffle.Round) (raffle.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.rounds[round.Number]; ok {
		round.CreatedAt = existing.CreatedAt
	} else if round.CreatedAt.IsZero() {
		round.CreatedAt = now
	}
	round.UpdatedAt = now

	m.rounds[round.Number] = round.Snapshot()
	return round.Snapshot(), nil
}

func (m *Memory) GetRound(_ context.Context, number int64) (raffle.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	round, ok := m.rounds[number]
	if !ok {
		return raffle.Round{}, ErrNotFound
	}
	return round.Snapshot(), nil
}

func (m *Memory) ListRounds(_ context.Context, limit int) ([]raffle.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	numbers := make([]int64, 0, len(m.rounds))
	for n := range m.rounds {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] > numbers[j] })

	if limit > 0 && len(numbers) > limit {
		numbers = numbers[:limit]
	}

	out := make([]raffle.Round, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, m.rounds[n].Snapshot())
	}
	return out, nil
}

func (m *Memory) LastRoundNumber(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last int64
	for n := range m.rounds {
		if n > last {
			last = n
		}
	}
	return last, nil
}

func (m *Memory) SetRefundBalances(_ context.Context, roundNumber int64, balances map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make(map[string]int64, len(balances))
	for identity, amount := range balances {
		copied[identity] = amount
	}
	m.refunds[roundNumber] = copied
	return nil
}

func (m *Memory) GetRefundBalance(_ context.Context, roundNumber int64, identity string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	balances, ok := m.refunds[roundNumber]
	if !ok {
		return 0, nil
	}
	return balances[identity], nil
}

func (m *Memory) ClearRefundBalance(_ context.Context, roundNumber int64, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if balances, ok := m.refunds[roundNumber]; ok {
		delete(balances, identity)
	}
	return nil
}

func (m *Memory) ListRefundBalances(_ context.Context, roundNumber int64) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64)
	for identity, amount := range m.refunds[roundNumber] {
		out[identity] = amount
	}
	return out, nil
}
