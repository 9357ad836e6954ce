// Package raffle implements the round lifecycle state machine: it sells
// numbered tickets, escrows the proceeds, settles exactly one winner from an
// externally supplied random value, and pays out prize, profits, or refunds.
//
// Every mutating operation runs to completion under a single lock covering
// ledger, escrow, and state together. That serializer is what makes "ticket
// sold at most once" and "redeemed at most once" enforceable: an operation
// either fully commits or fully fails, with no partially applied writes.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
	"github.com/R3E-Network/raffle-engine/internal/app/metrics"
	"github.com/R3E-Network/raffle-engine/internal/app/storage"
	"github.com/R3E-Network/raffle-engine/internal/escrow"
	"github.com/R3E-Network/raffle-engine/internal/ledger"
	"github.com/R3E-Network/raffle-engine/internal/randomness"
	"github.com/R3E-Network/raffle-engine/internal/token"
	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// Errors
var (
	ErrRoundAlreadyOpen   = errors.New("a round is already open")
	ErrRaffleNotOpen      = errors.New("raffle is not open")
	ErrInvalidState       = errors.New("operation not valid in current state")
	ErrInvalidTicketRange = errors.New("invalid ticket range")
	ErrInvalidTicketPrice = errors.New("ticket price must be positive")
	ErrNothingToRefund    = errors.New("nothing to refund")
	ErrNoActiveRound      = errors.New("no active round")
)

// Config holds the fixed parameters of a raffle manager instance.
type Config struct {
	// Owner may open, close, and cancel rounds.
	Owner string
	// Beneficiary receives the profit share of each settled round.
	Beneficiary string
	// EscrowAccount is the engine's own token account: ticket pulls land
	// in it and payouts leave from it.
	EscrowAccount string
	// ProfitFactor is the percentage of escrow routed to the beneficiary.
	ProfitFactor int64
}

// Service is the raffle manager. One round is active at a time; settled and
// cancelled rounds are archived under an incrementing round number so the
// same instance serves many sequential rounds.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	access  *AccessControl
	log     *logger.Logger
	token   token.Transferor
	gateway *randomness.Gateway
	store   storage.RaffleStore

	roundNumber int64
	current     *activeRound // nil while the manager is Closed
}

// activeRound bundles the mutable state of the round in flight. It is only
// touched while holding Service.mu.
type activeRound struct {
	number int64
	state  domain.State

	price int64
	min   int
	max   int

	ledger *ledger.Ledger
	escrow *escrow.Account

	prizeAmount  int64
	profitAmount int64

	requestID      string
	randomValue    uint64
	randomReceived bool

	winnerTicket int
	winner       string

	prizeRedeemed  bool
	profitRedeemed bool

	refunds            map[string]int64
	outstandingRefunds int64

	openedAt    time.Time
	closedAt    time.Time
	settledAt   time.Time
	cancelledAt time.Time
}

// New constructs a raffle manager, resuming the most recent unfinished round
// from the store if one exists. The gateway's fulfillment callback is wired
// to the manager here.
func New(cfg Config, store storage.RaffleStore, tok token.Transferor, gateway *randomness.Gateway, log *logger.Logger) (*Service, error) {
	if cfg.Owner == "" {
		return nil, fmt.Errorf("owner identity is required")
	}
	if cfg.Beneficiary == "" {
		return nil, fmt.Errorf("beneficiary identity is required")
	}
	if cfg.EscrowAccount == "" {
		return nil, fmt.Errorf("escrow account identity is required")
	}
	if cfg.ProfitFactor < 0 || cfg.ProfitFactor > 100 {
		return nil, fmt.Errorf("profit factor %d outside [0, 100]", cfg.ProfitFactor)
	}
	if log == nil {
		log = logger.NewDefault("raffle")
	}

	s := &Service{
		cfg:     cfg,
		access:  NewAccessControl(cfg.Owner, cfg.Beneficiary),
		log:     log,
		token:   tok,
		gateway: gateway,
		store:   store,
	}

	if err := s.resume(context.Background()); err != nil {
		return nil, fmt.Errorf("resume from store: %w", err)
	}

	gateway.OnFulfilled(s.handleRandomness)
	return s, nil
}

// resume restores the manager position from the archive: the round counter
// always, and the last round itself when it is still unfinished (awaiting
// redemptions or refund claims). A restored SalesFinished round has lost its
// randomness correlation and can only be cancelled by the owner; that is the
// documented resolution for the stuck-awaiting-randomness gap.
func (s *Service) resume(ctx context.Context) error {
	last, err := s.store.LastRoundNumber(ctx)
	if err != nil {
		return err
	}
	s.roundNumber = last
	if last == 0 {
		return nil
	}

	round, err := s.store.GetRound(ctx, last)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	switch round.State {
	case domain.StateSettled:
		if round.PrizeRedeemed && round.ProfitRedeemed {
			return nil
		}
	case domain.StateCancelled:
		balances, err := s.store.ListRefundBalances(ctx, last)
		if err != nil {
			return err
		}
		if len(balances) == 0 {
			return nil
		}
	case domain.StateOpen, domain.StateSalesFinished:
		// fall through to restore
	default:
		return nil
	}

	cur, err := rebuild(round)
	if err != nil {
		return err
	}
	if round.State == domain.StateCancelled {
		balances, err := s.store.ListRefundBalances(ctx, last)
		if err != nil {
			return err
		}
		cur.refunds = balances
		for _, amount := range balances {
			cur.outstandingRefunds += amount
		}
	}
	s.current = cur
	s.log.WithField("round_number", last).
		WithField("state", string(round.State)).
		Info("resumed unfinished round from store")
	return nil
}

// rebuild reconstructs the in-memory round from an archived snapshot.
func rebuild(round domain.Round) (*activeRound, error) {
	led := ledger.New(round.TicketMin, round.TicketMax)
	for _, number := range round.SoldTickets {
		owner, ok := round.TicketOwners[number]
		if !ok {
			return nil, fmt.Errorf("snapshot inconsistent: ticket %d has no owner", number)
		}
		if err := led.Sell(number, owner); err != nil {
			return nil, fmt.Errorf("snapshot inconsistent: %w", err)
		}
	}

	esc := escrow.New()
	if err := esc.Credit(round.TotalEscrowed); err != nil {
		return nil, err
	}
	if round.PrizeRedeemed {
		if err := esc.Withdraw(round.PrizeAmount, escrow.PartyWinner); err != nil {
			return nil, err
		}
	}
	if round.ProfitRedeemed {
		if err := esc.Withdraw(round.ProfitAmount, escrow.PartyBeneficiary); err != nil {
			return nil, err
		}
	}

	return &activeRound{
		number:         round.Number,
		state:          round.State,
		price:          round.TicketPrice,
		min:            round.TicketMin,
		max:            round.TicketMax,
		ledger:         led,
		escrow:         esc,
		prizeAmount:    round.PrizeAmount,
		profitAmount:   round.ProfitAmount,
		requestID:      round.RandomRequestID,
		randomValue:    round.RandomValue,
		randomReceived: round.RandomReceived,
		winnerTicket:   round.WinnerTicket,
		winner:         round.Winner,
		prizeRedeemed:  round.PrizeRedeemed,
		profitRedeemed: round.ProfitRedeemed,
		refunds:        make(map[string]int64),
		openedAt:       round.OpenedAt,
		closedAt:       round.ClosedAt,
		settledAt:      round.SettledAt,
		cancelledAt:    round.CancelledAt,
	}, nil
}

// OpenRound starts a fresh round selling tickets in [min, max] at the given
// price. Owner only; legal only while no round is active.
func (s *Service) OpenRound(ctx context.Context, caller string, price int64, min, max int) (domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return domain.Round{}, err
	}
	if s.current != nil {
		return domain.Round{}, fmt.Errorf("%w: round %d is %s", ErrRoundAlreadyOpen, s.current.number, s.current.state)
	}
	if price <= 0 {
		return domain.Round{}, fmt.Errorf("%w: %d", ErrInvalidTicketPrice, price)
	}
	if min > max {
		return domain.Round{}, fmt.Errorf("%w: [%d, %d]", ErrInvalidTicketRange, min, max)
	}

	s.roundNumber++
	now := time.Now().UTC()
	s.current = &activeRound{
		number:   s.roundNumber,
		state:    domain.StateOpen,
		price:    price,
		min:      min,
		max:      max,
		ledger:   ledger.New(min, max),
		escrow:   escrow.New(),
		refunds:  make(map[string]int64),
		openedAt: now,
	}

	s.persistLocked(ctx)
	metrics.RecordTransition(string(domain.StateOpen))
	metrics.SetEscrowHeld(0)
	s.log.WithField("round_number", s.roundNumber).
		WithField("ticket_price", price).
		WithField("ticket_min", min).
		WithField("ticket_max", max).
		Info("round opened")
	return s.snapshotLocked(), nil
}

// BuyTicket sells the given ticket number to caller, pulling the ticket
// price from the caller's pre-authorized funds. Sale and escrow credit
// commit together or not at all.
func (s *Service) BuyTicket(ctx context.Context, caller string, number int) (domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if cur == nil || cur.state != domain.StateOpen {
		return domain.Round{}, fmt.Errorf("%w: state %s", ErrRaffleNotOpen, s.stateLocked())
	}
	if err := cur.ledger.CanSell(number); err != nil {
		return domain.Round{}, err
	}

	// Pull funds only after the sale is known to be valid; a failed pull
	// leaves ledger and escrow untouched.
	if err := s.token.TransferFrom(ctx, caller, s.cfg.EscrowAccount, cur.price); err != nil {
		return domain.Round{}, fmt.Errorf("collect ticket price: %w", err)
	}
	if err := cur.ledger.Sell(number, caller); err != nil {
		// Unreachable under the serializer; CanSell was checked above.
		return domain.Round{}, err
	}
	if err := cur.escrow.Credit(cur.price); err != nil {
		return domain.Round{}, err
	}

	s.persistLocked(ctx)
	metrics.RecordTicketSold()
	metrics.SetEscrowHeld(cur.escrow.Total())
	s.log.WithField("round_number", cur.number).
		WithField("ticket_number", number).
		WithField("buyer", caller).
		Info("ticket sold")
	return s.snapshotLocked(), nil
}

// CloseSalesAndPickWinner stops ticket sales, fixes the prize/profit split,
// and requests a random value; the round settles when the value arrives.
// Owner only; legal only while Open. A round closed with zero tickets sold
// has no possible winner and is cancelled instead.
func (s *Service) CloseSalesAndPickWinner(ctx context.Context, caller string) (domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return domain.Round{}, err
	}
	cur := s.current
	if cur == nil || cur.state != domain.StateOpen {
		return domain.Round{}, fmt.Errorf("%w: state %s", ErrRaffleNotOpen, s.stateLocked())
	}

	if cur.ledger.SoldCount() == 0 {
		s.log.WithField("round_number", cur.number).Warn("closing round with no tickets sold, cancelling")
		s.cancelLocked(ctx)
		return s.lastArchivedLocked(ctx, cur.number)
	}

	prize, profit, err := escrow.ComputeSplit(cur.escrow.Total(), s.cfg.ProfitFactor)
	if err != nil {
		return domain.Round{}, err
	}

	req, err := s.gateway.RequestRandomness(ctx, cur.number)
	if err != nil {
		return domain.Round{}, fmt.Errorf("request randomness: %w", err)
	}

	cur.prizeAmount = prize
	cur.profitAmount = profit
	cur.requestID = req.ID
	cur.state = domain.StateSalesFinished
	cur.closedAt = time.Now().UTC()

	s.persistLocked(ctx)
	metrics.RecordTransition(string(domain.StateSalesFinished))
	s.log.WithField("round_number", cur.number).
		WithField("request_id", req.ID).
		WithField("tickets_sold", cur.ledger.SoldCount()).
		WithField("prize_amount", prize).
		WithField("profit_amount", profit).
		Info("sales closed, awaiting randomness")
	return s.snapshotLocked(), nil
}

// handleRandomness is the gateway's fulfillment callback. It maps the raw
// value onto the sold-ticket sequence and settles the round. The gateway has
// already verified the request correlation; arriving in any state other than
// SalesFinished is a protocol anomaly.
func (s *Service) handleRandomness(ctx context.Context, requestID string, rawValue uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if cur == nil || cur.state != domain.StateSalesFinished {
		return fmt.Errorf("%w: randomness delivered in state %s", ErrInvalidState, s.stateLocked())
	}
	if cur.requestID != requestID {
		return fmt.Errorf("%w: request %s does not belong to round %d", ErrInvalidState, requestID, cur.number)
	}

	cur.randomValue = rawValue
	cur.randomReceived = true

	count := cur.ledger.SoldCount()
	if count == 0 {
		// No valid winner can exist; divert to the refundable terminal
		// state instead of faulting on the modulo below.
		s.log.WithField("round_number", cur.number).Warn("randomness arrived for empty round, cancelling")
		s.cancelLocked(ctx)
		return nil
	}

	index := int(rawValue % uint64(count))
	winnerTicket, _ := cur.ledger.TicketAt(index)
	winner, _ := cur.ledger.OwnerOf(winnerTicket)

	cur.winnerTicket = winnerTicket
	cur.winner = winner
	cur.state = domain.StateSettled
	cur.settledAt = time.Now().UTC()

	s.persistLocked(ctx)
	metrics.RecordTransition(string(domain.StateSettled))
	s.log.WithField("round_number", cur.number).
		WithField("random_value", rawValue).
		WithField("winner_ticket", winnerTicket).
		WithField("winner", winner).
		Info("round settled")
	return nil
}

// RedeemPrize pays the prize to the winner. Legal only once the round is
// Settled, only for the winner, and only once.
func (s *Service) RedeemPrize(ctx context.Context, caller string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if cur == nil || cur.state != domain.StateSettled {
		return 0, fmt.Errorf("%w: state %s", ErrInvalidState, s.stateLocked())
	}
	if err := s.access.RequireIdentity(caller, cur.winner, "winner"); err != nil {
		return 0, err
	}

	// Mark before transferring; a failed transfer rolls the mark back so
	// the winner can retry. The serializer prevents a concurrent second
	// redemption between mark and transfer.
	if err := cur.escrow.Withdraw(cur.prizeAmount, escrow.PartyWinner); err != nil {
		return 0, err
	}
	cur.prizeRedeemed = true
	if err := s.token.Transfer(ctx, caller, cur.prizeAmount); err != nil {
		cur.escrow.Restore(cur.prizeAmount, escrow.PartyWinner)
		cur.prizeRedeemed = false
		return 0, fmt.Errorf("pay prize: %w", err)
	}

	s.persistLocked(ctx)
	metrics.RecordPayout("prize")
	metrics.SetEscrowHeld(cur.escrow.Remaining())
	s.log.WithField("round_number", cur.number).
		WithField("winner", caller).
		WithField("prize_amount", cur.prizeAmount).
		Info("prize redeemed")

	amount := cur.prizeAmount
	s.maybeArchiveLocked(ctx)
	return amount, nil
}

// ClaimProfits pays the profit share to the beneficiary. Legal only once the
// round is Settled, only for the beneficiary, and only once.
func (s *Service) ClaimProfits(ctx context.Context, caller string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if cur == nil || cur.state != domain.StateSettled {
		return 0, fmt.Errorf("%w: state %s", ErrInvalidState, s.stateLocked())
	}
	if err := s.access.RequireBeneficiary(caller); err != nil {
		return 0, err
	}

	if err := cur.escrow.Withdraw(cur.profitAmount, escrow.PartyBeneficiary); err != nil {
		return 0, err
	}
	cur.profitRedeemed = true
	if err := s.token.Transfer(ctx, caller, cur.profitAmount); err != nil {
		cur.escrow.Restore(cur.profitAmount, escrow.PartyBeneficiary)
		cur.profitRedeemed = false
		return 0, fmt.Errorf("pay profits: %w", err)
	}

	s.persistLocked(ctx)
	metrics.RecordPayout("profit")
	metrics.SetEscrowHeld(cur.escrow.Remaining())
	s.log.WithField("round_number", cur.number).
		WithField("beneficiary", caller).
		WithField("profit_amount", cur.profitAmount).
		Info("profits claimed")

	amount := cur.profitAmount
	s.maybeArchiveLocked(ctx)
	return amount, nil
}

// CancelRound aborts the round before settlement, converting every sold
// ticket's price into a per-buyer refundable balance. Owner only; legal only
// while Open or SalesFinished.
func (s *Service) CancelRound(ctx context.Context, caller string) (domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.access.RequireOwner(caller); err != nil {
		return domain.Round{}, err
	}
	cur := s.current
	if cur == nil || (cur.state != domain.StateOpen && cur.state != domain.StateSalesFinished) {
		return domain.Round{}, fmt.Errorf("%w: state %s", ErrInvalidState, s.stateLocked())
	}

	number := cur.number
	s.cancelLocked(ctx)
	if s.current != nil {
		return s.snapshotLocked(), nil
	}
	return s.lastArchivedLocked(ctx, number)
}

// cancelLocked moves the current round to Cancelled, builds refund balances,
// and withdraws any pending randomness request. A round with nothing to
// refund archives immediately.
func (s *Service) cancelLocked(ctx context.Context) {
	cur := s.current

	if cur.requestID != "" && !cur.randomReceived {
		s.gateway.Cancel(cur.requestID)
	}

	cur.refunds = make(map[string]int64)
	cur.outstandingRefunds = 0
	for _, owner := range cur.ledger.Owners() {
		cur.refunds[owner] += cur.price
		cur.outstandingRefunds += cur.price
	}

	cur.state = domain.StateCancelled
	cur.cancelledAt = time.Now().UTC()

	s.persistLocked(ctx)
	if err := s.store.SetRefundBalances(ctx, cur.number, cur.refunds); err != nil {
		s.log.WithError(err).WithField("round_number", cur.number).Warn("failed to persist refund balances")
	}
	metrics.RecordTransition(string(domain.StateCancelled))
	s.log.WithField("round_number", cur.number).
		WithField("refundable_buyers", len(cur.refunds)).
		WithField("refundable_total", cur.outstandingRefunds).
		Info("round cancelled")

	if cur.outstandingRefunds == 0 {
		s.archiveLocked(ctx)
	}
}

// ClaimRefund pays the caller's refundable balance back and zeroes it, so a
// repeat claim fails with ErrNothingToRefund. Legal only while Cancelled.
func (s *Service) ClaimRefund(ctx context.Context, caller string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if cur == nil || cur.state != domain.StateCancelled {
		return 0, fmt.Errorf("%w: state %s", ErrInvalidState, s.stateLocked())
	}
	amount := cur.refunds[caller]
	if amount == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNothingToRefund, caller)
	}

	// Zero the balance before transferring; a failed transfer restores it.
	delete(cur.refunds, caller)
	cur.outstandingRefunds -= amount
	if err := s.token.Transfer(ctx, caller, amount); err != nil {
		cur.refunds[caller] = amount
		cur.outstandingRefunds += amount
		return 0, fmt.Errorf("pay refund: %w", err)
	}

	if err := s.store.ClearRefundBalance(ctx, cur.number, caller); err != nil {
		s.log.WithError(err).WithField("round_number", cur.number).Warn("failed to clear stored refund balance")
	}
	metrics.RecordPayout("refund")
	metrics.SetEscrowHeld(cur.outstandingRefunds)
	s.log.WithField("round_number", cur.number).
		WithField("buyer", caller).
		WithField("refund_amount", amount).
		Info("refund claimed")

	if cur.outstandingRefunds == 0 {
		s.archiveLocked(ctx)
	}
	return amount, nil
}

// maybeArchiveLocked archives the round once both redemptions are complete.
func (s *Service) maybeArchiveLocked(ctx context.Context) {
	cur := s.current
	if cur != nil && cur.prizeRedeemed && cur.profitRedeemed {
		s.archiveLocked(ctx)
	}
}

// archiveLocked persists the final snapshot and replaces the active round
// wholesale, returning the manager to Closed. Replacing rather than mutating
// in place keeps residual state from leaking into the next round.
func (s *Service) archiveLocked(ctx context.Context) {
	cur := s.current
	s.persistLocked(ctx)
	s.current = nil
	metrics.RecordTransition(string(domain.StateClosed))
	metrics.SetEscrowHeld(0)
	s.log.WithField("round_number", cur.number).
		WithField("final_state", string(cur.state)).
		Info("round archived")
}

// persistLocked stores the current snapshot. Persistence failures do not
// fail the operation: the serializer's in-memory state is authoritative and
// the archive catches up on the next write.
func (s *Service) persistLocked(ctx context.Context) {
	if _, err := s.store.SaveRound(ctx, s.snapshotLocked()); err != nil {
		s.log.WithError(err).WithField("round_number", s.current.number).Warn("failed to persist round snapshot")
	}
}

// snapshotLocked renders the active round as a domain.Round. While sales are
// open the prize/profit amounts are derived live from the running total, the
// way the final split will be computed at close.
func (s *Service) snapshotLocked() domain.Round {
	cur := s.current
	round := domain.Round{
		Number:          cur.number,
		State:           cur.state,
		TicketPrice:     cur.price,
		TicketMin:       cur.min,
		TicketMax:       cur.max,
		ProfitFactor:    s.cfg.ProfitFactor,
		SoldTickets:     cur.ledger.SoldNumbers(),
		TicketOwners:    cur.ledger.Owners(),
		TotalEscrowed:   cur.escrow.Total(),
		PrizeAmount:     cur.prizeAmount,
		ProfitAmount:    cur.profitAmount,
		RandomRequestID: cur.requestID,
		RandomValue:     cur.randomValue,
		RandomReceived:  cur.randomReceived,
		WinnerTicket:    cur.winnerTicket,
		Winner:          cur.winner,
		PrizeRedeemed:   cur.prizeRedeemed,
		ProfitRedeemed:  cur.profitRedeemed,
		OpenedAt:        cur.openedAt,
		ClosedAt:        cur.closedAt,
		SettledAt:       cur.settledAt,
		CancelledAt:     cur.cancelledAt,
	}
	if cur.state == domain.StateOpen {
		if prize, profit, err := escrow.ComputeSplit(cur.escrow.Total(), s.cfg.ProfitFactor); err == nil {
			round.PrizeAmount = prize
			round.ProfitAmount = profit
		}
	}
	return round
}

func (s *Service) stateLocked() domain.State {
	if s.current == nil {
		return domain.StateClosed
	}
	return s.current.state
}

// lastArchivedLocked fetches the just-archived snapshot for returning to the
// caller of an operation that ended the round.
func (s *Service) lastArchivedLocked(ctx context.Context, number int64) (domain.Round, error) {
	round, err := s.store.GetRound(ctx, number)
	if err != nil {
		return domain.Round{}, fmt.Errorf("load archived round %d: %w", number, err)
	}
	return round, nil
}

// --- Read-only queries ------------------------------------------------------

// State returns the manager's current lifecycle state.
func (s *Service) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// CurrentRound returns a snapshot of the active round, if any.
func (s *Service) CurrentRound() (domain.Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Round{}, false
	}
	return s.snapshotLocked(), true
}

// RoundNumber returns the number of the active or most recent round.
func (s *Service) RoundNumber() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundNumber
}

// OwnerOf returns the buyer of a ticket number in the active round.
func (s *Service) OwnerOf(number int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", false
	}
	return s.current.ledger.OwnerOf(number)
}

// RefundBalance returns the caller's refundable balance in the active round.
func (s *Service) RefundBalance(identity string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.refunds[identity]
}

// GetRound returns an archived or active round snapshot by number.
func (s *Service) GetRound(ctx context.Context, number int64) (domain.Round, error) {
	s.mu.Lock()
	if cur := s.current; cur != nil && cur.number == number {
		round := s.snapshotLocked()
		s.mu.Unlock()
		return round, nil
	}
	s.mu.Unlock()
	return s.store.GetRound(ctx, number)
}

// ListRounds lists stored round snapshots, newest first.
func (s *Service) ListRounds(ctx context.Context, limit int) ([]domain.Round, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListRounds(ctx, limit)
}
