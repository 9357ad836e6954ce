// Package randomness integrates the raffle engine with an external random
// number source through a request/callback pair.
//
// The gateway enforces single-request, single-use semantics per round and
// correlates the inbound callback by request ID only. It makes no judgement
// about the statistical quality or provenance of the delivered value; that
// is the external source's responsibility.
package randomness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// Errors
var (
	ErrRequestAlreadyPending = errors.New("randomness request already pending for round")
	ErrUnknownRequest        = errors.New("unknown randomness request")
	ErrAlreadyFulfilled      = errors.New("randomness request already fulfilled")
	ErrNoConsumer            = errors.New("no randomness consumer registered")
)

// Request is one outstanding randomness request.
type Request struct {
	ID          string    `json:"id"`
	RoundNumber int64     `json:"round_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// Dispatcher notifies the external randomness source that a request exists.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// DispatcherFunc allows a function to satisfy Dispatcher.
type DispatcherFunc func(ctx context.Context, req Request) error

// Dispatch calls the underlying function.
func (f DispatcherFunc) Dispatch(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Consumer receives the raw random value once a request is fulfilled.
type Consumer func(ctx context.Context, requestID string, rawValue uint64) error

type requestEntry struct {
	roundNumber int64
	fulfilled   bool
}

// Gateway issues one randomness request per round and admits exactly one
// matching fulfillment for it.
type Gateway struct {
	mu         sync.Mutex
	log        *logger.Logger
	dispatcher Dispatcher
	consumer   Consumer
	requests   map[string]*requestEntry // request ID -> entry
	pending    map[int64]string         // round number -> unfulfilled request ID
}

// New constructs a gateway with a no-op dispatcher.
func New(log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.NewDefault("randomness")
	}
	return &Gateway{
		log: log,
		dispatcher: DispatcherFunc(func(context.Context, Request) error {
			return nil
		}),
		requests: make(map[string]*requestEntry),
		pending:  make(map[int64]string),
	}
}

// WithDispatcher overrides the dispatcher implementation.
func (g *Gateway) WithDispatcher(d Dispatcher) {
	if d == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dispatcher = d
}

// OnFulfilled registers the consumer the raw value is delivered to.
func (g *Gateway) OnFulfilled(c Consumer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consumer = c
}

// RequestRandomness issues a request for the given round and returns its
// opaque identifier. It fails with ErrRequestAlreadyPending while a prior
// request for the round is unfulfilled.
func (g *Gateway) RequestRandomness(ctx context.Context, roundNumber int64) (Request, error) {
	g.mu.Lock()
	if id, exists := g.pending[roundNumber]; exists {
		g.mu.Unlock()
		return Request{}, fmt.Errorf("%w: round %d, request %s", ErrRequestAlreadyPending, roundNumber, id)
	}
	req := Request{
		ID:          uuid.NewString(),
		RoundNumber: roundNumber,
		CreatedAt:   time.Now().UTC(),
	}
	g.requests[req.ID] = &requestEntry{roundNumber: roundNumber}
	g.pending[roundNumber] = req.ID
	dispatcher := g.dispatcher
	g.mu.Unlock()

	if err := dispatcher.Dispatch(ctx, req); err != nil {
		g.mu.Lock()
		delete(g.requests, req.ID)
		delete(g.pending, roundNumber)
		g.mu.Unlock()
		return Request{}, fmt.Errorf("dispatch randomness request: %w", err)
	}

	g.log.WithField("request_id", req.ID).
		WithField("round_number", roundNumber).
		Info("randomness requested")
	return req, nil
}

// Fulfill delivers rawValue for the request identified by requestID. It fails
// with ErrUnknownRequest when no such request is pending and with
// ErrAlreadyFulfilled when the request has already consumed a value. Both are
// protocol anomalies from a misbehaving source and are logged as such.
func (g *Gateway) Fulfill(ctx context.Context, requestID string, rawValue uint64) error {
	g.mu.Lock()
	entry, ok := g.requests[requestID]
	if !ok {
		g.mu.Unlock()
		g.log.WithField("request_id", requestID).Warn("fulfillment for unknown randomness request")
		return fmt.Errorf("%w: %s", ErrUnknownRequest, requestID)
	}
	if entry.fulfilled {
		g.mu.Unlock()
		g.log.WithField("request_id", requestID).Warn("duplicate randomness fulfillment")
		return fmt.Errorf("%w: %s", ErrAlreadyFulfilled, requestID)
	}
	consumer := g.consumer
	if consumer == nil {
		g.mu.Unlock()
		return ErrNoConsumer
	}

	// Mark consumed before releasing the lock so a concurrent duplicate is
	// rejected, then deliver outside the lock. The consumer takes the raffle
	// serializer, which itself calls back into this gateway.
	entry.fulfilled = true
	delete(g.pending, entry.roundNumber)
	g.mu.Unlock()

	if err := consumer(ctx, requestID, rawValue); err != nil {
		g.mu.Lock()
		entry.fulfilled = false
		g.pending[entry.roundNumber] = requestID
		g.mu.Unlock()
		return fmt.Errorf("deliver randomness: %w", err)
	}

	g.log.WithField("request_id", requestID).
		WithField("round_number", entry.roundNumber).
		Info("randomness fulfilled")
	return nil
}

// Cancel withdraws a pending request, typically because its round was
// cancelled. A later fulfillment for it fails with ErrUnknownRequest.
func (g *Gateway) Cancel(requestID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.requests[requestID]
	if !ok || entry.fulfilled {
		return
	}
	delete(g.requests, requestID)
	delete(g.pending, entry.roundNumber)
}

// HasPending reports whether the round has an unfulfilled request.
func (g *Gateway) HasPending(roundNumber int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[roundNumber]
	return ok
}
