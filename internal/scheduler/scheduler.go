// Package scheduler closes open raffle rounds on a cron schedule so rounds
// settle without manual owner intervention.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	domain "github.com/R3E-Network/raffle-engine/internal/app/domain/raffle"
	raffleservice "github.com/R3E-Network/raffle-engine/internal/app/services/raffle"
	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

// Scheduler drives the automatic close of open rounds.
type Scheduler struct {
	cron    *cron.Cron
	service *raffleservice.Service
	owner   string
	log     *logger.Logger
}

// New creates a scheduler that invokes the close operation as the owner on
// the given cron spec. Standard five-field cron expressions plus the
// @every descriptors are accepted.
func New(service *raffleservice.Service, owner, spec string, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		owner:   owner,
		log:     log,
	}
	if _, err := s.cron.AddFunc(spec, s.closeRound); err != nil {
		return nil, fmt.Errorf("invalid close schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins schedule evaluation in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("round close scheduler started")
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("round close scheduler stopped")
}

// closeRound fires on the schedule. A tick with no open round is a no-op.
func (s *Scheduler) closeRound() {
	if s.service.State() != domain.StateOpen {
		return
	}

	round, err := s.service.CloseSalesAndPickWinner(context.Background(), s.owner)
	if err != nil {
		// Racing a manual close is expected; anything else is worth noise.
		if errors.Is(err, raffleservice.ErrRaffleNotOpen) {
			return
		}
		s.log.WithError(err).Warn("scheduled round close failed")
		return
	}
	s.log.WithField("round_number", round.Number).
		WithField("state", string(round.State)).
		Info("round closed by schedule")
}
