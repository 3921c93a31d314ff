package pet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mochibot/internal/account"
)

const (
	fedRecently = 24 * time.Hour

	decayFed     = 1
	decayNeglect = 5
	happinessCap = 100
)

// Scheduler runs the daily aggregate-then-decay pass over every account.
type Scheduler struct {
	store account.Store
	log   *slog.Logger
	every time.Duration
	now   func() time.Time
}

func NewScheduler(store account.Store, every time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store: store,
		log:   logger,
		every: every,
		now:   time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	s.log.Info("decay scheduler started", "every", s.every.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("decay scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("decay pass failed", "err", err)
			}
		}
	}
}

// RunOnce performs the two ordered phases: recompute the mascot's happiness
// from every capped bond level, then decay every account based on feeding
// recency. The happiness sum is a full recompute, so it self-corrects any
// drift from partial past failures.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.aggregateHappiness(ctx); err != nil {
		return err
	}
	return s.decayAccounts(ctx)
}

func (s *Scheduler) aggregateHappiness(ctx context.Context) error {
	bonds, err := s.store.GetColumn(ctx, account.FieldBondLevel)
	if err != nil {
		return fmt.Errorf("read bond levels: %w", err)
	}
	var total int64
	for id, lvl := range bonds {
		if id == account.MascotID {
			continue
		}
		if lvl > happinessCap {
			lvl = happinessCap
		}
		total += lvl
	}
	if err := s.store.CreateAccount(ctx, account.MascotID, "Mochi"); err != nil {
		return fmt.Errorf("ensure mascot account: %w", err)
	}
	if err := s.store.SetField(ctx, account.MascotID, account.FieldBondLevel, total); err != nil {
		return fmt.Errorf("write happiness: %w", err)
	}
	s.log.Info("happiness aggregated", "total", total, "accounts", len(bonds))
	return nil
}

func (s *Scheduler) decayAccounts(ctx context.Context) error {
	lastFed, err := s.store.GetColumn(ctx, account.FieldLastFedAt)
	if err != nil {
		return fmt.Errorf("read feed times: %w", err)
	}

	now := s.now()
	var decayed, failed int
	for id, fedAt := range lastFed {
		if id == account.MascotID {
			continue
		}
		penalty := int64(decayNeglect)
		if fedAt > 0 && now.Sub(time.Unix(fedAt, 0)) <= fedRecently {
			penalty = decayFed
		}
		if err := s.decayOne(ctx, id, penalty); err != nil {
			s.log.Error("decay account failed", "user", id, "err", err)
			failed++
			continue
		}
		decayed++
	}
	s.log.Info("decay pass complete", "decayed", decayed, "failed", failed)
	return nil
}

func (s *Scheduler) decayOne(ctx context.Context, id string, penalty int64) error {
	if err := s.store.SetField(ctx, id, account.FieldFreeFeedUsed, 0); err != nil {
		return err
	}
	if err := s.store.SetField(ctx, id, account.FieldBondsAvailable, 0); err != nil {
		return err
	}
	if err := s.store.DecrementField(ctx, id, account.FieldAffection, penalty); err != nil {
		return err
	}
	return s.store.DecrementField(ctx, id, account.FieldBondLevel, penalty)
}
