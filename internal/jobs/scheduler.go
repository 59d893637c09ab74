// Package jobs runs the periodic leaderboard recompute.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"bingo-ledger/internal/model"
)

// Recomputer rebuilds one leaderboard snapshot.
type Recomputer interface {
	RecomputeScheduled(ctx context.Context, periodType model.PeriodType) (*model.LeaderboardSnapshot, error)
}

var periodTypes = []model.PeriodType{model.PeriodGlobal, model.PeriodWeekly, model.PeriodMonthly}

// Scheduler recomputes every leaderboard type on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	recomputer Recomputer
	timeout    time.Duration
}

// NewScheduler parses schedule (standard cron or "@every 15m") and
// registers the recompute job. Overlapping runs are skipped.
func NewScheduler(schedule string, recomputer Recomputer) (*Scheduler, error) {
	s := &Scheduler{
		recomputer: recomputer,
		timeout:    5 * time.Minute,
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid leaderboard schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("Leaderboard scheduler started")
}

// Stop stops scheduling and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("Leaderboard scheduler stop timed out")
	}
}

// RunOnce recomputes all leaderboard types. A failure of one type is logged
// and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, pt := range periodTypes {
		snap, err := s.recomputer.RecomputeScheduled(ctx, pt)
		if err != nil {
			log.Error().Err(err).Str("type", string(pt)).Msg("Scheduled leaderboard recompute failed")
			continue
		}
		log.Debug().
			Str("key", snap.Key).
			Int("entries", len(snap.Entries)).
			Msg("Leaderboard recomputed")
	}
}
