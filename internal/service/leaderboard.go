package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"bingo-ledger/internal/metrics"
	"bingo-ledger/internal/model"
	"bingo-ledger/internal/repository"
)

// SnapshotCache is the read-through cache of published snapshots.
type SnapshotCache interface {
	Put(ctx context.Context, snap *model.LeaderboardSnapshot) error
	Get(ctx context.Context, key string) (*model.LeaderboardSnapshot, bool, error)
}

// Score is the deterministic leaderboard score of one account.
func Score(s *model.PlayStats) int64 {
	return s.GamesWon*100 +
		s.GamesPlayed*10 +
		s.Level*50 +
		floorDiv(s.Experience, 10) +
		s.TotalEarnings.Floor().IntPart()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Rank scores stats and orders them by descending score. The sort is
// stable: accounts with equal scores keep their input order, which is
// account creation order.
func Rank(stats []*model.PlayStats) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, len(stats))
	for i, s := range stats {
		entries[i] = model.LeaderboardEntry{
			AccountID:   s.AccountID,
			DisplayName: s.DisplayName,
			Score:       Score(s),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// PeriodKey returns the snapshot key and period label of periodType at t
// in loc: "global", "weekly-2024-W10" (ISO week) or "monthly-2024-03".
func PeriodKey(periodType model.PeriodType, t time.Time, loc *time.Location) (key, period string, err error) {
	local := t.In(loc)
	switch periodType {
	case model.PeriodGlobal:
		return "global", "global", nil
	case model.PeriodWeekly:
		year, week := local.ISOWeek()
		period = fmt.Sprintf("%04d-W%02d", year, week)
	case model.PeriodMonthly:
		period = fmt.Sprintf("%04d-%02d", local.Year(), int(local.Month()))
	default:
		return "", "", invalidInput("unknown leaderboard type %q", periodType)
	}
	return string(periodType) + "-" + period, period, nil
}

// LeaderboardService computes and publishes ranked snapshots.
type LeaderboardService struct {
	// mu orders recomputes so the cache is written in generation order.
	mu sync.Mutex

	accounts  *repository.AccountRepository
	stats     *repository.StatsRepository
	snapshots *repository.LeaderboardRepository
	cache     SnapshotCache
	calendar  *Calendar
}

// NewLeaderboardService creates a new LeaderboardService instance. cache
// may be nil.
func NewLeaderboardService(
	accounts *repository.AccountRepository,
	stats *repository.StatsRepository,
	snapshots *repository.LeaderboardRepository,
	cache SnapshotCache,
	calendar *Calendar,
) *LeaderboardService {
	return &LeaderboardService{
		accounts:  accounts,
		stats:     stats,
		snapshots: snapshots,
		cache:     cache,
		calendar:  calendar,
	}
}

// Recompute rebuilds the snapshot of periodType on behalf of callerID, who
// must be an administrator.
func (s *LeaderboardService) Recompute(ctx context.Context, callerID string, periodType model.PeriodType) (*model.LeaderboardSnapshot, error) {
	if !periodType.Valid() {
		return nil, invalidInput("unknown leaderboard type %q", periodType)
	}
	if err := requireAdmin(ctx, s.accounts, callerID); err != nil {
		return nil, err
	}
	return s.recompute(ctx, periodType)
}

// RecomputeScheduled rebuilds the snapshot of periodType for the scheduler,
// which acts with the service's own capability.
func (s *LeaderboardService) RecomputeScheduled(ctx context.Context, periodType model.PeriodType) (*model.LeaderboardSnapshot, error) {
	if !periodType.Valid() {
		return nil, invalidInput("unknown leaderboard type %q", periodType)
	}
	return s.recompute(ctx, periodType)
}

func (s *LeaderboardService) recompute(ctx context.Context, periodType model.PeriodType) (*model.LeaderboardSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	now := s.calendar.Now()
	key, period, err := PeriodKey(periodType, now, s.calendar.Location())
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.ListForRanking(ctx)
	if err != nil {
		return nil, err
	}

	snap := &model.LeaderboardSnapshot{
		Key:         key,
		Type:        periodType,
		Period:      period,
		Entries:     Rank(stats),
		GeneratedAt: now.UTC(),
	}
	stored, err := s.snapshots.Replace(ctx, snap)
	if err != nil {
		return nil, err
	}
	if !stored {
		// Another instance published a newer snapshot meanwhile.
		log.Info().Str("key", key).Msg("Newer leaderboard snapshot already stored")
		return s.snapshots.Get(ctx, key)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, snap); err != nil {
			// Readers fall back to the database.
			log.Warn().Err(err).Str("key", key).Msg("Failed to publish leaderboard snapshot to cache")
		}
	}

	metrics.RecordLeaderboard(string(periodType), len(snap.Entries), time.Since(start).Seconds())
	log.Info().
		Str("key", key).
		Int("entries", len(snap.Entries)).
		Dur("took", time.Since(start)).
		Msg("Leaderboard recomputed")

	return snap, nil
}

// Snapshot returns the current snapshot of periodType. When none has been
// computed yet an empty snapshot is returned.
func (s *LeaderboardService) Snapshot(ctx context.Context, periodType model.PeriodType) (*model.LeaderboardSnapshot, error) {
	key, period, err := PeriodKey(periodType, s.calendar.Now(), s.calendar.Location())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
		} else if ok {
			return snap, nil
		}
	}

	snap, err := s.snapshots.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return &model.LeaderboardSnapshot{
				Key:     key,
				Type:    periodType,
				Period:  period,
				Entries: []model.LeaderboardEntry{},
			}, nil
		}
		return nil, err
	}
	return snap, nil
}
