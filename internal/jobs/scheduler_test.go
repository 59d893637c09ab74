package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingo-ledger/internal/model"
)

type fakeRecomputer struct {
	mu    sync.Mutex
	calls []model.PeriodType
	fail  model.PeriodType
}

func (f *fakeRecomputer) RecomputeScheduled(_ context.Context, pt model.PeriodType) (*model.LeaderboardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pt)
	if pt == f.fail {
		return nil, errors.New("boom")
	}
	return &model.LeaderboardSnapshot{Key: string(pt), Type: pt}, nil
}

func (f *fakeRecomputer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce_AllTypes(t *testing.T) {
	rec := &fakeRecomputer{fail: model.PeriodWeekly}
	s, err := NewScheduler("@every 1h", rec)
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, []model.PeriodType{model.PeriodGlobal, model.PeriodWeekly, model.PeriodMonthly}, rec.calls)
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler("every tuesday", &fakeRecomputer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid leaderboard schedule")
}

func TestScheduler_StartStop(t *testing.T) {
	rec := &fakeRecomputer{}
	s, err := NewScheduler("@every 1s", rec)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return rec.count() >= 3 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
}
