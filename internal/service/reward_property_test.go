package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func dateGen() *rapid.Generator[time.Time] {
	return rapid.Custom(func(t *rapid.T) time.Time {
		days := rapid.IntRange(0, 3650).Draw(t, "days")
		return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	})
}

func claimStateGen(today time.Time) *rapid.Generator[ClaimState] {
	return rapid.Custom(func(t *rapid.T) ClaimState {
		streak := rapid.IntRange(0, 2).Draw(t, "streak")
		if rapid.Bool().Draw(t, "neverClaimed") {
			return ClaimState{Streak: streak}
		}
		last := today.AddDate(0, 0, -rapid.IntRange(0, 10).Draw(t, "daysAgo"))
		return ClaimState{Streak: streak, LastClaimDate: &last}
	})
}

// TestNextClaimSameDayIdempotentProperty: claiming again on the day of the
// last claim returns the same state and changes nothing.
func TestNextClaimSameDayIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		today := dateGen().Draw(t, "today")
		state := claimStateGen(today).Draw(t, "state")

		first := NextClaim(state, today, 3)
		second := NextClaim(first.Next, today, 3)

		if second.Changed || second.RewardGiven {
			t.Fatalf("second claim on %s changed state: %+v", today, second)
		}
		if second.Next.Streak != first.Next.Streak {
			t.Fatalf("streak moved from %d to %d", first.Next.Streak, second.Next.Streak)
		}
	})
}

// TestNextClaimStreakRulesProperty checks the streak transition table.
func TestNextClaimStreakRulesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		today := dateGen().Draw(t, "today")
		state := claimStateGen(today).Draw(t, "state")
		streakLength := rapid.IntRange(1, 7).Draw(t, "streakLength")

		out := NextClaim(state, today, streakLength)

		if sameDate(state.LastClaimDate, today) {
			if out.Changed {
				t.Fatal("same-day claim must not change state")
			}
			return
		}

		expected := 1
		if sameDate(state.LastClaimDate, today.AddDate(0, 0, -1)) {
			expected = state.Streak + 1
		}
		if expected >= streakLength {
			if !out.RewardGiven || out.Next.Streak != 0 {
				t.Fatalf("expected reward and reset at streak %d, got %+v", expected, out)
			}
		} else if out.RewardGiven || out.Next.Streak != expected {
			t.Fatalf("expected streak %d without reward, got %+v", expected, out)
		}
		if out.Next.LastClaimDate == nil || !out.Next.LastClaimDate.Equal(today) {
			t.Fatal("claim date must be today")
		}
	})
}

func TestNextClaim_ThreeConsecutiveDays(t *testing.T) {
	day1 := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	state := ClaimState{}

	out := NextClaim(state, day1, 3)
	assert.Equal(t, 1, out.Next.Streak)
	assert.False(t, out.RewardGiven)

	out = NextClaim(out.Next, day1.AddDate(0, 0, 1), 3)
	assert.Equal(t, 2, out.Next.Streak)
	assert.False(t, out.RewardGiven)

	out = NextClaim(out.Next, day1.AddDate(0, 0, 2), 3)
	assert.Equal(t, 0, out.Next.Streak)
	assert.True(t, out.RewardGiven)

	// Skipping a day restarts the streak.
	out = NextClaim(out.Next, day1.AddDate(0, 0, 4), 3)
	assert.Equal(t, 1, out.Next.Streak)
	assert.False(t, out.RewardGiven)
}

func TestDateOf_UsesServerZone(t *testing.T) {
	addis, err := time.LoadLocation("Africa/Addis_Ababa")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 22:30 UTC is already the next day in UTC+3.
	instant := time.Date(2024, 3, 10, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-10", DateOf(instant, time.UTC).Format(time.DateOnly))
	assert.Equal(t, "2024-03-11", DateOf(instant, addis).Format(time.DateOnly))

	cal := NewCalendar(addis, func() time.Time { return instant })
	assert.Equal(t, "2024-03-11", cal.Today().Format(time.DateOnly))
}
