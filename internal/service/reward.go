package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/metrics"
	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
	"bingo-ledger/internal/pkg/lock"
	"bingo-ledger/internal/repository"
)

// RewardConfig holds the reward amounts.
type RewardConfig struct {
	DailyBonus     decimal.Decimal
	StreakLength   int
	FreeGamePoints int64
}

// ClaimState is the streak part of an account.
type ClaimState struct {
	Streak        int
	LastClaimDate *time.Time
}

// ClaimOutcome is the result of applying one claim to a ClaimState.
type ClaimOutcome struct {
	Next        ClaimState
	RewardGiven bool
	// Changed is false when the account already claimed today.
	Changed bool
}

// NextClaim computes the state after a claim on today. A claim on the day
// after the last claim extends the streak, any other day restarts it at 1.
// Reaching streakLength grants the bonus and resets the streak to 0.
func NextClaim(state ClaimState, today time.Time, streakLength int) ClaimOutcome {
	if sameDate(state.LastClaimDate, today) {
		return ClaimOutcome{Next: state}
	}

	streak := 1
	if sameDate(state.LastClaimDate, today.AddDate(0, 0, -1)) {
		streak = state.Streak + 1
	}

	claimed := today
	out := ClaimOutcome{Changed: true}
	if streak >= streakLength {
		out.RewardGiven = true
		streak = 0
	}
	out.Next = ClaimState{Streak: streak, LastClaimDate: &claimed}
	return out
}

// DailyClaim is returned by ClaimDailyReward.
type DailyClaim struct {
	Streak        int             `json:"streak"`
	LastClaimDate string          `json:"last_claim_date"`
	RewardGiven   bool            `json:"reward_given"`
	Bonus         decimal.Decimal `json:"bonus"`
	Balance       decimal.Decimal `json:"balance"`
}

// RewardService grants daily streak bonuses and free-play points.
type RewardService struct {
	txb          db.TxBeginner
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
	freePlays    *repository.FreePlayRepository
	locks        *lock.AccountLock
	calendar     *Calendar
	cfg          RewardConfig
}

// NewRewardService creates a new RewardService instance.
func NewRewardService(
	txb db.TxBeginner,
	accounts *repository.AccountRepository,
	transactions *repository.TransactionRepository,
	freePlays *repository.FreePlayRepository,
	locks *lock.AccountLock,
	calendar *Calendar,
	cfg RewardConfig,
) *RewardService {
	if cfg.StreakLength < 1 {
		cfg.StreakLength = 1
	}
	return &RewardService{
		txb:          txb,
		accounts:     accounts,
		transactions: transactions,
		freePlays:    freePlays,
		locks:        locks,
		calendar:     calendar,
		cfg:          cfg,
	}
}

// ClaimDailyReward records today's claim. Repeating it on the same calendar
// day returns the stored state without mutation.
func (s *RewardService) ClaimDailyReward(ctx context.Context, accountID string) (*DailyClaim, error) {
	today := s.calendar.Today()

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	var claim DailyClaim
	err := db.WithTx(ctx, s.txb, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		acc, err := accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return notFound(err, "account")
		}

		out := NextClaim(ClaimState{Streak: acc.DailyStreak, LastClaimDate: acc.LastDailyClaimDate}, today, s.cfg.StreakLength)
		claim = DailyClaim{
			Streak:      out.Next.Streak,
			RewardGiven: out.RewardGiven,
			Bonus:       decimal.Zero,
			Balance:     acc.Balance,
		}
		if out.Next.LastClaimDate != nil {
			claim.LastClaimDate = formatDate(*out.Next.LastClaimDate)
		}
		if !out.Changed {
			return nil
		}

		bonus := decimal.Zero
		if out.RewardGiven {
			bonus = s.cfg.DailyBonus
		}
		updated, err := accounts.UpdateDailyClaim(ctx, accountID, out.Next.Streak, today, bonus)
		if err != nil {
			return err
		}
		claim.Balance = updated.Balance

		if out.RewardGiven {
			claim.Bonus = bonus
			_, err := s.transactions.WithTx(tx).Create(ctx, &model.Transaction{
				ID:          uuid.NewString(),
				AccountID:   accountID,
				Kind:        model.KindBonus,
				Amount:      bonus,
				Status:      model.StatusCompleted,
				Description: fmt.Sprintf("Daily streak bonus (%s)", formatDate(today)),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDailyClaim(claim.RewardGiven)
	if claim.RewardGiven {
		log.Info().
			Str("account_id", accountID).
			Str("bonus", claim.Bonus.StringFixed(2)).
			Msg("Daily streak bonus granted")
	}

	return &claim, nil
}

// AwardFreeGamePoints adds the free-play points for one play session and
// returns the new total. A session token that was already used returns the
// current total without granting again.
func (s *RewardService) AwardFreeGamePoints(ctx context.Context, accountID, sessionToken string) (int64, bool, error) {
	if sessionToken == "" {
		return 0, false, invalidInput("play session token is required")
	}
	if len(sessionToken) > 128 {
		return 0, false, invalidInput("play session token is too long")
	}

	var (
		total   int64
		granted bool
	)
	err := db.WithTx(ctx, s.txb, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		acc, err := accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return notFound(err, "account")
		}

		granted, err = s.freePlays.WithTx(tx).Record(ctx, sessionToken, accountID, s.cfg.FreeGamePoints)
		if err != nil {
			return err
		}
		if !granted {
			total = acc.FreeGamePoints
			return nil
		}

		updated, err := accounts.AddFreeGamePoints(ctx, accountID, s.cfg.FreeGamePoints)
		if err != nil {
			return err
		}
		total = updated.FreeGamePoints
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	metrics.RecordFreeGameAward(granted)
	return total, granted, nil
}
