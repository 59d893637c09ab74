package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/service"
)

func TestPayTarget(t *testing.T) {
	bob := &tele.User{ID: 2, Username: "bob"}
	carol := &tele.User{ID: 3, FirstName: "Carol"}

	tests := []struct {
		name       string
		msg        *tele.Message
		args       []string
		wantUser   *tele.User
		wantAmount string
		wantOK     bool
	}{
		{
			name:       "reply",
			msg:        &tele.Message{ReplyTo: &tele.Message{Sender: bob}},
			args:       []string{"12.5"},
			wantUser:   bob,
			wantAmount: "12.5",
			wantOK:     true,
		},
		{
			name:       "text mention",
			msg:        &tele.Message{Entities: tele.Entities{{Type: tele.EntityTMention, User: carol}}},
			args:       []string{"Carol", "3"},
			wantUser:   carol,
			wantAmount: "3",
			wantOK:     true,
		},
		{
			name:       "mention with resolved user",
			msg:        &tele.Message{Entities: tele.Entities{{Type: tele.EntityMention, User: bob}}},
			args:       []string{"@bob", "7"},
			wantUser:   bob,
			wantAmount: "7",
			wantOK:     true,
		},
		{
			name:   "unresolvable mention",
			msg:    &tele.Message{Entities: tele.Entities{{Type: tele.EntityMention}}},
			args:   []string{"@bob", "7"},
			wantOK: false,
		},
		{
			name:   "reply without amount",
			msg:    &tele.Message{ReplyTo: &tele.Message{Sender: bob}},
			args:   nil,
			wantOK: false,
		},
		{
			name:   "no message",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, amount, ok := payTarget(tt.msg, tt.args)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantUser, user)
				assert.Equal(t, tt.wantAmount, amount)
			}
		})
	}
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, "❌ Insufficient balance", failureText(service.ErrInsufficientFunds))
	assert.Equal(t, "❌ Daily transfer limit reached", failureText(fmt.Errorf("wrap: %w", service.ErrLimitExceeded)))
	assert.Equal(t, "❌ Permission denied", failureText(service.ErrPermissionDenied))
	assert.Contains(t, failureText(fmt.Errorf("recipient: %w", service.ErrNotFound)), "/start")
	assert.Contains(t, failureText(service.ErrProviderUnavailable), "unavailable")
	assert.Equal(t, "❌ cannot transfer to self", failureText(fmt.Errorf("%w: %s", service.ErrInvalidInput, "cannot transfer to self")))
	assert.Equal(t, "❌ Operation failed, please try again later", failureText(errors.New("boom")))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "abebe", displayName(&tele.User{Username: "abebe", FirstName: "Abebe"}))
	assert.Equal(t, "Abebe Kebede", displayName(&tele.User{FirstName: "Abebe", LastName: "Kebede"}))
	assert.Equal(t, "Abebe", displayName(&tele.User{FirstName: "Abebe"}))
}

func TestPayerFor(t *testing.T) {
	p := payerFor(&tele.User{Username: "abebe", LastName: "K"}, "a@b.co")
	assert.Equal(t, model.PayerInfo{Email: "a@b.co", FirstName: "abebe", LastName: "K"}, p)
}

func TestPeriodArg(t *testing.T) {
	assert.Equal(t, model.PeriodGlobal, periodArg(nil))
	assert.Equal(t, model.PeriodWeekly, periodArg([]string{"Weekly"}))
	assert.Equal(t, model.PeriodType("daily"), periodArg([]string{"daily"}))
}

func TestFormatLeaderboard(t *testing.T) {
	snap := &model.LeaderboardSnapshot{Type: model.PeriodWeekly, Period: "2024-W10"}
	assert.Equal(t, "🏆 Weekly leaderboard (2024-W10)\n📊 No rankings yet", formatLeaderboard(snap, 10))

	for i := 1; i <= 12; i++ {
		snap.Entries = append(snap.Entries, model.LeaderboardEntry{
			AccountID: fmt.Sprintf("tg:%d", i),
			Score:     int64(1000 - i),
			Rank:      i,
		})
	}
	snap.Entries[0].DisplayName = "alice"

	out := formatLeaderboard(snap, 10)
	assert.Contains(t, out, "🥇 alice: 999")
	assert.Contains(t, out, "🥈 tg:2: 998")
	assert.Contains(t, out, "10. tg:10: 990")
	assert.NotContains(t, out, "tg:11")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "📜 No transactions yet", formatHistory(nil))

	at := time.Date(2024, 3, 8, 9, 30, 0, 0, time.UTC)
	out := formatHistory([]*model.Transaction{
		{Kind: model.KindDeposit, Amount: decimal.NewFromInt(50), Status: model.StatusCompleted, CreatedAt: at},
		{Kind: model.KindWithdrawal, Amount: decimal.NewFromInt(-20), Status: model.StatusPending, CreatedAt: at},
	})
	lines := strings.Split(out, "\n")
	assert.Equal(t, "03-08 09:30 +50.00 deposit (completed)", lines[2])
	assert.Equal(t, "03-08 09:30 -20.00 withdrawal (pending)", lines[3])
}

func TestFormatWallet(t *testing.T) {
	acc := &model.Account{DisplayName: "alice", Balance: decimal.RequireFromString("12.5"), DailyStreak: 2, FreeGamePoints: 30}
	w := &model.Wallet{Currency: "ETB", DailyTransferLimit: decimal.NewFromInt(1000), DailyTransferUsed: decimal.NewFromInt(40), IsLocked: true}

	out := formatWallet(acc, w)
	assert.Contains(t, out, "Balance: 12.50 ETB")
	assert.Contains(t, out, "Transferred today: 40.00 / 1000.00")
	assert.Contains(t, out, "Daily streak: 2")
	assert.Contains(t, out, "Free game points: 30")
	assert.Contains(t, out, "Status: locked")
}

func TestFormatPending(t *testing.T) {
	assert.Equal(t, "✅ No pending withdrawals", formatPending(nil))

	at := time.Date(2024, 3, 8, 9, 30, 0, 0, time.UTC)
	out := formatPending([]*model.Transaction{
		{ID: "7f1c", AccountID: "tg:5", Amount: decimal.NewFromInt(-60), CreatedAt: at},
	})
	assert.Contains(t, out, "2024-03-08 09:30  tg:5  60.00\n7f1c")
	assert.Contains(t, out, "/approve <id>")
}

type replyContext struct {
	tele.Context
	sender  *tele.User
	replies []string
}

func (r *replyContext) Sender() *tele.User { return r.sender }

func (r *replyContext) Reply(what interface{}, _ ...interface{}) error {
	r.replies = append(r.replies, what.(string))
	return nil
}

type pendingPayments struct {
	Payments
	admin   string
	pending []*model.Transaction
}

func (p *pendingPayments) PendingWithdrawals(_ context.Context, adminID string, _ int) ([]*model.Transaction, error) {
	if adminID != p.admin {
		return nil, service.ErrPermissionDenied
	}
	return p.pending, nil
}

func TestHandlePending(t *testing.T) {
	payments := &pendingPayments{
		admin:   "tg:1",
		pending: []*model.Transaction{{ID: "wd-1", AccountID: "tg:9", Amount: decimal.NewFromInt(-5)}},
	}
	h := NewAdminHandler(nil, payments)

	c := &replyContext{sender: &tele.User{ID: 2}}
	assert.NoError(t, h.HandlePending(c))
	assert.Equal(t, []string{"❌ Permission denied"}, c.replies)

	c = &replyContext{sender: &tele.User{ID: 1}}
	assert.NoError(t, h.HandlePending(c))
	if assert.Len(t, c.replies, 1) {
		assert.Contains(t, c.replies[0], "wd-1")
	}
}
