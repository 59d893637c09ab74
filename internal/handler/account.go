package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/model"
)

const historyPageSize = 10

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accounts Accounts
	rewards  Rewards
	currency string
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts Accounts, rewards Rewards, currency string) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		rewards:  rewards,
		currency: currency,
	}
}

// HandleStart handles the /start command.
// Creates the account and its wallet on first use.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, created, err := ensureSenderCreated(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome %s!\n\n"+
				"Your wallet is ready. Balance: %s\n\n"+
				"Commands:\n"+
				"/balance - show balance\n"+
				"/wallet - wallet details\n"+
				"/daily - daily check-in\n"+
				"/pay <amount> - reply to a player to send funds\n"+
				"/deposit <amount> <email> - top up\n"+
				"/withdraw <amount> - request a withdrawal\n"+
				"/history - recent transactions\n"+
				"/top [global|weekly|monthly] - leaderboard",
			acc.DisplayName, money(acc.Balance, h.currency),
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back %s!\n\nBalance: %s", acc.DisplayName, money(acc.Balance, h.currency)))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := ensureSender(context.Background(), h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}
	return c.Reply(fmt.Sprintf("💰 Balance: %s", money(acc.Balance, h.currency)))
}

// HandleWallet handles the /wallet command.
func (h *AccountHandler) HandleWallet(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}
	w, err := h.accounts.GetWallet(ctx, acc.ID)
	if err != nil {
		return c.Reply(failureText(err))
	}
	return c.Reply(formatWallet(acc, w))
}

func formatWallet(acc *model.Account, w *model.Wallet) string {
	status := "active"
	if w.IsLocked {
		status = "locked"
	}
	return fmt.Sprintf(
		"📊 Wallet\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👤 %s\n"+
			"💰 Balance: %s\n"+
			"🔁 Transferred today: %s / %s\n"+
			"🔥 Daily streak: %d\n"+
			"🎟 Free game points: %d\n"+
			"🔒 Status: %s\n"+
			"━━━━━━━━━━━━━━━",
		acc.DisplayName,
		money(acc.Balance, w.Currency),
		w.DailyTransferUsed.StringFixed(2), w.DailyTransferLimit.StringFixed(2),
		acc.DailyStreak,
		acc.FreeGamePoints,
		status,
	)
}

// HandleDaily handles the /daily command.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}

	claim, err := h.rewards.ClaimDailyReward(ctx, acc.ID)
	if err != nil {
		return c.Reply(failureText(err))
	}

	if claim.RewardGiven {
		return c.Reply(fmt.Sprintf("🎁 Streak complete! Bonus %s credited.\n💰 Balance: %s",
			money(claim.Bonus, h.currency), money(claim.Balance, h.currency)))
	}
	return c.Reply(fmt.Sprintf("✅ Checked in for %s. Streak: %d", claim.LastClaimDate, claim.Streak))
}

// HandleHistory handles the /history command.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acc, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}
	txs, err := h.accounts.History(ctx, acc.ID, historyPageSize, 0)
	if err != nil {
		return c.Reply(failureText(err))
	}
	return c.Reply(formatHistory(txs))
}

func formatHistory(txs []*model.Transaction) string {
	if len(txs) == 0 {
		return "📜 No transactions yet"
	}

	var b strings.Builder
	b.WriteString("📜 Recent transactions\n━━━━━━━━━━━━━━━\n")
	for _, tx := range txs {
		sign := ""
		if tx.Amount.IsPositive() {
			sign = "+"
		}
		fmt.Fprintf(&b, "%s %s%s %s (%s)\n",
			tx.CreatedAt.Format("01-02 15:04"), sign, tx.Amount.StringFixed(2), tx.Kind, tx.Status)
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}
