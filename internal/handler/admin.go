package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/service"
)

// AdminHandler handles admin-only commands. The bot's admin middleware
// gates these; the services re-check the capability.
type AdminHandler struct {
	leaderboard Leaderboard
	payments    Payments
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(leaderboard Leaderboard, payments Payments) *AdminHandler {
	return &AdminHandler{
		leaderboard: leaderboard,
		payments:    payments,
	}
}

// HandleRecompute handles the /recompute command.
// Format: /recompute [global|weekly|monthly]
func (h *AdminHandler) HandleRecompute(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	snap, err := h.leaderboard.Recompute(context.Background(), service.TelegramAccountID(sender.ID), periodArg(c.Args()))
	if err != nil {
		return c.Reply(failureText(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("key", snap.Key).
		Str("operation", "recompute").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Leaderboard %s recomputed: %d entries", snap.Key, len(snap.Entries)))
}

// pendingListLimit caps the /pending listing.
const pendingListLimit = 20

// HandlePending handles the /pending command, listing withdrawals that
// await /approve or /reject.
func (h *AdminHandler) HandlePending(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	txs, err := h.payments.PendingWithdrawals(context.Background(), service.TelegramAccountID(sender.ID), pendingListLimit)
	if err != nil {
		return c.Reply(failureText(err))
	}
	return c.Reply(formatPending(txs))
}

func formatPending(txs []*model.Transaction) string {
	if len(txs) == 0 {
		return "✅ No pending withdrawals"
	}

	var sb strings.Builder
	sb.WriteString("⏳ Pending withdrawals\n")
	for _, tx := range txs {
		sb.WriteString(fmt.Sprintf("\n%s  %s  %s\n%s",
			tx.CreatedAt.Format("2006-01-02 15:04"),
			tx.AccountID,
			tx.Amount.Abs().StringFixed(2),
			tx.ID,
		))
	}
	sb.WriteString("\n\nUse /approve <id> or /reject <id>")
	return sb.String()
}

// HandleApprove handles the /approve command.
// Format: /approve <withdrawal_id>
func (h *AdminHandler) HandleApprove(c tele.Context) error {
	return h.settle(c, true)
}

// HandleReject handles the /reject command.
// Format: /reject <withdrawal_id>
func (h *AdminHandler) HandleReject(c tele.Context) error {
	return h.settle(c, false)
}

func (h *AdminHandler) settle(c tele.Context, approve bool) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /approve <withdrawal_id> or /reject <withdrawal_id>")
	}

	tx, err := h.payments.SettleWithdrawal(context.Background(), service.TelegramAccountID(sender.ID), args[0], approve)
	if err != nil {
		return c.Reply(failureText(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Str("transaction_id", tx.ID).
		Str("status", string(tx.Status)).
		Str("operation", "settle_withdrawal").
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Withdrawal %s is now %s", tx.ID, tx.Status))
}
