package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/service"
)

const payUsage = "❌ Usage: reply to a player's message with /pay <amount>\nor: /pay @player <amount>"

// TransferHandler handles the /pay command.
type TransferHandler struct {
	accounts  Accounts
	transfers Transfers
	currency  string
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(accounts Accounts, transfers Transfers, currency string) *TransferHandler {
	return &TransferHandler{
		accounts:  accounts,
		transfers: transfers,
		currency:  currency,
	}
}

// payTarget resolves the recipient and the raw amount of a /pay command.
// The recipient is the author of the replied-to message, or a user
// mentioned by a text mention (which carries the user id).
func payTarget(msg *tele.Message, args []string) (*tele.User, string, bool) {
	if msg == nil {
		return nil, "", false
	}

	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && len(args) == 1 {
		return msg.ReplyTo.Sender, args[0], true
	}

	if len(args) == 2 {
		name := strings.TrimPrefix(args[0], "@")
		for _, entity := range msg.Entities {
			if entity.User == nil {
				continue
			}
			if entity.Type == tele.EntityTMention || entity.User.Username == name {
				return entity.User, args[1], true
			}
		}
	}
	return nil, "", false
}

// HandlePay handles the /pay command.
func (h *TransferHandler) HandlePay(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target, rawAmount, ok := payTarget(c.Message(), c.Args())
	if !ok {
		return c.Reply(payUsage)
	}
	if target.IsBot {
		return c.Reply("❌ Cannot send funds to a bot")
	}

	amount, err := service.ParseAmount(rawAmount)
	if err != nil {
		return c.Reply(failureText(err))
	}

	acc, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}

	receipt, err := h.transfers.Transfer(ctx, acc.ID, service.TelegramAccountID(target.ID), amount)
	if err != nil {
		return c.Reply(failureText(err))
	}

	return c.Reply(fmt.Sprintf(
		"✅ Transfer complete!\n\n"+
			"💸 Sent %s to %s\n"+
			"💰 Balance: %s",
		money(amount, h.currency), displayName(target), money(receipt.SenderBalance, h.currency),
	))
}
