package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/service"
)

// PaymentHandler handles deposit and withdrawal commands.
type PaymentHandler struct {
	accounts Accounts
	payments Payments
	currency string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(accounts Accounts, payments Payments, currency string) *PaymentHandler {
	return &PaymentHandler{
		accounts: accounts,
		payments: payments,
		currency: currency,
	}
}

// HandleDeposit handles the /deposit command.
// Format: /deposit <amount> <email>
func (h *PaymentHandler) HandleDeposit(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /deposit <amount> <email>")
	}
	amount, err := service.ParseAmount(args[0])
	if err != nil {
		return c.Reply(failureText(err))
	}

	acc, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}

	intent, err := h.payments.InitiateDeposit(ctx, acc.ID, amount, payerFor(sender, args[1]))
	if err != nil {
		return c.Reply(failureText(err))
	}

	return c.Reply(fmt.Sprintf(
		"💳 Deposit of %s created.\n\nComplete the payment here:\n%s\n\nReference: %s",
		money(amount, h.currency), intent.CheckoutURL, intent.Reference,
	))
}

func payerFor(u *tele.User, email string) model.PayerInfo {
	first := u.FirstName
	if first == "" {
		first = u.Username
	}
	return model.PayerInfo{
		Email:     email,
		FirstName: first,
		LastName:  u.LastName,
	}
}

// HandleWithdraw handles the /withdraw command.
// Format: /withdraw <amount>
func (h *PaymentHandler) HandleWithdraw(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /withdraw <amount>")
	}
	amount, err := service.ParseAmount(args[0])
	if err != nil {
		return c.Reply(failureText(err))
	}

	acc, err := ensureSender(ctx, h.accounts, sender)
	if err != nil {
		return c.Reply(failureText(err))
	}

	tx, err := h.payments.InitiateWithdrawal(ctx, acc.ID, amount)
	if err != nil {
		return c.Reply(failureText(err))
	}

	return c.Reply(fmt.Sprintf(
		"🏧 Withdrawal of %s requested.\nIt will be paid out after review.\n\nID: %s",
		money(amount, h.currency), tx.ID,
	))
}
