// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/config"
	"bingo-ledger/internal/handler"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.BotConfig

	accountHandler  *handler.AccountHandler
	transferHandler *handler.TransferHandler
	paymentHandler  *handler.PaymentHandler
	rankingHandler  *handler.RankingHandler
	adminHandler    *handler.AdminHandler
	admins          AdminLookup
	privateUsers    *privateUsers
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.BotConfig
	Currency    string
	Accounts    handler.Accounts
	Admins      AdminLookup
	Transfers   handler.Transfers
	Rewards     handler.Rewards
	Payments    handler.Payments
	Leaderboard handler.Leaderboard
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Bot handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:             teleBot,
		cfg:             deps.Config,
		accountHandler:  handler.NewAccountHandler(deps.Accounts, deps.Rewards, deps.Currency),
		transferHandler: handler.NewTransferHandler(deps.Accounts, deps.Transfers, deps.Currency),
		paymentHandler:  handler.NewPaymentHandler(deps.Accounts, deps.Payments, deps.Currency),
		rankingHandler:  handler.NewRankingHandler(deps.Leaderboard),
		adminHandler:    handler.NewAdminHandler(deps.Leaderboard, deps.Payments),
		admins:          deps.Admins,
		privateUsers:    newPrivateUsers(),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.privateUsers))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/wallet", b.accountHandler.HandleWallet)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)

	b.bot.Handle("/pay", b.transferHandler.HandlePay)

	b.bot.Handle("/deposit", b.paymentHandler.HandleDeposit)
	b.bot.Handle("/withdraw", b.paymentHandler.HandleWithdraw)

	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.admins))
	adminGroup.Handle("/recompute", b.adminHandler.HandleRecompute)
	adminGroup.Handle("/pending", b.adminHandler.HandlePending)
	adminGroup.Handle("/approve", b.adminHandler.HandleApprove)
	adminGroup.Handle("/reject", b.adminHandler.HandleReject)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
