// Package main is the entry point for the bingo ledger server.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/api"
	"bingo-ledger/internal/auth"
	"bingo-ledger/internal/bot"
	"bingo-ledger/internal/cache"
	"bingo-ledger/internal/config"
	"bingo-ledger/internal/jobs"
	"bingo-ledger/internal/payment"
	"bingo-ledger/internal/pkg/db"
	"bingo-ledger/internal/pkg/lock"
	"bingo-ledger/internal/repository"
	"bingo-ledger/internal/service"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(&cfg.Log)
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Values were validated by config.Load.
	loc, _ := cfg.Rewards.Location()
	calendar := service.NewCalendar(loc, time.Now)
	defaults := service.WalletDefaults{
		Currency:           cfg.Wallet.Currency,
		DailyTransferLimit: decimal.RequireFromString(cfg.Wallet.DailyTransferLimit),
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(dbPool)
	walletRepo := repository.NewWalletRepository(dbPool)
	txRepo := repository.NewTransactionRepository(dbPool)
	freePlayRepo := repository.NewFreePlayRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)
	snapshotRepo := repository.NewLeaderboardRepository(dbPool)

	accountLock := lock.NewAccountLock()

	// Optional leaderboard cache
	var snapshotCache service.SnapshotCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		snapshotCache = cache.NewSnapshotCache(rdb, cfg.Redis.TTL)
	}

	provider := payment.NewChapaClient(payment.ChapaConfig{
		BaseURL:   cfg.Payment.BaseURL,
		SecretKey: cfg.Payment.SecretKey,
		Timeout:   cfg.Payment.Timeout,
	})
	if cfg.Payment.SecretKey == "" {
		log.Warn().Msg("payment.secret_key is empty; deposits will fail with provider unavailable")
	}

	// Initialize services
	accountService := service.NewAccountService(accountRepo, walletRepo, txRepo, defaults).
		WithAdmins(service.ConfiguredAdmins(cfg.Admin.TelegramIDs, cfg.Admin.AccountIDs)...)
	if err := accountService.PromoteConfiguredAdmins(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to promote configured administrators")
	}
	transferService := service.NewTransferService(dbPool, accountRepo, walletRepo, txRepo, accountLock, calendar, defaults)
	rewardService := service.NewRewardService(dbPool, accountRepo, txRepo, freePlayRepo, accountLock, calendar, service.RewardConfig{
		DailyBonus:     decimal.RequireFromString(cfg.Rewards.DailyBonus),
		StreakLength:   cfg.Rewards.StreakLength,
		FreeGamePoints: cfg.Rewards.FreeGamePoints,
	})
	paymentService := service.NewPaymentService(dbPool, accountRepo, txRepo, provider, accountLock, service.PaymentConfig{
		MinDeposit:  decimal.RequireFromString(cfg.Payment.MinDeposit),
		Currency:    cfg.Payment.Currency,
		CallbackURL: strings.TrimRight(cfg.Payment.CallbackBaseURL, "/") + "/api/payment-callback",
		ReturnURL:   cfg.Payment.ReturnURL,
	})
	leaderboardService := service.NewLeaderboardService(accountRepo, statsRepo, snapshotRepo, snapshotCache, calendar)

	// Scheduled leaderboard recompute
	scheduler, err := jobs.NewScheduler(cfg.Leaderboard.Schedule, leaderboardService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create leaderboard scheduler")
	}
	scheduler.Start()
	go scheduler.RunOnce(ctx)

	// HTTP API
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("auth.jwt_secret is required")
	}
	server := api.New(&cfg.Server, verifier, api.Services{
		Accounts:    accountService,
		Transfers:   transferService,
		Rewards:     rewardService,
		Payments:    paymentService,
		Leaderboard: leaderboardService,
		Health:      dbPool,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Optional Telegram bot
	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:      &cfg.Bot,
			Currency:    cfg.Wallet.Currency,
			Accounts:    accountService,
			Admins:      accountService,
			Transfers:   transferService,
			Rewards:     rewardService,
			Payments:    paymentService,
			Leaderboard: leaderboardService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go telegramBot.Start()
	} else {
		log.Info().Msg("bot.token is empty; Telegram bot disabled")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if telegramBot != nil {
		telegramBot.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	scheduler.Stop(shutdownCtx)

	log.Info().Msg("Server stopped gracefully")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
