// Package api exposes the ledger over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/auth"
	"bingo-ledger/internal/config"
	"bingo-ledger/internal/model"
	"bingo-ledger/internal/service"
)

// AccountService is the account surface used by the API.
type AccountService interface {
	EnsureAccount(ctx context.Context, accountID, displayName string, telegramID *int64) (*model.Account, bool, error)
	GetWallet(ctx context.Context, accountID string) (*model.Wallet, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]*model.Transaction, error)
	SetWalletLocked(ctx context.Context, adminID, accountID string, locked bool) (*model.Wallet, error)
}

// TransferService moves funds between accounts.
type TransferService interface {
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*service.TransferReceipt, error)
}

// RewardService grants daily and free-play rewards.
type RewardService interface {
	ClaimDailyReward(ctx context.Context, accountID string) (*service.DailyClaim, error)
	AwardFreeGamePoints(ctx context.Context, accountID, sessionToken string) (int64, bool, error)
}

// PaymentService handles deposits and withdrawals.
type PaymentService interface {
	InitiateDeposit(ctx context.Context, accountID string, amount decimal.Decimal, payer model.PayerInfo) (*service.DepositIntent, error)
	VerifyAndSettle(ctx context.Context, reference string) (*service.Settlement, error)
	VerifyAndSettleFor(ctx context.Context, accountID, reference string) (*service.Settlement, error)
	InitiateWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal) (*model.Transaction, error)
	SettleWithdrawal(ctx context.Context, adminID, transactionID string, approve bool) (*model.Transaction, error)
	PendingWithdrawals(ctx context.Context, adminID string, limit int) ([]*model.Transaction, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]*model.Transaction, error)
}

// LeaderboardService reads and rebuilds leaderboard snapshots.
type LeaderboardService interface {
	Snapshot(ctx context.Context, periodType model.PeriodType) (*model.LeaderboardSnapshot, error)
	Recompute(ctx context.Context, callerID string, periodType model.PeriodType) (*model.LeaderboardSnapshot, error)
}

// HealthChecker reports storage liveness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services bundles the API's dependencies.
type Services struct {
	Accounts    AccountService
	Transfers   TransferService
	Rewards     RewardService
	Payments    PaymentService
	Leaderboard LeaderboardService
	Health      HealthChecker
}

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	svc        Services
}

// New builds the router and registers all routes.
func New(cfg *config.ServerConfig, verifier *auth.Verifier, svc Services) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(), MetricsMiddleware())

	s := &Server{router: router, svc: svc}

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The provider calls back without a bearer token; the reference is
	// re-verified with the provider before anything is settled.
	router.GET("/api/payment-callback", s.paymentCallback)
	router.POST("/api/payment-callback", s.paymentCallback)

	limit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	api := router.Group("/api")
	api.Use(auth.Middleware(verifier))
	{
		api.GET("/me", s.me)
		api.GET("/wallet", s.wallet)
		api.GET("/wallet/history", s.history)
		api.POST("/wallet/transfer", limit, s.transfer)
		api.POST("/wallet/deposit", limit, s.deposit)
		api.POST("/wallet/withdraw", limit, s.withdraw)

		api.GET("/payment/history", s.paymentHistory)
		api.POST("/payment/verify-and-update", limit, s.verifyAndUpdate)
		api.GET("/payment/verify/:ref", limit, s.verifyByPath)

		api.POST("/rewards/daily", limit, s.claimDaily)
		api.POST("/rewards/free-game", limit, s.freeGame)

		api.GET("/leaderboard/:type", s.leaderboard)

		admin := api.Group("/admin")
		admin.Use(limit)
		{
			admin.POST("/leaderboard/:type/recompute", s.recompute)
			admin.GET("/withdrawals/pending", s.pendingWithdrawals)
			admin.POST("/withdrawals/:id/approve", s.settleWithdrawal(true))
			admin.POST("/withdrawals/:id/reject", s.settleWithdrawal(false))
			admin.POST("/wallets/:id/lock", s.setWalletLocked(true))
			admin.POST("/wallets/:id/unlock", s.setWalletLocked(false))
		}
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Health.HealthCheck(ctx); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
