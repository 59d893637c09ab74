package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/auth"
	"bingo-ledger/internal/model"
)

type transferRequest struct {
	To     string          `json:"to_account_id" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type depositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
}

type withdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type referenceRequest struct {
	TxRef  string `json:"tx_ref"`
	TrxRef string `json:"trx_ref"`
}

func (r referenceRequest) ref() string {
	if r.TxRef != "" {
		return r.TxRef
	}
	return r.TrxRef
}

type freeGameRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// caller returns the authenticated account id. auth.Middleware guarantees
// it on /api routes.
func caller(c *gin.Context) string {
	id, _ := auth.AccountID(c)
	return id
}

func pageParams(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "invalid limit")
			return 0, 0, false
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "invalid offset")
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func (s *Server) me(c *gin.Context) {
	acc, _, err := s.svc.Accounts.EnsureAccount(c.Request.Context(), caller(c), auth.DisplayName(c), nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (s *Server) wallet(c *gin.Context) {
	ctx := c.Request.Context()
	acc, _, err := s.svc.Accounts.EnsureAccount(ctx, caller(c), auth.DisplayName(c), nil)
	if err != nil {
		writeError(c, err)
		return
	}
	w, err := s.svc.Accounts.GetWallet(ctx, acc.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance": acc.Balance,
		"wallet":  w,
	})
}

func (s *Server) history(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	txs, err := s.svc.Accounts.History(c.Request.Context(), caller(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "limit": limit, "offset": offset})
}

func (s *Server) transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	receipt, err := s.svc.Transfers.Transfer(c.Request.Context(), caller(c), req.To, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	payer := model.PayerInfo{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	intent, err := s.svc.Payments.InitiateDeposit(c.Request.Context(), caller(c), req.Amount, payer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (s *Server) withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	tx, err := s.svc.Payments.InitiateWithdrawal(c.Request.Context(), caller(c), req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) paymentHistory(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	txs, err := s.svc.Payments.History(c.Request.Context(), caller(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "limit": limit, "offset": offset})
}

func (s *Server) verifyAndUpdate(c *gin.Context) {
	var req referenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ref() == "" {
		badRequest(c, "missing transaction reference")
		return
	}
	s.settleFor(c, req.ref())
}

func (s *Server) verifyByPath(c *gin.Context) {
	s.settleFor(c, c.Param("ref"))
}

func (s *Server) settleFor(c *gin.Context, ref string) {
	settlement, err := s.svc.Payments.VerifyAndSettleFor(c.Request.Context(), caller(c), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// paymentCallback handles the provider's notification. A GET without a
// reference is a liveness check.
func (s *Server) paymentCallback(c *gin.Context) {
	ref := c.Query("tx_ref")
	if ref == "" {
		ref = c.Query("trx_ref")
	}
	if c.Request.Method == http.MethodPost && ref == "" {
		var req referenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid callback body")
			return
		}
		ref = req.ref()
	}
	if ref == "" {
		if c.Request.Method == http.MethodGet {
			c.JSON(http.StatusOK, gin.H{"message": "payment callback endpoint is working"})
			return
		}
		badRequest(c, "missing transaction reference")
		return
	}

	settlement, err := s.svc.Payments.VerifyAndSettle(c.Request.Context(), ref)
	if err != nil {
		log.Warn().Err(err).Str("reference", ref).Msg("Payment callback not settled")
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          settlement.Transaction.Status,
		"already_settled": settlement.AlreadySettled,
	})
}

func (s *Server) claimDaily(c *gin.Context) {
	claim, err := s.svc.Rewards.ClaimDailyReward(c.Request.Context(), caller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) freeGame(c *gin.Context) {
	var req freeGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "session_token is required")
		return
	}

	total, granted, err := s.svc.Rewards.AwardFreeGamePoints(c.Request.Context(), caller(c), req.SessionToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"free_game_points": total, "granted": granted})
}

func (s *Server) leaderboard(c *gin.Context) {
	snap, err := s.svc.Leaderboard.Snapshot(c.Request.Context(), model.PeriodType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) recompute(c *gin.Context) {
	snap, err := s.svc.Leaderboard.Recompute(c.Request.Context(), caller(c), model.PeriodType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) settleWithdrawal(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := s.svc.Payments.SettleWithdrawal(c.Request.Context(), caller(c), c.Param("id"), approve)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, tx)
	}
}

func (s *Server) pendingWithdrawals(c *gin.Context) {
	limit, _, ok := pageParams(c)
	if !ok {
		return
	}
	txs, err := s.svc.Payments.PendingWithdrawals(c.Request.Context(), caller(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": txs})
}

func (s *Server) setWalletLocked(locked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := s.svc.Accounts.SetWalletLocked(c.Request.Context(), caller(c), c.Param("id"), locked)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, w)
	}
}
