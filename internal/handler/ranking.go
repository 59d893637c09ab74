package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/model"
)

const topSize = 10

// RankingHandler handles the /top command.
type RankingHandler struct {
	leaderboard Leaderboard
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(leaderboard Leaderboard) *RankingHandler {
	return &RankingHandler{leaderboard: leaderboard}
}

// periodArg returns the leaderboard type named by args, global by default.
func periodArg(args []string) model.PeriodType {
	if len(args) == 0 {
		return model.PeriodGlobal
	}
	return model.PeriodType(strings.ToLower(args[0]))
}

// HandleTop handles the /top command.
// Format: /top [global|weekly|monthly]
func (h *RankingHandler) HandleTop(c tele.Context) error {
	snap, err := h.leaderboard.Snapshot(context.Background(), periodArg(c.Args()))
	if err != nil {
		return c.Reply(failureText(err))
	}
	return c.Reply(formatLeaderboard(snap, topSize))
}

func formatLeaderboard(snap *model.LeaderboardSnapshot, limit int) string {
	title := fmt.Sprintf("🏆 %s leaderboard", periodTitle(snap.Type))
	if snap.Type != model.PeriodGlobal {
		title += " (" + snap.Period + ")"
	}

	if len(snap.Entries) == 0 {
		return title + "\n📊 No rankings yet"
	}

	var b strings.Builder
	b.WriteString(title + "\n━━━━━━━━━━━━━━━\n")

	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range snap.Entries {
		if i >= limit {
			break
		}
		rank := fmt.Sprintf("%d.", e.Rank)
		if i < len(medals) {
			rank = medals[i]
		}

		name := e.DisplayName
		if name == "" {
			name = e.AccountID
		}
		fmt.Fprintf(&b, "%s %s: %d\n", rank, name, e.Score)
	}

	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}

func periodTitle(pt model.PeriodType) string {
	s := string(pt)
	if s == "" {
		return "Global"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
