package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"bingo-ledger/internal/config"
)

// stubContext implements the parts of tele.Context the middleware uses.
type stubContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	replies []string
}

func (s *stubContext) Chat() *tele.Chat { return s.chat }

func (s *stubContext) Sender() *tele.User { return s.sender }

func (s *stubContext) Text() string { return "/recompute" }

func (s *stubContext) Reply(what interface{}, _ ...interface{}) error {
	s.replies = append(s.replies, what.(string))
	return nil
}

type fakeAdmins struct {
	admins map[string]bool
	err    error
}

func (f fakeAdmins) IsAdmin(_ context.Context, accountID string) (bool, error) {
	return f.admins[accountID], f.err
}

func passThrough(called *bool) tele.HandlerFunc {
	return func(tele.Context) error {
		*called = true
		return nil
	}
}

// TestWhitelistEnforcementProperty checks that a group chat is allowed
// exactly when it is in a non-empty whitelist.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(1, 10).Draw(t, "numChats")
		chatIDs := make([]int64, numChats)
		for i := 0; i < numChats; i++ {
			// Group chat IDs are negative
			chatIDs[i] = -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		}
		cfg := &config.BotConfig{AllowedChats: chatIDs}

		testChatID := -rapid.Int64Range(1, 1000000000).Draw(t, "testChatID")

		expected := false
		for _, id := range chatIDs {
			if id == testChatID {
				expected = true
				break
			}
		}

		if got := cfg.IsChatAllowed(testChatID); got != expected {
			t.Fatalf("chatID=%d whitelist=%v: expected %v, got %v", testChatID, chatIDs, expected, got)
		}

		known := chatIDs[rapid.IntRange(0, numChats-1).Draw(t, "knownIndex")]
		if !cfg.IsChatAllowed(known) {
			t.Fatalf("whitelisted chat %d rejected", known)
		}
	})
}

// TestEmptyWhitelistAllowsAllChatsProperty checks the empty whitelist case.
func TestEmptyWhitelistAllowsAllChatsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.BotConfig{}
		chatID := -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		if !cfg.IsChatAllowed(chatID) {
			t.Fatalf("empty whitelist rejected chat %d", chatID)
		}
	})
}

// TestPrivateUsersProperty checks that users are allowed once seen, and
// only then.
func TestPrivateUsersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seen := newPrivateUsers()
		ids := rapid.SliceOfNDistinct(rapid.Int64Range(1, 1000000000), 2, 20, rapid.ID[int64]).Draw(t, "ids")

		for _, id := range ids[1:] {
			seen.allow(id)
		}
		for _, id := range ids[1:] {
			if !seen.allowed(id) {
				t.Fatalf("user %d should be allowed after being seen", id)
			}
		}
		if seen.allowed(ids[0]) {
			t.Fatalf("user %d was never seen", ids[0])
		}
	})
}

func TestWhitelistMiddleware(t *testing.T) {
	cfg := &config.BotConfig{AllowedChats: []int64{-100}}
	seen := newPrivateUsers()
	mw := WhitelistMiddleware(cfg, seen)
	user := &tele.User{ID: 7}

	called := false
	c := &stubContext{chat: &tele.Chat{ID: 7, Type: tele.ChatPrivate}, sender: user}
	require.NoError(t, mw(passThrough(&called))(c))
	assert.False(t, called, "unknown private user must be ignored")

	called = false
	g := &stubContext{chat: &tele.Chat{ID: -200, Type: tele.ChatGroup}, sender: user}
	require.NoError(t, mw(passThrough(&called))(g))
	assert.False(t, called, "non-whitelisted group must be ignored")

	called = false
	g.chat = &tele.Chat{ID: -100, Type: tele.ChatGroup}
	require.NoError(t, mw(passThrough(&called))(g))
	assert.True(t, called)

	called = false
	require.NoError(t, mw(passThrough(&called))(c))
	assert.True(t, called, "user seen in a whitelisted group may use private chat")
}

func TestAdminMiddleware(t *testing.T) {
	admins := fakeAdmins{admins: map[string]bool{"tg:1": true}}
	mw := AdminMiddleware(admins)

	called := false
	c := &stubContext{sender: &tele.User{ID: 1}}
	require.NoError(t, mw(passThrough(&called))(c))
	assert.True(t, called)
	assert.Empty(t, c.replies)

	called = false
	c = &stubContext{sender: &tele.User{ID: 2}}
	require.NoError(t, mw(passThrough(&called))(c))
	assert.False(t, called)
	assert.Equal(t, []string{"❌ Permission denied: administrators only"}, c.replies)

	called = false
	c = &stubContext{sender: &tele.User{ID: 1}}
	require.NoError(t, AdminMiddleware(fakeAdmins{err: errors.New("db down")})(passThrough(&called))(c))
	assert.False(t, called)
	assert.Len(t, c.replies, 1)
}

func TestRecoveryMiddleware(t *testing.T) {
	c := &stubContext{sender: &tele.User{ID: 1}}
	err := RecoveryMiddleware()(func(tele.Context) error { panic("boom") })(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"❌ Internal error, please try again later"}, c.replies)
}
