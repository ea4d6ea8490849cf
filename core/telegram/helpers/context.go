// Package helpers carries per-update state on tele.Context and sends replies through
// the shared dispatcher.
package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
)

const scopeKey = "regbot.scope"

// scope is stored once per update and mutated in place.
type scope struct {
	ctx      context.Context
	messages int
	keyboard bool
}

func scopeOf(c tele.Context) *scope {
	if c == nil {
		return nil
	}
	s, _ := c.Get(scopeKey).(*scope)
	return s
}

// StoreContext replaces the context downstream helpers log with.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	if s := scopeOf(c); s != nil {
		s.ctx = ctx
		return
	}
	c.Set(scopeKey, &scope{ctx: ctx})
}

// ContextFrom returns the stored context, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if s := scopeOf(c); s != nil && s.ctx != nil {
		return s.ctx, true
	}
	return nil, false
}

// BuildContext returns the update context, deriving rid and update/user/chat ids from c
// the first time it is asked for.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the update context with the serving handler.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

// Outbound reports how many replies the update produced and whether any carried a keyboard.
func Outbound(c tele.Context) (messages int, keyboard bool) {
	if s := scopeOf(c); s != nil {
		return s.messages, s.keyboard
	}
	return 0, false
}

func noteSend(c tele.Context, keyboard bool) {
	BuildContext(c)
	s := scopeOf(c)
	s.messages++
	s.keyboard = s.keyboard || keyboard
}
