package helpers

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/core/telegram/sender"
)

func newContext(t *testing.T) (tele.Context, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":9,"type":"private"}}}`))
	}))
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "test", Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	c := b.NewContext(tele.Update{ID: 3, Message: &tele.Message{
		Sender: &tele.User{ID: 7},
		Chat:   &tele.Chat{ID: 9, Type: tele.ChatPrivate},
		Text:   "hi",
	}})
	return c, &calls
}

func TestBuildContextDerivesMeta(t *testing.T) {
	c, _ := newContext(t)
	ctx := BuildContext(c)
	if logger.RIDFrom(ctx) != "3:9:7" {
		t.Fatalf("rid = %q", logger.RIDFrom(ctx))
	}
	if logger.UserIDFrom(ctx) != 7 || logger.ChatIDFrom(ctx) != 9 {
		t.Fatalf("meta = %d/%d", logger.UserIDFrom(ctx), logger.ChatIDFrom(ctx))
	}
	if again := WithHandler(c, "start"); logger.HandlerFrom(again) != "start" {
		t.Fatalf("handler = %q", logger.HandlerFrom(again))
	}
	if stored, _ := ContextFrom(c); logger.HandlerFrom(stored) != "start" {
		t.Fatal("handler not stored")
	}
}

func TestSendCountsOutbound(t *testing.T) {
	c, calls := newContext(t)
	SetDispatcher(nil)

	if err := SendText(c, "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n, kb := Outbound(c); n != 1 || kb {
		t.Fatalf("outbound = %d/%v", n, kb)
	}
	markup := &tele.ReplyMarkup{RemoveKeyboard: true}
	if err := SendHTML(c, "<b>two</b>", markup); err != nil {
		t.Fatalf("send html: %v", err)
	}
	if n, kb := Outbound(c); n != 2 || !kb {
		t.Fatalf("outbound = %d/%v", n, kb)
	}
	if calls.Load() != 2 {
		t.Fatalf("api calls = %d", calls.Load())
	}
}

func TestSendThroughDispatcher(t *testing.T) {
	c, calls := newContext(t)
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	if err := SendText(c, "queued"); err != nil {
		t.Fatalf("send: %v", err)
	}
	d.Close()
	if calls.Load() != 1 {
		t.Fatalf("api calls = %d", calls.Load())
	}
	if n, _ := Outbound(c); n != 1 {
		t.Fatalf("outbound = %d", n)
	}

	// A closed dispatcher falls back to a direct send.
	if err := SendText(c, "direct"); err != nil {
		t.Fatalf("fallback send: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("api calls after fallback = %d", calls.Load())
	}
}
