package middleware

import (
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	tghelpers "github.com/businesssandbox/regbot/core/telegram/helpers"
)

// seenUpdates remembers the last few update ids so an update routed through several
// branches is logged once.
type seenUpdates struct {
	mu   sync.Mutex
	ring []int
	next int
	set  map[int]struct{}
}

func newSeenUpdates(size int) *seenUpdates {
	return &seenUpdates{ring: make([]int, size), set: make(map[int]struct{}, size)}
}

// first reports whether id has not been seen yet, and records it.
func (s *seenUpdates) first(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[id]; ok {
		return false
	}
	delete(s.set, s.ring[s.next])
	s.ring[s.next] = id
	s.set[id] = struct{}{}
	s.next = (s.next + 1) % len(s.ring)
	return true
}

var received = newSeenUpdates(256)

// Trace opens the update scope (rid, update/user/chat ids) used by every later log
// line and writes one sampled update.received debug line.
func Trace(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if !logger.ShouldSampleDebug() || !received.first(upd.ID) {
			return next(c)
		}

		kind := UpdateKind(c)
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.Int("update_id", upd.ID),
			slog.String("inbound", kind),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil {
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}
		// Only commands are echoed: free text holds names and cities, contacts hold phones.
		if kind == KindCommand {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 64)))
		}
		logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
