package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	tghelpers "github.com/businesssandbox/regbot/core/telegram/helpers"
)

// RecoverMiddleware logs a handler panic with its stack and swallows it, so one bad
// update cannot take the poller down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			err = nil
		}()
		return next(c)
	}
}

// AdminOptions configures AdminOnlyMiddleware.
type AdminOptions struct {
	// AdminID is the only user let through; 0 rejects everybody.
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware guards operator commands such as /stats.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	isAdmin := func(c tele.Context) bool {
		u := c.Sender()
		return opts.AdminID != 0 && u != nil && u.ID == opts.AdminID
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if isAdmin(c) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.admin_reject", slog.String("status", "skip"))
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds (see UpdateKind) that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now is used in tests; time.Now when nil.
	Now func() time.Time
}

// RateLimitMiddleware drops updates that follow the previous one of the same user
// closer than Interval. Dropped updates do not move the window.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &window{interval: opts.Interval, last: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c)
			if _, skip := opts.Exclude[kind]; skip || w.admit(u.ID, opts.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("inbound", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

// pruneAbove is the number of tracked users past which stale entries are swept.
const pruneAbove = 4096

type window struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[int64]time.Time
}

func (w *window) admit(user int64, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.last[user]; ok && now.Sub(prev) < w.interval {
		return false
	}
	w.last[user] = now
	if len(w.last) > pruneAbove {
		for id, ts := range w.last {
			if now.Sub(ts) >= w.interval {
				delete(w.last, id)
			}
		}
	}
	return true
}
