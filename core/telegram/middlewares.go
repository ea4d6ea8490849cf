package telegram

import (
	"slices"
	"time"

	coreconfig "github.com/businesssandbox/regbot/core/config"
	"github.com/businesssandbox/regbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns recover, the optional per-user rate limit and trace,
// outermost first. onLimited may be nil.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if limit := rateLimit(cfg, onLimited); limit != nil {
		mws = append(mws, Middleware{Name: "rate_limit", Use: limit})
	}
	return append(mws, Middleware{Name: "trace", Use: middleware.Trace})
}

func rateLimit(cfg *coreconfig.Config, onLimited func(tele.Context) error) tele.MiddlewareFunc {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return nil
	}
	// Normalize already lower-cased and validated the exclusions.
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for kind := range slices.Values(cfg.RateLimit.ExcludeUpdates) {
		exclude[kind] = struct{}{}
	}
	return middleware.RateLimitMiddleware(middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	})
}
