package router

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	tg "github.com/businesssandbox/regbot/core/telegram"
	"github.com/businesssandbox/regbot/core/telegram/middleware"
)

// CommandRouteOptions configures the admin guard of AdminOnly commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per command name, in name order, each followed by its aliases.
// Each handler runs under recover, trace and the handled summary; AdminOnly commands
// are also guarded.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	guard := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	var routes []tg.Route
	for _, key := range slices.Sorted(maps.Keys(cmds)) {
		cmd := cmds[key]
		name := normalizeHandlerName(key)
		h := func(c tele.Context) error {
			return summarize(name).run(c, cmd.Handler)
		}
		if cmd.AdminOnly {
			h = guard(h)
		}
		h = middleware.RecoverMiddleware(middleware.Trace(h))

		routes = append(routes, tg.Route{Endpoint: key, Handler: h})
		for _, alias := range cmd.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + strings.TrimPrefix(alias, "/"), Handler: h})
		}
	}

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("routes", len(routes)),
	)
	return routes
}
