package router

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/businesssandbox/regbot/core/telegram"
	"github.com/businesssandbox/regbot/core/telegram/middleware"
)

// MessageOptions controls fallback behaviour for messages nobody handles.
type MessageOptions struct {
	Unknown tele.HandlerFunc
}

// MessageRoutes builds the text and contact routes. Slash text that telebot did not match to a
// command endpoint (leading spaces, aliases) is looked up in the registry; everything else goes
// to the registry's message handler.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	route := func(c tele.Context) error {
		name, h := pick(reg, opts, c.Text())
		if h == nil {
			s := summarize("unknown")
			s.status, s.outcome = "skip", "ok"
			s.log(c, nil)
			return nil
		}
		return summarize(name).run(c, h)
	}

	wrapped := middleware.RecoverMiddleware(middleware.Trace(route))
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrapped},
		{Endpoint: tele.OnContact, Handler: wrapped},
	}
}

// pick chooses the handler for text. Admin commands are never reachable this way.
func pick(reg *tg.Registry, opts MessageOptions, text string) (string, tele.HandlerFunc) {
	if reg != nil {
		if text = strings.TrimSpace(text); strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return normalizeHandlerName(key), cmd.Handler
			}
		}
		if h := reg.MessageHandler(); h != nil {
			return "message", h
		}
	}
	if opts.Unknown != nil {
		return "unknown", opts.Unknown
	}
	return "", nil
}
