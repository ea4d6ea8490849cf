package router

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	tghelpers "github.com/businesssandbox/regbot/core/telegram/helpers"
)

// summary is the handler.handled line written once per routed update.
type summary struct {
	handler string
	start   time.Time
	// status and outcome replace the values derived from the handler error.
	status  string
	outcome string
}

func summarize(handler string) summary {
	return summary{handler: handler, start: time.Now()}
}

// run calls fn under the handler scope and logs the result.
func (s summary) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn(c)
	s.log(c, err)
	return err
}

func (s summary) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	messages, keyboard := tghelpers.Outbound(c)

	attrs := []slog.Attr{
		slog.String("status", cmpOr(s.status, logger.Status(err))),
		slog.String("outcome", cmpOr(s.outcome, logger.Status(err))),
		slog.Int("messages", messages),
		slog.Bool("kb", keyboard),
		slog.Duration("duration", logger.Took(s.start)),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

// normalizeHandlerName turns "/Start Now" into "start_now".
func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// deriveErrorCode prefers an error's own Code() and falls back to its type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if c, ok := err.(interface{ Code() string }); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(name)
}

func cmpOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
