package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d; nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// SendText sends plain text. The first options value, if any, is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var o *tele.SendOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return send(c, "send.text", o != nil && o.ReplyMarkup != nil, func() error {
		if o == nil {
			return c.Send(text)
		}
		return c.Send(text, o)
	})
}

// SendHTML sends text with HTML parse mode and an optional reply markup. Link previews
// are disabled.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	o := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	if len(markup) > 0 {
		o.ReplyMarkup = markup[0]
	}
	return SendText(c, text, o)
}

// send enqueues run on the dispatcher, falling back to a direct call when there is
// none or its lane cannot take the job.
func send(c tele.Context, action string, keyboard bool, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return noted(c, keyboard, run())
	}

	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, "sendMessage", run)
	switch {
	case err == nil:
		noteSend(c, keyboard)
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("op", action),
			slog.String("err", err.Error()),
		)
		return noted(c, keyboard, run())
	}
	return err
}

func noted(c tele.Context, keyboard bool, err error) error {
	if err == nil {
		noteSend(c, keyboard)
	}
	return err
}
