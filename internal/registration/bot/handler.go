// Package bot connects the registration flow to Telegram: it turns updates into flow inbound
// messages, keeps sessions in a state.Store and renders replies as reply keyboards.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	tg "github.com/businesssandbox/regbot/core/telegram"
	"github.com/businesssandbox/regbot/core/telegram/commands"
	"github.com/businesssandbox/regbot/core/telegram/helpers"
	"github.com/businesssandbox/regbot/core/telegram/keyboard"
	"github.com/businesssandbox/regbot/core/telegram/state"
	"github.com/businesssandbox/regbot/internal/registration/flow"
	"github.com/businesssandbox/regbot/internal/registration/ops"
)

const component = "bot"

// UnavailableText is sent when the session store cannot be reached.
const UnavailableText = "Сервіс тимчасово недоступний. Спробуйте /start трохи пізніше.\n" +
	"Сервис временно недоступен. Попробуйте /start чуть позже."

// Conversation is the part of flow.Flow the adapter drives.
type Conversation interface {
	Handle(ctx context.Context, s flow.Session, in flow.Inbound) (flow.Session, flow.Reply)
}

// Options configures a Handler.
type Options struct {
	Flow     Conversation
	Sessions state.Store[flow.Session]
	// Locks serializes updates of one user; a private Locker is used when nil.
	Locks *state.Locker
	// Stats backs the admin /stats command; the command is not registered when nil.
	Stats *ops.Collector
}

// Handler is the Telegram side of the registration flow.
type Handler struct {
	flow     Conversation
	sessions state.Store[flow.Session]
	locks    *state.Locker
	stats    *ops.Collector
}

// New validates options and returns a Handler.
func New(opts Options) (*Handler, error) {
	if opts.Flow == nil {
		return nil, errors.New("bot: flow is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("bot: session store is required")
	}
	if opts.Locks == nil {
		opts.Locks = state.NewLocker()
	}
	return &Handler{
		flow:     opts.Flow,
		sessions: opts.Sessions,
		locks:    opts.Locks,
		stats:    opts.Stats,
	}, nil
}

// Register adds the bot commands and the message handler to reg.
func (h *Handler) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.OnStart,
		Description: "Почати реєстрацію / Начать регистрацию",
		Aliases:     []string{"restart"},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.OnCancel,
		Description: "Скасувати / Отменить",
	})
	if h.stats != nil {
		reg.RegisterCommand("/stats", commands.Command{
			Handler:     h.OnStats,
			Description: "Registration counters",
			AdminOnly:   true,
		})
	}
	reg.SetMessageHandler(h.OnMessage)
}

// OnStart restarts the conversation.
func (h *Handler) OnStart(c tele.Context) error {
	in, ok := inboundFrom(c)
	if !ok {
		return nil
	}
	in.Kind, in.Text, in.Phone = flow.KindStart, "", ""
	return h.handle(c, in)
}

// OnCancel abandons the conversation.
func (h *Handler) OnCancel(c tele.Context) error {
	in, ok := inboundFrom(c)
	if !ok {
		return nil
	}
	in.Kind, in.Text, in.Phone = flow.KindCancel, "", ""
	return h.handle(c, in)
}

// OnMessage feeds text and shared contacts into the flow.
func (h *Handler) OnMessage(c tele.Context) error {
	in, ok := inboundFrom(c)
	if !ok {
		return nil
	}
	return h.handle(c, in)
}

// OnStats replies with the registration counters.
func (h *Handler) OnStats(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	s := h.stats.Collect(ctx)
	text := fmt.Sprintf("appended: %d\nfailed: %d", s.Appended, s.Failed)
	if s.Archived != nil {
		text += fmt.Sprintf("\narchived: %d", *s.Archived)
	}
	return helpers.SendText(c, text)
}

// handle runs load, transition and save for one update while holding the user's lock.
func (h *Handler) handle(c tele.Context, in flow.Inbound) error {
	ctx := helpers.BuildContext(c)

	unlock := h.locks.Lock(in.UserID)
	defer unlock()

	session, found, err := h.sessions.Load(ctx, in.UserID)
	if err != nil {
		return h.unavailable(ctx, c, "load", err)
	}
	if !found {
		session = flow.NewSession(in.UserID)
	}

	next, reply := h.flow.Handle(ctx, session, in)

	if next.Active() {
		err = h.sessions.Save(ctx, in.UserID, next)
	} else if found {
		err = h.sessions.Delete(ctx, in.UserID)
	}
	if err != nil {
		return h.unavailable(ctx, c, "save", err)
	}

	return render(c, reply)
}

func (h *Handler) unavailable(ctx context.Context, c tele.Context, op string, err error) error {
	logger.Error(ctx, component, "bot.session",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return helpers.SendText(c, UnavailableText, &tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
}

// inboundFrom maps the update to a flow message. Updates without a sender or message are ignored.
func inboundFrom(c tele.Context) (flow.Inbound, bool) {
	msg := c.Message()
	sender := c.Sender()
	if msg == nil || sender == nil {
		return flow.Inbound{}, false
	}

	var in flow.Inbound
	switch {
	case msg.Contact != nil && msg.Contact.UserID != 0 && msg.Contact.UserID != sender.ID:
		// Someone else's contact card: no phone, so the step is asked again.
		in = flow.Contact(sender.ID, "")
	case msg.Contact != nil:
		in = flow.Contact(sender.ID, msg.Contact.PhoneNumber)
	default:
		in = flow.Text(sender.ID, msg.Text)
	}
	in.Username = sender.Username
	in.DisplayName = sender.FirstName
	return in, true
}
