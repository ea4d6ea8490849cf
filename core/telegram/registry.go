package telegram

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/core/telegram/commands"
)

// Registry holds bot commands and the handler for plain messages.
type Registry struct {
	commands map[string]commands.Command
	message  tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]commands.Command),
	}
}

// RegisterCommand adds a command. Invalid and duplicate registrations are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	err := commands.Validate(name, cmd)
	if err == nil {
		if _, dup := r.commands[name]; !dup {
			r.commands[name] = cmd
			return
		}
		err = errors.New("duplicate command")
	}
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelWarn, "register.command.skip",
		slog.String("name", name),
		slog.String("cause", err.Error()),
	)
}

// ListCommands returns the commands sorted by name. visibleOnly drops hidden and
// admin-only ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && !cmd.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand resolves message text to a registered command by name or alias and
// returns its canonical key.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name := commands.Name(text)
	if name == "" {
		return "", commands.Command{}, false
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		if cmd.HasAlias(name) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// SetMessageHandler sets the handler for text and contact messages that are not commands.
func (r *Registry) SetMessageHandler(h tele.HandlerFunc) {
	r.message = h
}

// MessageHandler returns the current message handler.
func (r *Registry) MessageHandler() tele.HandlerFunc {
	return r.message
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.LogEvent(context.Background(), logger.TWire, slog.LevelError, "register.commands",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "register.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(list)),
	)
}
