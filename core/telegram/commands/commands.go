// Package commands describes the slash commands a bot registers.
package commands

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var (
	ErrInvalid = errors.New("command needs a name, a handler and a description")
	ErrNoSlash = errors.New("command name must start with /")
)

// Command is a slash command with its menu metadata. Aliases may be given with or
// without the leading slash.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Validate checks that cmd can be registered under name.
func Validate(name string, cmd Command) error {
	if name == "" || cmd.Handler == nil || strings.TrimSpace(cmd.Description) == "" {
		return ErrInvalid
	}
	if name[0] != '/' {
		return ErrNoSlash
	}
	return nil
}

// Visible reports whether the command is listed in the Telegram menu.
func (c Command) Visible() bool { return !c.Hidden && !c.AdminOnly }

// HasAlias reports whether name, a slash-prefixed token, is one of the aliases.
func (c Command) HasAlias(name string) bool {
	for _, alias := range c.Aliases {
		if "/"+strings.TrimPrefix(alias, "/") == name {
			return true
		}
	}
	return false
}

// Name extracts the command token from message text: "/start@regbot now" becomes "/start".
func Name(text string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	if name == "" || name[0] == '/' {
		return name
	}
	return "/" + name
}
