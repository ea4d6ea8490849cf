package middleware

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/businesssandbox/regbot/core/config"
)

// Update kinds, matching the rate_limit.exclude_updates values.
const (
	KindMessage = coreconfig.UpdateMessage
	KindContact = coreconfig.UpdateContact
	KindCommand = coreconfig.UpdateCommand
	KindOther   = "other"
)

// UpdateKind classifies the incoming update.
func UpdateKind(c tele.Context) string {
	msg := c.Message()
	switch {
	case msg == nil:
		return KindOther
	case msg.Contact != nil:
		return KindContact
	case strings.HasPrefix(msg.Text, "/"):
		return KindCommand
	case msg.Text != "":
		return KindMessage
	}
	return KindOther
}
