package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/businesssandbox/regbot/core/telegram/helpers"
	"github.com/businesssandbox/regbot/core/telegram/keyboard"
	"github.com/businesssandbox/regbot/internal/registration/flow"
)

func render(c tele.Context, r flow.Reply) error {
	if r.Text == "" {
		return nil
	}
	markup := replyMarkup(r)
	if r.HTML {
		return helpers.SendHTML(c, r.Text, markup)
	}
	if markup == nil {
		return helpers.SendText(c, r.Text)
	}
	return helpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: markup})
}

// replyMarkup shows the reply's choices, hides the keyboard on free-text steps and
// otherwise leaves the current keyboard alone.
func replyMarkup(r flow.Reply) *tele.ReplyMarkup {
	if len(r.Choices) > 0 {
		rows := make([][]keyboard.Button, 0, len(r.Choices))
		for _, row := range r.Choices {
			buttons := make([]keyboard.Button, 0, len(row))
			for _, ch := range row {
				buttons = append(buttons, keyboard.Button{Text: ch.Label, Contact: ch.RequestContact})
			}
			rows = append(rows, buttons)
		}
		if markup := keyboard.ReplyRows(rows...); markup != nil {
			return markup
		}
	}
	if r.RemoveKeyboard {
		return keyboard.RemoveKeyboard()
	}
	return nil
}
