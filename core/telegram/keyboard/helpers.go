package keyboard

import tele "gopkg.in/telebot.v4"

// Button describes one reply keyboard key.
type Button struct {
	Text string
	// Contact turns the key into a "share my phone number" request.
	Contact bool
}

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyRows builds a resized, one-time reply keyboard that may contain contact request keys.
// Empty rows and keys without text are skipped; nil is returned when nothing is left.
func ReplyRows(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	var keyboard []tele.Row
	for _, row := range rows {
		var buttons []tele.Btn
		for _, b := range row {
			if b.Text == "" {
				continue
			}
			if b.Contact {
				buttons = append(buttons, markup.Contact(b.Text))
				continue
			}
			buttons = append(buttons, markup.Text(b.Text))
		}
		if len(buttons) > 0 {
			keyboard = append(keyboard, markup.Row(buttons...))
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	markup.Reply(keyboard...)
	return markup
}
