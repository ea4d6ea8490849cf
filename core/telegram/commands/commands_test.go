package commands

import (
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func nop(tele.Context) error { return nil }

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cmd  Command
		want error
	}{
		{"/start", Command{Handler: nop, Description: "Start"}, nil},
		{"start", Command{Handler: nop, Description: "Start"}, ErrNoSlash},
		{"/start", Command{Handler: nop, Description: "  "}, ErrInvalid},
		{"/start", Command{Description: "Start"}, ErrInvalid},
		{"", Command{Handler: nop, Description: "Start"}, ErrInvalid},
	}
	for _, tc := range cases {
		if err := Validate(tc.name, tc.cmd); !errors.Is(err, tc.want) {
			t.Errorf("Validate(%q) = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestVisibleAndAliases(t *testing.T) {
	if (Command{AdminOnly: true}).Visible() || (Command{Hidden: true}).Visible() {
		t.Fatal("admin and hidden commands must stay out of the menu")
	}
	cmd := Command{Aliases: []string{"restart", "/again"}}
	for _, name := range []string{"/restart", "/again"} {
		if !cmd.HasAlias(name) {
			t.Errorf("alias %s not matched", name)
		}
	}
	if cmd.HasAlias("/start") {
		t.Fatal("unexpected alias match")
	}
}

func TestName(t *testing.T) {
	cases := map[string]string{
		"/start":              "/start",
		" /start@regbot now ": "/start",
		"cancel":              "/cancel",
		"":                    "",
	}
	for in, want := range cases {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %q, want %q", in, got, want)
		}
	}
}
