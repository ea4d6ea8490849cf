package flow

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

const (
	evChooseLanguage   = "choose_language"
	evAgree            = "agree"
	evDisagree         = "disagree"
	evGiveName         = "give_name"
	evShareContact     = "share_contact"
	evManualPhone      = "manual_phone"
	evGivePhone        = "give_phone"
	evGiveCity         = "give_city"
	evChooseField      = "choose_field"
	evChooseExperience = "choose_experience"
	evCancel           = "cancel"
	evStart            = "start"
)

func src(states ...State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// transitions is the complete edge set of the registration conversation.
var transitions = fsm.Events{
	{Name: evChooseLanguage, Src: src(StateAwaitLanguage), Dst: string(StateAwaitConsent)},
	{Name: evAgree, Src: src(StateAwaitConsent), Dst: string(StateAwaitName)},
	{Name: evDisagree, Src: src(StateAwaitConsent), Dst: string(StateCompleted)},
	{Name: evGiveName, Src: src(StateAwaitName), Dst: string(StateAwaitPhoneMethod)},
	{Name: evShareContact, Src: src(StateAwaitPhoneMethod), Dst: string(StateAwaitCity)},
	{Name: evManualPhone, Src: src(StateAwaitPhoneMethod), Dst: string(StateAwaitPhoneManual)},
	{Name: evGivePhone, Src: src(StateAwaitPhoneManual), Dst: string(StateAwaitCity)},
	{Name: evGiveCity, Src: src(StateAwaitCity), Dst: string(StateAwaitField)},
	{Name: evChooseField, Src: src(StateAwaitField), Dst: string(StateAwaitExperience)},
	{Name: evChooseExperience, Src: src(StateAwaitExperience), Dst: string(StateCompleted)},
	{Name: evCancel, Src: src(allStates...), Dst: string(StateCompleted)},
	{Name: evStart, Src: src(allStates...), Dst: string(StateAwaitLanguage)},
}

// advance fires event from state and returns the destination.
// Self-loops (cancel while completed, start while choosing a language) are not errors.
func advance(ctx context.Context, from State, event string) (State, error) {
	if from == "" {
		from = StateCompleted
	}
	m := fsm.NewFSM(string(from), transitions, nil)
	if err := m.Event(ctx, event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return from, nil
		}
		return from, err
	}
	return State(m.Current()), nil
}
