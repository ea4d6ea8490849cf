package flow

import (
	"strings"

	"github.com/AlekSi/pointer"
)

// State identifies a step of the registration conversation.
type State string

const (
	StateAwaitLanguage    State = "await_language"
	StateAwaitConsent     State = "await_consent"
	StateAwaitName        State = "await_name"
	StateAwaitPhoneMethod State = "await_phone_method"
	StateAwaitPhoneManual State = "await_phone_manual"
	StateAwaitCity        State = "await_city"
	StateAwaitField       State = "await_field"
	StateAwaitExperience  State = "await_experience"
	StateCompleted        State = "completed"
)

var allStates = []State{
	StateAwaitLanguage,
	StateAwaitConsent,
	StateAwaitName,
	StateAwaitPhoneMethod,
	StateAwaitPhoneManual,
	StateAwaitCity,
	StateAwaitField,
	StateAwaitExperience,
	StateCompleted,
}

// Language selects the text and label set used for a session.
// The value doubles as the segment column of the submission row.
type Language string

const (
	LangUA Language = "ua"
	LangRU Language = "ru"
)

// Collected is the partially filled registration. A nil field has not been answered yet.
type Collected struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	City       *string `json:"city,omitempty"`
	Field      *string `json:"field,omitempty"`
	Experience *string `json:"experience,omitempty"`
}

// Complete reports whether every answer required for submission is present.
func (c Collected) Complete() bool {
	return c.Name != nil && c.Phone != nil && c.City != nil && c.Field != nil && c.Experience != nil
}

// Session is the per-user conversation state. It is a plain value: Handle returns
// an updated copy and never mutates the session it was given.
type Session struct {
	State     State     `json:"state"`
	Language  Language  `json:"language,omitempty"`
	Collected Collected `json:"collected"`

	UserID      int64  `json:"user_id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// NewSession returns the session of a user that has no conversation in progress.
func NewSession(userID int64) Session {
	return Session{State: StateCompleted, UserID: userID}
}

// Active reports whether the session expects further answers.
func (s Session) Active() bool {
	return s.State != "" && s.State != StateCompleted
}

func (s Session) withSender(in Inbound) Session {
	if in.UserID != 0 {
		s.UserID = in.UserID
	}
	if u := strings.TrimSpace(in.Username); u != "" {
		s.Username = u
	}
	if n := strings.TrimSpace(in.DisplayName); n != "" {
		s.DisplayName = n
	}
	return s
}

func (s Session) reset() Session {
	s.Language = ""
	s.Collected = Collected{}
	return s
}

func answer(v string) *string {
	return pointer.To(v)
}
