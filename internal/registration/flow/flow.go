// Package flow implements the registration conversation: a per-user state machine that
// asks for language, consent, name, phone, city, field and experience, validates every
// answer and hands the finished registration to an Appender.
//
// The controller holds no per-user state. Callers load a Session, pass it to Handle
// together with the inbound message and store the returned Session.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/businesssandbox/regbot/core/logger"
)

const component = "flow"

// Options configures a Flow.
type Options struct {
	Catalog *Catalog
	Phones  *PhoneRules
	Sink    Appender
	// Source is written to the source column; DefaultSource when empty.
	Source string
	// Now is the clock used for record timestamps; time.Now when nil.
	Now func() time.Time
}

// Flow is the registration controller. It is safe for concurrent use.
type Flow struct {
	catalog *Catalog
	phones  *PhoneRules
	sink    Appender
	source  string
	now     func() time.Time
}

// New validates options and builds a Flow.
func New(opts Options) (*Flow, error) {
	if opts.Sink == nil {
		return nil, errors.New("flow: sink is required")
	}
	f := &Flow{
		catalog: opts.Catalog,
		phones:  opts.Phones,
		sink:    opts.Sink,
		source:  strings.TrimSpace(opts.Source),
		now:     opts.Now,
	}
	if f.catalog == nil {
		f.catalog = DefaultCatalog("")
	}
	if f.phones == nil {
		rules, err := NewPhoneRules(nil)
		if err != nil {
			return nil, err
		}
		f.phones = rules
	}
	if f.source == "" {
		f.source = DefaultSource
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f, nil
}

// Handle applies one inbound message to the session and returns the updated session
// together with the reply to show. Invalid answers never fail: they repeat the current
// prompt with a correction notice and leave the session where it was.
func (f *Flow) Handle(ctx context.Context, s Session, in Inbound) (Session, Reply) {
	if s.State == "" {
		s.State = StateCompleted
	}
	s = s.withSender(in)
	from := s.State

	next, reply := f.dispatch(ctx, s, in)

	logger.Debug(ctx, component, "flow.transition",
		slog.Int64("user_id", next.UserID),
		slog.String("from", string(from)),
		slog.String("to", string(next.State)),
		slog.String("inbound", in.Kind.String()),
		slog.Bool("correction", reply.Correction),
	)
	return next, reply
}

func (f *Flow) dispatch(ctx context.Context, s Session, in Inbound) (Session, Reply) {
	switch in.Kind {
	case KindStart:
		return f.start(ctx, s)
	case KindCancel:
		return f.cancel(ctx, s)
	}

	text := strings.TrimSpace(in.Text)
	t := f.catalog.Texts(s.Language)

	switch s.State {
	case StateAwaitLanguage:
		lang, ok := f.catalog.LanguageFor(text)
		if !ok {
			return s, f.retry(s, f.catalog.LanguageInvalid)
		}
		s.Language = lang
		return f.step(ctx, s, evChooseLanguage)

	case StateAwaitConsent:
		switch text {
		case t.AgreeLabel:
			return f.step(ctx, s, evAgree)
		case t.DisagreeLabel:
			next, ok := f.move(ctx, s, evDisagree)
			if !ok {
				return s, f.retry(s, t.ConsentInvalid)
			}
			return next.reset(), Reply{Text: t.Declined, RemoveKeyboard: true, Step: StateCompleted}
		}
		return s, f.retry(s, t.ConsentInvalid)

	case StateAwaitName:
		if text == "" {
			return s, f.retry(s, t.NameInvalid)
		}
		s.Collected.Name = answer(text)
		return f.step(ctx, s, evGiveName)

	case StateAwaitPhoneMethod:
		if in.Kind == KindContact {
			phone := NormalizePhone(in.Phone)
			if phone == "" {
				return s, f.retry(s, t.PhoneMethodInvalid)
			}
			s.Collected.Phone = answer(phone)
			return f.phoneStored(ctx, s, evShareContact)
		}
		if text == t.ManualPhoneLabel {
			return f.step(ctx, s, evManualPhone)
		}
		return s, f.retry(s, t.PhoneMethodInvalid)

	case StateAwaitPhoneManual:
		phone := NormalizePhone(text)
		if !f.phones.Valid(phone) {
			return s, f.retry(s, t.PhoneManualInvalid)
		}
		s.Collected.Phone = answer(phone)
		return f.phoneStored(ctx, s, evGivePhone)

	case StateAwaitCity:
		if text == "" {
			return s, f.retry(s, t.CityInvalid)
		}
		s.Collected.City = answer(text)
		return f.step(ctx, s, evGiveCity)

	case StateAwaitField:
		if !hasLabel(t.FieldLabels, text) {
			return s, f.retry(s, t.FieldInvalid)
		}
		s.Collected.Field = answer(text)
		return f.step(ctx, s, evChooseField)

	case StateAwaitExperience:
		if !hasLabel(t.ExperienceLabels, text) {
			return s, f.retry(s, t.ExperienceInvalid)
		}
		filled := s
		filled.Collected.Experience = answer(text)
		next, ok := f.move(ctx, filled, evChooseExperience)
		if !ok {
			return s, f.retry(s, t.ExperienceInvalid)
		}
		f.submit(ctx, filled)
		return next.reset(), Reply{Text: t.Done, RemoveKeyboard: true, Step: StateCompleted}
	}

	return s, f.prompt(s)
}

func (f *Flow) start(ctx context.Context, s Session) (Session, Reply) {
	s = s.reset()
	next, ok := f.move(ctx, s, evStart)
	if !ok {
		next = s
		next.State = StateAwaitLanguage
	}
	r := f.prompt(next)
	r.Text = f.catalog.Welcome + "\n\n" + r.Text
	logger.Info(ctx, component, "flow.start",
		slog.String("status", "ok"),
		slog.Int64("user_id", next.UserID),
	)
	return next, r
}

func (f *Flow) cancel(ctx context.Context, s Session) (Session, Reply) {
	t := f.catalog.Texts(s.Language)
	next, ok := f.move(ctx, s, evCancel)
	if !ok {
		next = s
		next.State = StateCompleted
	}
	logger.Info(ctx, component, "flow.cancel",
		slog.String("status", "ok"),
		slog.Int64("user_id", next.UserID),
		slog.String("state", string(s.State)),
	)
	return next.reset(), Reply{Text: t.Cancelled, RemoveKeyboard: true, Step: StateCompleted}
}

// step fires event and replies with the prompt of the state it lands in.
func (f *Flow) step(ctx context.Context, s Session, event string) (Session, Reply) {
	next, ok := f.move(ctx, s, event)
	if !ok {
		return s, f.prompt(s)
	}
	return next, f.prompt(next)
}

// phoneStored steps past a phone answer and thanks the user before the city question.
func (f *Flow) phoneStored(ctx context.Context, s Session, event string) (Session, Reply) {
	next, r := f.step(ctx, s, event)
	if next.State == StateAwaitCity {
		t := f.catalog.Texts(next.Language)
		if t.PhoneAccepted != "" {
			r.Text = t.PhoneAccepted + "\n\n" + r.Text
		}
	}
	return next, r
}

func (f *Flow) move(ctx context.Context, s Session, event string) (Session, bool) {
	to, err := advance(ctx, s.State, event)
	if err != nil {
		logger.Error(ctx, component, "flow.transition",
			slog.String("status", "fail"),
			slog.Int64("user_id", s.UserID),
			slog.String("state", string(s.State)),
			slog.String("op", event),
			slog.String("err", err.Error()),
		)
		return s, false
	}
	s.State = to
	return s, true
}

// submit persists the finished registration. Failures are logged and swallowed.
func (f *Flow) submit(ctx context.Context, s Session) {
	rec, err := NewRecord(s, f.now(), f.source)
	if err != nil {
		logger.Error(ctx, component, "flow.submit",
			slog.String("status", "fail"),
			slog.Int64("user_id", s.UserID),
			slog.String("err", err.Error()),
		)
		return
	}

	start := time.Now()
	err = f.sink.Append(ctx, rec)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int64("user_id", rec.UserID),
		slog.String("record_id", rec.ID.String()),
		slog.String("segment", string(rec.Segment)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Error(ctx, component, "flow.submit", append(attrs, slog.String("err", err.Error()))...)
		return
	}
	logger.Info(ctx, component, "flow.submit", attrs...)
}

func (f *Flow) retry(s Session, notice string) Reply {
	r := f.prompt(s)
	if notice != "" {
		r.Text = notice + "\n\n" + r.Text
	}
	r.Correction = true
	return r
}

// prompt returns the question asked in the session's current state.
func (f *Flow) prompt(s Session) Reply {
	t := f.catalog.Texts(s.Language)
	r := Reply{Step: s.State}

	switch s.State {
	case StateAwaitLanguage:
		r.Text = f.catalog.LanguagePrompt
		for _, l := range f.catalog.LanguageLabels {
			r.Choices = append(r.Choices, []Choice{{Label: l.Label}})
		}
	case StateAwaitConsent:
		r.Text = t.ConsentPrompt
		r.HTML = true
		r.Choices = [][]Choice{{{Label: t.AgreeLabel}}, {{Label: t.DisagreeLabel}}}
	case StateAwaitName:
		r.Text = t.AskName
		r.RemoveKeyboard = true
	case StateAwaitPhoneMethod:
		r.Text = t.AskPhone
		r.Choices = [][]Choice{
			{{Label: t.ShareContactLabel, RequestContact: true}},
			{{Label: t.ManualPhoneLabel}},
		}
	case StateAwaitPhoneManual:
		r.Text = t.AskPhoneManual
		r.RemoveKeyboard = true
	case StateAwaitCity:
		r.Text = t.AskCity
		r.RemoveKeyboard = true
	case StateAwaitField:
		r.Text = t.AskField
		r.Choices = choiceRows(t.FieldLabels)
	case StateAwaitExperience:
		r.Text = t.AskExperience
		r.Choices = choiceRows(t.ExperienceLabels)
	default:
		r.Step = StateCompleted
		r.Text = f.catalog.NotStarted
		r.RemoveKeyboard = true
	}
	return r
}
