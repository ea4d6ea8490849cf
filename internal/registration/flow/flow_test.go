package flow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu   sync.Mutex
	recs []Record
	err  error
}

func (s *recordingSink) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.err
}

func (s *recordingSink) records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.recs...)
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC)

func newTestFlow(t *testing.T, sink Appender) *Flow {
	t.Helper()
	f, err := New(Options{
		Catalog: DefaultCatalog("https://example.com/policy"),
		Sink:    sink,
		Now:     func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new flow: %v", err)
	}
	return f
}

const testUser = int64(4242)

func sender(in Inbound) Inbound {
	in.UserID = testUser
	in.Username = "olena_k"
	in.DisplayName = "Olena"
	return in
}

// walkTo drives a fresh session through the Ukrainian flow until it reaches target.
func walkTo(t *testing.T, f *Flow, target State) Session {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		in   Inbound
		want State
	}{
		{sender(Start(testUser)), StateAwaitLanguage},
		{sender(Text(testUser, "🇺🇦 Українська")), StateAwaitConsent},
		{sender(Text(testUser, "Погоджуюсь")), StateAwaitName},
		{sender(Text(testUser, "Олена")), StateAwaitPhoneMethod},
		{sender(Text(testUser, "📞 Ввести номер вручну")), StateAwaitPhoneManual},
		{sender(Text(testUser, "+45 12 34 56 78")), StateAwaitCity},
		{sender(Text(testUser, "Орхус")), StateAwaitField},
		{sender(Text(testUser, "Клінінг")), StateAwaitExperience},
	}
	s := NewSession(testUser)
	for _, st := range steps {
		var r Reply
		s, r = f.Handle(ctx, s, st.in)
		if s.State != st.want {
			t.Fatalf("after %q: state = %s, want %s", st.in.Text, s.State, st.want)
		}
		if r.Correction {
			t.Fatalf("after %q: unexpected correction: %s", st.in.Text, r.Text)
		}
		if s.State == target {
			return s
		}
	}
	if s.State != target {
		t.Fatalf("target %s not reached", target)
	}
	return s
}

func TestFullWalkAppendsOneRecord(t *testing.T) {
	sink := &recordingSink{}
	f := newTestFlow(t, sink)

	s := walkTo(t, f, StateAwaitExperience)
	s, r := f.Handle(context.Background(), s, sender(Text(testUser, "Так")))

	if s.State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.State)
	}
	if r.Step != StateCompleted || !r.RemoveKeyboard {
		t.Fatalf("unexpected final reply: %+v", r)
	}
	if s.Collected != (Collected{}) {
		t.Fatalf("collected not cleared after submit: %+v", s.Collected)
	}

	recs := sink.records()
	if len(recs) != 1 {
		t.Fatalf("append calls = %d, want 1", len(recs))
	}
	row := recs[0].Row()
	want := []string{
		"2026-03-01 09:30:15",
		"4242",
		"olena_k",
		"Olena",
		"ua",
		"Олена",
		"+4512345678",
		"Орхус",
		"Клінінг",
		"Так",
		"telegram",
	}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("row = %q\nwant  %q", row, want)
	}
	if len(row) != len(Columns) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(Columns))
	}
	for i, v := range row {
		if v == "" {
			t.Fatalf("column %s is empty", Columns[i])
		}
	}
}

func TestRussianWalkUsesRussianLabels(t *testing.T) {
	sink := &recordingSink{}
	f := newTestFlow(t, sink)
	ctx := context.Background()

	inputs := []string{"🇷🇺 Русский", "Согласен", "Иван", "📞 Ввести номер вручную", "+380 67 123 45 67", "Орхус", "Бьюти"}
	s, _ := f.Handle(ctx, NewSession(testUser), sender(Start(testUser)))
	for _, text := range inputs {
		var r Reply
		s, r = f.Handle(ctx, s, sender(Text(testUser, text)))
		if r.Correction {
			t.Fatalf("input %q rejected: %s", text, r.Text)
		}
	}
	if s.State != StateAwaitExperience {
		t.Fatalf("state = %s, want await_experience", s.State)
	}

	// Ukrainian label is not part of the Russian set.
	s, r := f.Handle(ctx, s, sender(Text(testUser, "Так")))
	if !r.Correction || s.State != StateAwaitExperience {
		t.Fatalf("ukrainian label accepted in russian flow")
	}
	if got := r.Labels(); !reflect.DeepEqual(got, []string{"Да", "Нет"}) {
		t.Fatalf("offered labels = %v", got)
	}
	s, _ = f.Handle(ctx, s, sender(Text(testUser, "Нет")))
	if s.State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.State)
	}

	recs := sink.records()
	if len(recs) != 1 {
		t.Fatalf("append calls = %d, want 1", len(recs))
	}
	if recs[0].Segment != LangRU || recs[0].Phone != "+380671234567" || recs[0].Experience != "Нет" {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestInvalidInputLeavesSessionUnchanged(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	ctx := context.Background()

	cases := []struct {
		state State
		in    Inbound
	}{
		{StateAwaitLanguage, Text(testUser, "English")},
		{StateAwaitConsent, Text(testUser, "maybe")},
		{StateAwaitName, Text(testUser, "   ")},
		{StateAwaitPhoneMethod, Text(testUser, "+4512345678")},
		{StateAwaitPhoneManual, Text(testUser, "12345")},
		{StateAwaitCity, Text(testUser, "")},
		{StateAwaitField, Text(testUser, "IT")},
		{StateAwaitExperience, Text(testUser, "трохи")},
	}
	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			before := walkTo(t, f, tc.state)
			want := f.prompt(before)

			after, r := f.Handle(ctx, before, sender(tc.in))
			if !reflect.DeepEqual(after, before) {
				t.Fatalf("session changed:\nbefore %+v\nafter  %+v", before, after)
			}
			if !r.Correction {
				t.Fatalf("expected correction reply")
			}
			if r.Step != tc.state {
				t.Fatalf("reply step = %s, want %s", r.Step, tc.state)
			}
			if !strings.HasSuffix(r.Text, want.Text) {
				t.Fatalf("prompt not repeated: %q", r.Text)
			}
			if !reflect.DeepEqual(r.Choices, want.Choices) {
				t.Fatalf("choices = %+v, want %+v", r.Choices, want.Choices)
			}
		})
	}
}

func TestDisagreeCompletesWithoutRecord(t *testing.T) {
	sink := &recordingSink{}
	f := newTestFlow(t, sink)

	s := walkTo(t, f, StateAwaitConsent)
	s, r := f.Handle(context.Background(), s, sender(Text(testUser, "Не погоджуюсь")))

	if s.State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.State)
	}
	if s.Collected != (Collected{}) || s.Language != "" {
		t.Fatalf("session not cleared: %+v", s)
	}
	if r.Correction || r.Step != StateCompleted {
		t.Fatalf("unexpected reply: %+v", r)
	}
	if n := len(sink.records()); n != 0 {
		t.Fatalf("append calls = %d, want 0", n)
	}
}

func TestCancelFromAnyState(t *testing.T) {
	for _, st := range allStates {
		if st == StateCompleted {
			continue
		}
		t.Run(string(st), func(t *testing.T) {
			sink := &recordingSink{}
			f := newTestFlow(t, sink)
			s := walkTo(t, f, st)

			s, r := f.Handle(context.Background(), s, sender(Cancel(testUser)))
			if s.State != StateCompleted || s.Collected != (Collected{}) {
				t.Fatalf("cancel did not clear session: %+v", s)
			}
			if r.Step != StateCompleted {
				t.Fatalf("reply step = %s", r.Step)
			}
			if n := len(sink.records()); n != 0 {
				t.Fatalf("append calls = %d, want 0", n)
			}
		})
	}
}

func TestStartMidFlowDiscardsProgress(t *testing.T) {
	sink := &recordingSink{}
	f := newTestFlow(t, sink)
	ctx := context.Background()

	s := walkTo(t, f, StateAwaitCity)
	if s.Collected.Name == nil || s.Collected.Phone == nil {
		t.Fatalf("expected partial data before restart")
	}

	s, r := f.Handle(ctx, s, sender(Start(testUser)))
	if s.State != StateAwaitLanguage {
		t.Fatalf("state = %s, want await_language", s.State)
	}
	if s.Collected != (Collected{}) || s.Language != "" {
		t.Fatalf("restart kept data: %+v", s)
	}
	if !strings.HasPrefix(r.Text, f.catalog.Welcome) {
		t.Fatalf("restart reply lacks welcome: %q", r.Text)
	}

	inputs := []Inbound{
		Text(testUser, "🇺🇦 Українська"),
		Text(testUser, "Погоджуюсь"),
		Text(testUser, "Марія"),
		Contact(testUser, "4522334455"),
		Text(testUser, "Копенгаген"),
		Text(testUser, "Б'юті"),
		Text(testUser, "Ні"),
	}
	for _, in := range inputs {
		s, r = f.Handle(ctx, s, sender(in))
		if r.Correction {
			t.Fatalf("input %+v rejected: %s", in, r.Text)
		}
	}

	recs := sink.records()
	if len(recs) != 1 {
		t.Fatalf("append calls = %d, want 1", len(recs))
	}
	got := recs[0]
	if got.Name != "Марія" || got.Phone != "+4522334455" || got.City != "Копенгаген" || got.Field != "Б'юті" || got.Experience != "Ні" {
		t.Fatalf("record carries stale data: %+v", got)
	}
}

func TestContactSkipsPatternCheck(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	s := walkTo(t, f, StateAwaitPhoneMethod)

	s, r := f.Handle(context.Background(), s, sender(Contact(testUser, "1 (555) 010-99")))
	if r.Correction || s.State != StateAwaitCity {
		t.Fatalf("contact rejected: state=%s reply=%q", s.State, r.Text)
	}
	if got := *s.Collected.Phone; got != "+155501099" {
		t.Fatalf("phone = %q", got)
	}
}

func TestEmptyContactRePrompts(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	before := walkTo(t, f, StateAwaitPhoneMethod)

	after, r := f.Handle(context.Background(), before, sender(Contact(testUser, "")))
	if !r.Correction || after.State != StateAwaitPhoneMethod {
		t.Fatalf("empty contact accepted")
	}
}

func TestPhoneMethodOffersContactButton(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	s := walkTo(t, f, StateAwaitPhoneMethod)
	r := f.prompt(s)
	if len(r.Choices) != 2 || !r.Choices[0][0].RequestContact || r.Choices[1][0].RequestContact {
		t.Fatalf("unexpected phone choices: %+v", r.Choices)
	}
}

func TestConsentPromptIsHTML(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	s := walkTo(t, f, StateAwaitConsent)
	r := f.prompt(s)
	if !r.HTML || !strings.Contains(r.Text, `href="https://example.com/policy"`) {
		t.Fatalf("consent prompt = %+v", r)
	}
}

func TestCompletedIgnoresAnswers(t *testing.T) {
	sink := &recordingSink{}
	f := newTestFlow(t, sink)

	s, r := f.Handle(context.Background(), NewSession(testUser), sender(Text(testUser, "Так")))
	if s.State != StateCompleted || r.Step != StateCompleted {
		t.Fatalf("completed session advanced: %+v", s)
	}
	if r.Text != f.catalog.NotStarted {
		t.Fatalf("reply = %q", r.Text)
	}
	if len(sink.records()) != 0 {
		t.Fatalf("unexpected append")
	}
}

func TestZeroSessionBehavesAsCompleted(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	s, _ := f.Handle(context.Background(), Session{}, sender(Text(testUser, "hello")))
	if s.State != StateCompleted {
		t.Fatalf("state = %s", s.State)
	}
	if s.UserID != testUser || s.Username != "olena_k" {
		t.Fatalf("sender identity not captured: %+v", s)
	}
}

func TestAppendFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("sheets unavailable")}
	f := newTestFlow(t, sink)

	s := walkTo(t, f, StateAwaitExperience)
	s, r := f.Handle(context.Background(), s, sender(Text(testUser, "Ні")))
	if s.State != StateCompleted {
		t.Fatalf("state = %s, want completed", s.State)
	}
	if r.Correction || r.Text != f.catalog.Texts(LangUA).Done {
		t.Fatalf("user did not get success message: %q", r.Text)
	}
	if n := len(sink.records()); n != 1 {
		t.Fatalf("append calls = %d, want exactly 1 (no retry)", n)
	}
}

func TestNewRequiresSink(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without sink")
	}
}

func TestCityPromptThanksOnlyAfterPhone(t *testing.T) {
	f := newTestFlow(t, &recordingSink{})
	ctx := context.Background()
	ua := f.catalog.Texts(LangUA)

	s := walkTo(t, f, StateAwaitPhoneManual)
	s, r := f.Handle(ctx, s, sender(Text(testUser, "+45 12 34 56 78")))
	if s.State != StateAwaitCity || r.Text != ua.PhoneAccepted+"\n\n"+ua.AskCity {
		t.Fatalf("state = %s, reply = %q", s.State, r.Text)
	}

	_, r = f.Handle(ctx, s, sender(Text(testUser, " ")))
	if r.Text != ua.CityInvalid+"\n\n"+ua.AskCity {
		t.Fatalf("city correction = %q", r.Text)
	}
	if strings.Contains(r.Text, ua.PhoneAccepted) {
		t.Fatalf("correction repeats the thank-you line: %q", r.Text)
	}
}

func TestDefaultCatalogPolicyURL(t *testing.T) {
	for _, url := range []string{"", "   "} {
		consent := DefaultCatalog(url).Texts(LangUA).ConsentPrompt
		if !strings.Contains(consent, `href="`+DefaultPolicyURL+`"`) {
			t.Fatalf("DefaultCatalog(%q) consent = %q", url, consent)
		}
	}
	if consent := DefaultCatalog("https://example.com/p?a=1&b=2").Texts(LangRU).ConsentPrompt; !strings.Contains(consent, `href="https://example.com/p?a=1&amp;b=2"`) {
		t.Fatalf("custom url not escaped: %q", consent)
	}
}
