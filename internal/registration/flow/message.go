package flow

// InboundKind distinguishes the shapes of a user message.
type InboundKind int

const (
	// KindText is a free-text message or a pressed reply button.
	KindText InboundKind = iota
	// KindContact is a shared contact carrying a phone number.
	KindContact
	// KindStart re-initializes the conversation.
	KindStart
	// KindCancel abandons the conversation.
	KindCancel
)

func (k InboundKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindContact:
		return "contact"
	case KindStart:
		return "start"
	case KindCancel:
		return "cancel"
	}
	return "unknown"
}

// Inbound is one message from the user together with sender identity.
type Inbound struct {
	Kind  InboundKind
	Text  string
	Phone string

	UserID      int64
	Username    string
	DisplayName string
}

// Text builds a free-text inbound message.
func Text(userID int64, text string) Inbound {
	return Inbound{Kind: KindText, Text: text, UserID: userID}
}

// Contact builds a contact inbound message.
func Contact(userID int64, phone string) Inbound {
	return Inbound{Kind: KindContact, Phone: phone, UserID: userID}
}

// Start builds the start signal.
func Start(userID int64) Inbound {
	return Inbound{Kind: KindStart, UserID: userID}
}

// Cancel builds the cancel signal.
func Cancel(userID int64) Inbound {
	return Inbound{Kind: KindCancel, UserID: userID}
}

// Choice is a single button offered to the user.
type Choice struct {
	Label string
	// RequestContact asks the client to share the user's phone number on press.
	RequestContact bool
}

// Reply is the outbound directive produced by one transition.
type Reply struct {
	Text string
	// Choices restricts the expected answers; empty for free-text steps.
	Choices [][]Choice
	// RemoveKeyboard hides a previously shown choice keyboard.
	RemoveKeyboard bool
	// HTML marks Text as HTML formatted.
	HTML bool

	// Step is the state whose prompt was emitted.
	Step State
	// Correction is set when the input was rejected and the prompt repeated.
	Correction bool
}

// Labels flattens the choice rows into the list of acceptable labels.
func (r Reply) Labels() []string {
	var out []string
	for _, row := range r.Choices {
		for _, c := range row {
			out = append(out, c.Label)
		}
	}
	return out
}
