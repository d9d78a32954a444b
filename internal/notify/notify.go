// Package notify defines best-effort direct delivery to a user. The
// schedulers depend only on the Notifier interface; the Telegram adapter is
// wired in at startup.
package notify

import "context"

// Outcome classifies a delivery attempt. The scheduler treats Forbidden and
// Transient the same way (back off without escalating), but the distinction
// is kept for logging.
type Outcome int

const (
	OutcomeSent Outcome = iota
	// OutcomeForbidden: the recipient blocked the bot or never opened a
	// chat with it. Terminal for this attempt.
	OutcomeForbidden
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "transient_error"
	}
}

// Button is one inline action attached to a digest message. Data round-trips
// through the chat platform's callback payload.
type Button struct {
	Label string
	Data  string
}

// Notifier delivers direct messages, fallibly.
type Notifier interface {
	SendDirectMessage(ctx context.Context, userID int64, text string) Outcome
	// SendDigest sends a message with one row of buttons per entry.
	SendDigest(ctx context.Context, userID int64, text string, buttons []Button) Outcome
}
