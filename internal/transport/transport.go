// Package transport abstracts the messenger the bot talks through.
package transport

import (
	"context"
	"unicode/utf8"

	"signal_kz/internal/model"
)

// Messenger size limits, in characters
const (
	CaptionLimit = 1024
	TextLimit    = 4096
)

// Button is one labelled action attached to a message. Exactly one of
// Data (a callback token) or URL is set.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Message is an outgoing message. When PhotoRef is set the message is sent
// as a photo and Text becomes its caption.
type Message struct {
	Text            string
	PhotoRef        string
	Buttons         [][]Button
	RequestLocation string // label of a one-time "share location" button
	RemoveKeyboard  bool
}

// Sender delivers messages to numeric recipient ids. Every call is an
// independent delivery attempt.
type Sender interface {
	Send(ctx context.Context, recipientID int64, msg Message) error
}

// Inbound is a normalised incoming update
type Inbound struct {
	UserID  int64
	ChatID  int64
	Profile model.Profile

	Command string // without the leading slash, empty for plain messages
	Args    []string

	Text     string
	Location *model.Location
	PhotoRef string

	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the update is a button press
func (in Inbound) IsCallback() bool {
	return in.CallbackID != ""
}

// Acknowledger confirms receipt of a button press to the messenger
type Acknowledger interface {
	Ack(ctx context.Context, callbackID string) error
}

// Row builds a single button row
func Row(buttons ...Button) []Button {
	return buttons
}

// Clip shortens s to at most limit characters, marking the cut with an ellipsis
func Clip(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
