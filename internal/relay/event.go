package relay

import (
	"strings"
	"time"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

// Sender identifies the author of an inbound event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// FullName joins first and last name; empty when both are missing.
func (s Sender) FullName() string { return store.JoinName(s.FirstName, s.LastName) }

// DisplayName follows the relay-wide naming rule.
func (s Sender) DisplayName() string {
	return store.DisplayName(s.ID, s.Username, s.FullName())
}

// Message is an inbound chat message, already decoupled from the platform SDK.
// Media ids are empty when the attachment is absent.
type Message struct {
	ChatID           int64
	Private          bool
	MessageID        int
	From             Sender
	Text             string
	Caption          string
	PhotoID          string // largest available size
	DocumentID       string
	VoiceID          string
	VideoID          string
	OtherMedia       bool // sticker, audio, location... anything not classified above
	ReplyToMessageID int
	Date             time.Time
	// Throttled marks a message from a sender over the flood limit: it is
	// stored but not forwarded to the operator.
	Throttled bool
}

// Action is a button press.
type Action struct {
	ID        string
	ChatID    int64
	MessageID int // message carrying the pressed button
	From      Sender
	Payload   string
}

// Content is the storable part of a user message.
type Content struct {
	Kind           store.Kind
	Text           string
	MediaReference string
}

// Classify picks exactly one kind for a message: photo, document, voice and
// video in that order, then text, then unknown. Text comes from the message
// text or, for media, the caption.
func Classify(m *Message) Content {
	switch {
	case m.PhotoID != "":
		return Content{Kind: store.KindPhoto, Text: m.Caption, MediaReference: m.PhotoID}
	case m.DocumentID != "":
		return Content{Kind: store.KindDocument, Text: m.Caption, MediaReference: m.DocumentID}
	case m.VoiceID != "":
		return Content{Kind: store.KindVoice, Text: m.Caption, MediaReference: m.VoiceID}
	case m.VideoID != "":
		return Content{Kind: store.KindVideo, Text: m.Caption, MediaReference: m.VideoID}
	case m.Text != "":
		return Content{Kind: store.KindText, Text: m.Text}
	}
	return Content{Kind: store.KindUnknown, Text: m.Caption}
}

// parseCommand splits "/name@bot args" into a lower-cased "/name" and the raw
// remainder. ok is false when text is not a command.
func parseCommand(text string) (name, rest string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i > 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
