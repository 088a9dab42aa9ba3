package relay

import "context"

// Button is one inline action button. Payload is a pkg/protocol string.
type Button struct {
	Text    string
	Payload string
}

// Outgoing is a message the relay asks the transport to deliver.
type Outgoing struct {
	ChatID   int64
	Text     string
	HTML     bool       // Text uses Telegram HTML markup
	Buttons  [][]Button // inline keyboard rows
	Keyboard [][]string // persistent reply-keyboard rows (operator menu)
}

// Transport is the subset of the chat platform the relay drives.
// Every call is bounded by the transport's own timeout and returns an error
// instead of blocking indefinitely.
type Transport interface {
	// Send delivers msg and returns the platform message id.
	Send(ctx context.Context, msg Outgoing) (int, error)
	// Copy re-delivers an existing message to another chat, keeping media intact.
	Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
	// ClearButtons removes the inline keyboard of a sent message.
	ClearButtons(ctx context.Context, chatID int64, messageID int) error
	// AnswerAction acknowledges a button press; a non-empty text is shown,
	// as a modal alert when alert is true.
	AnswerAction(ctx context.Context, actionID, text string, alert bool) error
}
