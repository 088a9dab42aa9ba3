package store

import (
	"context"
	"time"
)

// Direction tells who authored a message.
type Direction string

const (
	DirectionFromUser     Direction = "from_user"
	DirectionFromOperator Direction = "from_operator"
)

// Kind classifies message content.
type Kind string

const (
	KindText     Kind = "text"
	KindCommand  Kind = "command"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
	KindVoice    Kind = "voice"
	KindVideo    Kind = "video"
	KindUnknown  Kind = "unknown"
)

// IsTextual reports whether the kind carries its body as plain text.
func (k Kind) IsTextual() bool { return k == KindText || k == KindCommand }

const (
	// DefaultHistoryLimit is used when a caller passes a non-positive limit.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps a single history query.
	MaxHistoryLimit = 100
)

// Message is one immutable entry of the relay log.
// Optional fields are empty strings when absent.
type Message struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
	Direction      Direction `json:"direction"`
	Kind           Kind      `json:"kind"`
	Text           string    `json:"text,omitempty"`
	MediaReference string    `json:"media_reference,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Client is a roster row derived from the message log.
// Username and FullName are the most recent non-empty values, picked independently.
type Client struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// DisplayName resolves the operator-facing label for a client.
func (c Client) DisplayName() string {
	return DisplayName(c.UserID, c.Username, c.FullName)
}

// MessageStore is the append-only message log shared by the relay and the CLI.
// Implementations must be safe for concurrent use.
type MessageStore interface {
	// Append records msg, assigning ID and (when zero) CreatedAt.
	Append(ctx context.Context, msg *Message) error

	// History returns the last limit messages of a user, oldest first.
	// limit is clamped with ClampHistoryLimit.
	History(ctx context.Context, userID int64, limit int) ([]Message, error)

	// Roster lists every user who has written, most recently active first.
	Roster(ctx context.Context) ([]Client, error)

	// Client returns one roster row, or nil when the user never wrote.
	Client(ctx context.Context, userID int64) (*Client, error)

	Close() error
}

// ClampHistoryLimit maps a requested history size into [1, MaxHistoryLimit],
// using DefaultHistoryLimit for non-positive values.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
