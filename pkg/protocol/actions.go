// Package protocol defines the callback payloads carried by inline buttons.
// Payloads are opaque strings of the form "<action>" or "<action>:<user id>",
// limited by Telegram to 64 bytes.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is bumped whenever the payload format changes in a way
// that makes buttons sent by an older build unreadable.
const ProtocolVersion = 1

// Action names.
const (
	ActionReply   = "reply"   // start a pending reply for a user
	ActionWrite   = "write"   // same as reply, offered from the roster
	ActionHistory = "history" // show message history for a user
	ActionClients = "clients" // show the roster
	ActionClient  = "client"  // show the detail card of one client
)

// MaxPayloadBytes is the Telegram limit for callback_data.
const MaxPayloadBytes = 64

var (
	// ErrInvalidID is returned when a payload carries a malformed user id.
	ErrInvalidID = errors.New("invalid user identifier")
	// ErrEmptyPayload is returned for an empty callback payload.
	ErrEmptyPayload = errors.New("empty action payload")
)

// Action is a decoded callback payload.
type Action struct {
	Name   string
	UserID int64 // zero for actions without a target
}

// HasTarget reports whether the action addresses a specific user.
func (a Action) HasTarget() bool { return a.UserID != 0 }

// Encode builds the payload for an action addressed to userID.
// userID 0 produces a bare action name.
func Encode(name string, userID int64) string {
	if userID == 0 {
		return name
	}
	return name + ":" + strconv.FormatInt(userID, 10)
}

// Decode parses a callback payload. The action name is returned even when
// the id part is malformed so callers can report which action failed.
func Decode(payload string) (Action, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Action{}, ErrEmptyPayload
	}

	name, rawID, hasID := strings.Cut(payload, ":")
	act := Action{Name: name}
	if !hasID {
		return act, nil
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id == 0 {
		return act, fmt.Errorf("%w: %q", ErrInvalidID, rawID)
	}
	act.UserID = id
	return act, nil
}

// RequiresTarget reports whether an action name must carry a user id.
func RequiresTarget(name string) bool {
	switch name {
	case ActionReply, ActionWrite, ActionHistory, ActionClient:
		return true
	}
	return false
}
