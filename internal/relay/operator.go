package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
	"github.com/nextlevelbuilder/opsrelay/pkg/protocol"
)

// Alert texts shown on refused button presses.
const (
	alertNotAllowed    = "⛔ Not allowed"
	alertInvalidID     = "❌ Invalid user identifier"
	alertUnknownAction = "❓ Unknown action"
	alertUnknownClient = "❌ Client not found"
)

func (r *Router) handleOperatorCommand(ctx context.Context, m *Message) error {
	name, args, _ := parseCommand(m.Text)
	switch name {
	case "/start", "/help":
		r.notify(ctx, r.compose.Menu())
		return nil
	case "/clients":
		return r.showRoster(ctx)
	case "/history":
		return r.historyCommand(ctx, args)
	case "/reply":
		return r.replyCommand(ctx, args)
	case "/cancel":
		r.cancelReply(ctx)
		return nil
	}
	r.notify(ctx, r.compose.Notice("Unknown command. Send /help for the list."))
	return nil
}

func (r *Router) handleOperatorKeyword(ctx context.Context, m *Message) error {
	switch strings.TrimSpace(m.Text) {
	case KeywordClients:
		return r.showRoster(ctx)
	case KeywordHelp:
		r.notify(ctx, r.compose.Help())
	case KeywordCancel:
		r.cancelReply(ctx)
	}
	return nil
}

func (r *Router) cancelReply(ctx context.Context) {
	p := r.session.Cancel()
	if p != nil && p.PromptMessageID != 0 {
		r.deleteBestEffort(ctx, p.PromptMessageID)
	}
	r.notify(ctx, r.compose.Cancelled(p))
}

func (r *Router) historyCommand(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 2 {
		r.notify(ctx, r.compose.Notice("Usage: /history <user_id> [limit]"))
		return nil
	}
	userID, err := parseUserID(fields[0])
	if err != nil {
		r.notify(ctx, r.compose.Notice(alertInvalidID))
		return nil
	}
	limit := store.DefaultHistoryLimit
	if len(fields) == 2 {
		if limit, err = strconv.Atoi(fields[1]); err != nil {
			r.notify(ctx, r.compose.Notice("Usage: /history <user_id> [limit]"))
			return nil
		}
	}
	return r.showHistory(ctx, userID, limit)
}

// replyCommand sends text to a user directly, leaving the pending reply alone.
func (r *Router) replyCommand(ctx context.Context, args string) error {
	rawID, text := args, ""
	if i := strings.IndexAny(args, " \n\t"); i > 0 {
		rawID, text = args[:i], strings.TrimSpace(args[i+1:])
	}
	if rawID == "" || text == "" {
		r.notify(ctx, r.compose.Notice("Usage: /reply <user_id> <text>"))
		return nil
	}
	userID, err := parseUserID(rawID)
	if err != nil {
		r.notify(ctx, r.compose.Notice(alertInvalidID))
		return nil
	}

	// A store error does not block the send, but an id that never wrote
	// is refused.
	name, known := idLabel(userID), false
	c, err := r.store.Client(ctx, userID)
	switch {
	case err != nil:
		slog.Warn("relay: client lookup failed", "user_id", userID, "error", err)
	case c == nil:
		r.notify(ctx, r.compose.Notice(alertUnknownClient))
		return nil
	default:
		name, known = c.DisplayName(), true
	}

	if err := r.deliver(ctx, userID, name, text, nil, known); err != nil {
		r.notify(ctx, r.compose.ReplyFailed(name, err, false))
		return err
	}
	return nil
}

// handleOperatorReply implements the reply state machine for operator
// messages that are neither commands nor keywords.
func (r *Router) handleOperatorReply(ctx context.Context, m *Message) error {
	rec, replied, err := r.peekTarget(m.ReplyToMessageID)
	if errors.Is(err, ErrNoTarget) {
		slog.Debug("relay: operator message without reply target", "message_id", m.MessageID)
		return nil
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		r.notify(ctx, r.compose.ReplyNeedsText(r.session.Current() != nil))
		return nil
	}

	// A referenced notification names the user; the pending slot is only
	// consumed when it targets that same user.
	var (
		userID  int64
		name    string
		claimed *PendingReply
	)
	if replied {
		userID, name = rec.UserID, rec.DisplayName
		claimed = r.session.Take(rec.UserID)
	} else {
		claimed = r.session.Take(0)
		if claimed == nil {
			// Lost a race with /cancel or another reply.
			return nil
		}
		userID, name = claimed.UserID, claimed.DisplayName
	}
	if name == "" {
		name = idLabel(userID)
	}

	if err := r.deliver(ctx, userID, name, m.Text, claimed, true); err != nil {
		restored := r.session.Restore(claimed)
		r.notify(ctx, r.compose.ReplyFailed(name, err, restored))
		return err
	}
	return nil
}

// peekTarget reports whether an operator message replying to replyTo has a
// target, without consuming the pending reply. replied is true when replyTo
// is a known operator-chat message.
func (r *Router) peekTarget(replyTo int) (rec NotificationRecord, replied bool, err error) {
	if rec, ok := r.notes.Lookup(replyTo); ok {
		return rec, true, nil
	}
	if r.session.Current() != nil {
		return NotificationRecord{}, false, nil
	}
	return NotificationRecord{}, false, ErrNoTarget
}

// deliver sends operator text to a user and records it. claimed, when set,
// is the pending reply this delivery consumed. The confirmation is
// correlated to the user only when known says the user is a client.
func (r *Router) deliver(ctx context.Context, userID int64, name, text string, claimed *PendingReply, known bool) error {
	if _, err := r.transport.Send(ctx, Outgoing{ChatID: userID, Text: text}); err != nil {
		return fmt.Errorf("send to user %d: %w", userID, err)
	}

	msg := store.Message{
		UserID:    userID,
		Direction: store.DirectionFromOperator,
		Kind:      store.KindText,
		Text:      text,
	}
	if err := r.store.Append(ctx, &msg); err != nil {
		slog.Error("relay: store operator reply", "user_id", userID, "error", err)
		r.notify(ctx, r.compose.ReplyNotSaved(name))
	}

	if claimed != nil && claimed.PromptMessageID != 0 {
		r.deleteBestEffort(ctx, claimed.PromptMessageID)
	}

	if id := r.notify(ctx, r.compose.ReplySent(name)); id != 0 && known {
		r.notes.Record(NotificationRecord{MessageID: id, UserID: userID, DisplayName: name})
	}
	slog.Info("relay: reply delivered", "user_id", userID, "pending", claimed != nil)
	return nil
}

func (r *Router) deleteBestEffort(ctx context.Context, messageID int) {
	if err := r.transport.Delete(ctx, r.session.OperatorChatID, messageID); err != nil {
		slog.Debug("relay: delete operator message", "message_id", messageID, "error", err)
	}
}

// dispatchAction returns the alert text for refused actions.
func (r *Router) dispatchAction(ctx context.Context, a *Action) (string, error) {
	if !r.IsOperatorChat(a.ChatID) {
		return alertNotAllowed, nil
	}

	act, err := protocol.Decode(a.Payload)
	switch {
	case errors.Is(err, protocol.ErrInvalidID):
		return alertInvalidID, nil
	case err != nil:
		return alertUnknownAction, nil
	case protocol.RequiresTarget(act.Name) && !act.HasTarget():
		return alertInvalidID, nil
	}

	switch act.Name {
	case protocol.ActionReply, protocol.ActionWrite:
		return r.startReply(ctx, a, act)
	case protocol.ActionHistory:
		return "", r.showHistory(ctx, act.UserID, store.DefaultHistoryLimit)
	case protocol.ActionClients:
		return "", r.showRoster(ctx)
	case protocol.ActionClient:
		return r.showClientCard(ctx, act.UserID)
	}
	return alertUnknownAction, nil
}

// startReply moves the session to AwaitingReplyText for the action's user.
func (r *Router) startReply(ctx context.Context, a *Action, act protocol.Action) (string, error) {
	userID := act.UserID

	var name string
	if rec, ok := r.notes.Lookup(a.MessageID); ok && rec.UserID == userID {
		name = rec.DisplayName
	}
	client, err := r.store.Client(ctx, userID)
	switch {
	case err != nil:
		slog.Warn("relay: client lookup failed", "user_id", userID, "error", err)
	case client == nil:
		return alertUnknownClient, nil
	case name == "":
		name = client.DisplayName()
	}
	if name == "" {
		name = idLabel(userID)
	}

	if act.Name == protocol.ActionReply && a.MessageID != 0 {
		if err := r.transport.ClearButtons(ctx, a.ChatID, a.MessageID); err != nil {
			slog.Debug("relay: clear buttons", "message_id", a.MessageID, "error", err)
		}
	}

	promptID := r.notify(ctx, r.compose.ReplyPrompt(userID, name))
	prev := r.session.Begin(PendingReply{UserID: userID, DisplayName: name, PromptMessageID: promptID})
	if promptID != 0 {
		r.notes.Record(NotificationRecord{MessageID: promptID, UserID: userID, DisplayName: name})
	}
	if prev != nil && prev.UserID != userID {
		slog.Info("relay: pending reply replaced", "from_user", prev.UserID, "to_user", userID)
	}
	return "", nil
}

func (r *Router) showHistory(ctx context.Context, userID int64, limit int) error {
	msgs, err := r.store.History(ctx, userID, limit)
	if err != nil {
		r.notify(ctx, r.compose.Notice("❌ Could not load history."))
		return fmt.Errorf("load history: %w", err)
	}
	for _, out := range r.compose.History(userID, msgs) {
		if _, err := r.transport.Send(ctx, out); err != nil {
			return fmt.Errorf("send history: %w", err)
		}
	}
	return nil
}

func (r *Router) showRoster(ctx context.Context) error {
	clients, err := r.store.Roster(ctx)
	if err != nil {
		r.notify(ctx, r.compose.Notice("❌ Could not load clients."))
		return fmt.Errorf("load roster: %w", err)
	}
	if _, err := r.transport.Send(ctx, r.compose.Roster(clients, r.rosterLimit)); err != nil {
		return fmt.Errorf("send roster: %w", err)
	}
	return nil
}

func (r *Router) showClientCard(ctx context.Context, userID int64) (string, error) {
	c, err := r.store.Client(ctx, userID)
	if err != nil {
		r.notify(ctx, r.compose.Notice("❌ Could not load client."))
		return "", fmt.Errorf("load client: %w", err)
	}
	if c == nil {
		return alertUnknownClient, nil
	}
	if _, err := r.transport.Send(ctx, r.compose.ClientCard(*c)); err != nil {
		return "", fmt.Errorf("send client card: %w", err)
	}
	return "", nil
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", protocol.ErrInvalidID, s)
	}
	return id, nil
}
