package relay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

// handleUserStart greets a user and announces them to the operator.
func (r *Router) handleUserStart(ctx context.Context, m *Message) error {
	user := m.From
	name := user.DisplayName()

	msg := r.userMessage(m, Content{Kind: store.KindCommand, Text: strings.TrimSpace(m.Text)})
	if err := r.store.Append(ctx, &msg); err != nil {
		slog.Error("relay: store /start", "user_id", user.ID, "error", err)
	}
	if m.Throttled {
		return nil
	}

	if _, err := r.transport.Send(ctx, r.compose.Greeting(user.ID)); err != nil {
		slog.Warn("relay: greeting failed", "user_id", user.ID, "error", err)
	}

	if id := r.notify(ctx, r.compose.NewUser(user.ID, name)); id != 0 {
		r.notes.Record(NotificationRecord{MessageID: id, UserID: user.ID, DisplayName: name})
	}
	return nil
}

// handleUserContent stores a user message and forwards it to the operator.
// Storage failures do not stop the notification; throttled messages are
// stored only.
func (r *Router) handleUserContent(ctx context.Context, m *Message) error {
	user := m.From
	name := user.DisplayName()
	content := Classify(m)
	if isCommand(m) {
		content.Kind = store.KindCommand
	}

	saved := true
	msg := r.userMessage(m, content)
	if err := r.store.Append(ctx, &msg); err != nil {
		saved = false
		slog.Error("relay: store user message", "user_id", user.ID, "kind", content.Kind, "error", err)
	}
	if m.Throttled {
		slog.Debug("relay: operator notification suppressed, sender throttled", "user_id", user.ID, "saved", saved)
		return nil
	}

	id, err := r.transport.Send(ctx, r.compose.Notification(user.ID, name, content, saved))
	if err != nil {
		slog.Error("relay: notify operator", "user_id", user.ID, "error", err)
	} else {
		r.notes.Record(NotificationRecord{MessageID: id, UserID: user.ID, DisplayName: name})
	}

	if content.Kind.IsTextual() {
		return nil
	}
	copyID, err := r.transport.Copy(ctx, r.session.OperatorChatID, m.ChatID, m.MessageID)
	if err != nil {
		slog.Warn("relay: copy media to operator", "user_id", user.ID, "kind", content.Kind, "error", err)
		return nil
	}
	r.notes.Record(NotificationRecord{MessageID: copyID, UserID: user.ID, DisplayName: name})
	return nil
}

func (r *Router) userMessage(m *Message, content Content) store.Message {
	return store.Message{
		UserID:         m.From.ID,
		Username:       m.From.Username,
		FullName:       m.From.FullName(),
		Direction:      store.DirectionFromUser,
		Kind:           content.Kind,
		Text:           content.Text,
		MediaReference: content.MediaReference,
		CreatedAt:      m.Date,
	}
}
