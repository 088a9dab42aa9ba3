// Package relay routes messages between end-users and the operator chat.
//
// Every inbound event goes through an explicit, ordered dispatch table
// (see routes.go). Operator replies are resolved against two pieces of
// shared state: the NotificationTable, which maps operator-chat message ids
// to users, and the Session's single pending-reply slot.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

// ErrNoTarget is returned when an operator reply cannot be attributed to a user.
var ErrNoTarget = errors.New("no reply target")

// DefaultRosterLimit caps the number of clients listed by /clients.
const DefaultRosterLimit = 20

const tracerName = "github.com/nextlevelbuilder/opsrelay/internal/relay"

// Options configures a Router.
type Options struct {
	OperatorChatID        int64
	PendingReplyTTL       time.Duration // 0: never expires
	NotificationCacheSize int           // 0: DefaultNotificationCacheSize
	RosterLimit           int           // 0: DefaultRosterLimit
	Location              *time.Location
	Tracer                trace.Tracer // nil: global provider
}

// Router is the dispatch engine. It is safe for concurrent use; each
// inbound event may be handled on its own goroutine.
type Router struct {
	transport Transport
	store     store.MessageStore
	session   *Session
	notes     *NotificationTable
	compose   Composer

	rosterLimit int
	tracer      trace.Tracer
}

// New creates a Router delivering through t and persisting into s.
func New(t Transport, s store.MessageStore, opts Options) *Router {
	rosterLimit := opts.RosterLimit
	if rosterLimit <= 0 {
		rosterLimit = DefaultRosterLimit
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Router{
		transport:   t,
		store:       s,
		session:     NewSession(opts.OperatorChatID, opts.PendingReplyTTL),
		notes:       NewNotificationTable(opts.NotificationCacheSize),
		compose:     Composer{OperatorChatID: opts.OperatorChatID, Location: opts.Location},
		rosterLimit: rosterLimit,
		tracer:      tracer,
	}
}

// Session exposes the operator reply state.
func (r *Router) Session() *Session { return r.session }

// Notifications exposes the correlation table.
func (r *Router) Notifications() *NotificationTable { return r.notes }

// OperatorChatID returns the configured operator chat.
func (r *Router) OperatorChatID() int64 { return r.session.OperatorChatID }

// IsOperatorChat reports whether chatID is the operator chat.
func (r *Router) IsOperatorChat(chatID int64) bool { return chatID == r.session.OperatorChatID }

// HandleMessage dispatches one inbound message through the route table.
// Errors are logged and recorded on the span; the returned error is for
// callers that want to count failures; it never needs to stop the loop.
func (r *Router) HandleMessage(ctx context.Context, m *Message) error {
	route, ok := r.match(m)
	if !ok {
		slog.Debug("relay: message ignored", "chat_id", m.ChatID, "private", m.Private)
		return nil
	}

	ctx, span, log := r.startEvent(ctx, route.name,
		attribute.Int64("relay.chat_id", m.ChatID),
		attribute.Int("relay.message_id", m.MessageID),
	)
	defer span.End()

	log.Debug("relay: dispatch", "chat_id", m.ChatID, "message_id", m.MessageID, "from", m.From.ID)
	if err := route.handle(r, ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("relay: handler failed", "chat_id", m.ChatID, "error", err)
		return fmt.Errorf("%s: %w", route.name, err)
	}
	return nil
}

// HandleAction dispatches a button press. The press is acknowledged exactly
// once, with an alert when the action was refused.
func (r *Router) HandleAction(ctx context.Context, a *Action) error {
	ctx, span, log := r.startEvent(ctx, "action",
		attribute.Int64("relay.chat_id", a.ChatID),
		attribute.String("relay.payload", a.Payload),
	)
	defer span.End()

	alert, err := r.dispatchAction(ctx, a)
	if alert != "" {
		log.Info("relay: action refused", "payload", a.Payload, "from", a.From.ID, "reason", alert)
	}
	if aerr := r.transport.AnswerAction(ctx, a.ID, alert, alert != ""); aerr != nil {
		log.Warn("relay: answer action failed", "error", aerr)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("relay: action failed", "payload", a.Payload, "error", err)
		return fmt.Errorf("action %q: %w", a.Payload, err)
	}
	return nil
}

func (r *Router) startEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, *slog.Logger) {
	eventID := uuid.Must(uuid.NewV7()).String()
	attrs = append(attrs, attribute.String("relay.event_id", eventID), attribute.String("relay.route", name))
	ctx, span := r.tracer.Start(ctx, "relay."+name, trace.WithAttributes(attrs...))
	return ctx, span, slog.With("event_id", eventID, "route", name)
}

// notify sends a message to the operator chat, logging delivery failures.
// It returns the sent message id, or 0.
func (r *Router) notify(ctx context.Context, out Outgoing) int {
	id, err := r.transport.Send(ctx, out)
	if err != nil {
		slog.Warn("relay: operator notice failed", "error", err)
		return 0
	}
	return id
}
