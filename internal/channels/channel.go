// Package channels provides the platform abstraction between chat
// transports and the relay. A channel receives platform updates, converts
// them to relay events and hands them to a Handler.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/nextlevelbuilder/opsrelay/internal/relay"
)

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram").
	Name() string

	// Start begins receiving updates. Should be non-blocking after setup.
	Start(ctx context.Context) error

	// Stop stops receiving updates and waits for in-flight handlers.
	Stop(ctx context.Context) error

	// IsRunning returns whether the channel is actively processing updates.
	IsRunning() bool
}

// Handler consumes converted events. *relay.Router implements it.
type Handler interface {
	HandleMessage(ctx context.Context, m *relay.Message) error
	HandleAction(ctx context.Context, a *relay.Action) error
	IsOperatorChat(chatID int64) bool
}

var _ Handler = (*relay.Router)(nil)

// BaseChannel provides shared functionality for all channel implementations.
// Channel implementations should embed this struct.
type BaseChannel struct {
	name    string
	handler Handler
	running atomic.Bool
}

// NewBaseChannel creates a new BaseChannel with the given parameters.
// The handler may be attached later with SetHandler, before Start.
func NewBaseChannel(name string, h Handler) *BaseChannel {
	return &BaseChannel{name: name, handler: h}
}

// SetHandler attaches the event consumer.
func (c *BaseChannel) SetHandler(h Handler) { c.handler = h }

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// Handler returns the event consumer.
func (c *BaseChannel) Handler() Handler { return c.handler }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running.Store(running) }

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
