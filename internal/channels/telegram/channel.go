// Package telegram connects the relay to the Telegram Bot API using long
// polling. It converts updates to relay events and implements
// relay.Transport on top of telego.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/opsrelay/internal/channels"
	"github.com/nextlevelbuilder/opsrelay/internal/config"
	"github.com/nextlevelbuilder/opsrelay/internal/relay"
)

// handlerTimeout bounds the work done for one update.
const handlerTimeout = 2 * time.Minute

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot     *telego.Bot
	config  config.TelegramConfig
	limiter *rate.Limiter // outbound Bot API calls
	flood   *channels.SenderLimiter
	timeout time.Duration

	handlers   *errgroup.Group
	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when polling goroutine exits
}

var _ relay.Transport = (*Channel)(nil)

// NewBot creates a telego bot honoring the configured proxy. extra options
// are appended after the defaults.
func NewBot(cfg config.TelegramConfig, extra ...telego.BotOption) (*telego.Bot, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}
	opts = append(opts, extra...)

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}

// New creates a new Telegram channel from config. The event handler is
// attached with SetHandler before Start.
func New(cfg config.TelegramConfig, extra ...telego.BotOption) (*Channel, error) {
	bot, err := NewBot(cfg, extra...)
	if err != nil {
		return nil, err
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 25
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram", nil),
		bot:         bot,
		config:      cfg,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		flood:       channels.NewSenderLimiter(cfg.UserRatePerMinute),
		timeout:     cfg.RequestTimeoutDuration(),
	}, nil
}

// Bot exposes the underlying client for one-off administrative calls.
func (c *Channel) Bot() *telego.Bot { return c.bot }

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	if c.Handler() == nil {
		return errors.New("telegram: no handler attached")
	}
	slog.Info("starting telegram bot (polling mode)")

	// getUpdates is refused while a webhook is registered.
	c.ensureNoWebhook(ctx)

	// Create a cancellable context for the polling goroutine.
	// Stop() cancels this context to cleanly shut down long polling.
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	pollTimeout := c.config.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: pollTimeout,
		AllowedUpdates: []string{
			"message",
			"callback_query",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	limit := c.config.MaxConcurrentUpdates
	if limit <= 0 {
		limit = 64
	}
	c.handlers = &errgroup.Group{}
	c.handlers.SetLimit(limit)

	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.bot.Username(), "max_concurrent", limit)

	// Register bot menu commands with retry.
	go func() {
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.SyncMenuCommands(pollCtx); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				if attempt < 3 {
					select {
					case <-pollCtx.Done():
						return
					case <-time.After(time.Duration(attempt*5) * time.Second):
					}
				}
			} else {
				slog.Info("telegram menu commands synced")
				return
			}
		}
	}()

	// Handlers outlive polling so in-flight replies finish during shutdown.
	handlerCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				// Go blocks while the handler limit is reached, which
				// throttles polling instead of queueing without bound.
				c.handlers.Go(func() error {
					c.dispatch(handlerCtx, update)
					return nil
				})
			}
		}
	}()

	return nil
}

// dispatch converts one update and hands it to the relay.
func (c *Channel) dispatch(ctx context.Context, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("telegram update handler panicked", "update_id", update.UpdateID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	h := c.Handler()
	switch {
	case update.Message != nil:
		m := toMessage(update.Message)
		if m == nil {
			slog.Debug("telegram service message skipped", "chat_id", update.Message.Chat.ID)
			return
		}
		slog.Debug("telegram message received",
			"chat_type", update.Message.Chat.Type,
			"chat_id", m.ChatID,
			"user_id", m.From.ID,
			"username", m.From.Username,
			"text_preview", channels.Truncate(m.Text, 60),
		)
		if !h.IsOperatorChat(m.ChatID) && !c.flood.Allow(m.From.ID) {
			slog.Warn("telegram sender rate limited, message stored without notification", "user_id", m.From.ID)
			m.Throttled = true
		}
		_ = h.HandleMessage(ctx, m)

	case update.CallbackQuery != nil:
		_ = h.HandleAction(ctx, toAction(update.CallbackQuery))

	default:
		slog.Debug("telegram update skipped (no message)", "update_id", update.UpdateID)
	}
}

// Stop shuts down the Telegram bot by cancelling the long polling context,
// waiting for the polling goroutine to exit and then for in-flight handlers.
func (c *Channel) Stop(ctx context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}

	// Wait for the polling goroutine to fully exit so that
	// Telegram releases the getUpdates lock before a new instance starts.
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	if c.handlers == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		_ = c.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("telegram bot stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for telegram handlers: %w", ctx.Err())
	}
}

// ensureNoWebhook removes a registered webhook so long polling can start.
func (c *Channel) ensureNoWebhook(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	info, err := c.bot.GetWebhookInfo(callCtx)
	if err != nil {
		slog.Warn("telegram getWebhookInfo failed", "error", err)
		return
	}
	if info.URL == "" {
		return
	}
	slog.Warn("telegram webhook is set, deleting it to enable polling", "url", info.URL, "pending", info.PendingUpdateCount)
	if err := c.bot.DeleteWebhook(callCtx, &telego.DeleteWebhookParams{}); err != nil {
		slog.Warn("telegram deleteWebhook failed", "error", err)
	}
}
