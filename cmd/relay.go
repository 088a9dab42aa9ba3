package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/opsrelay/internal/channels"
	"github.com/nextlevelbuilder/opsrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/opsrelay/internal/relay"
	"github.com/nextlevelbuilder/opsrelay/internal/tracing"
)

const shutdownTimeout = 30 * time.Second

func runRelay() {
	// Console logging until the config says otherwise.
	if _, err := setupLogging(nil); err != nil {
		slog.Error("logging setup failed", "error", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logFile, err := setupLogging(cfg)
	if err != nil {
		slog.Error("logging setup failed", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	ttl, _ := cfg.Relay.PendingReplyTTLDuration() // checked by Validate

	ms, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open message store", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		tp = &tracing.Provider{}
	}

	tg, err := telegram.New(cfg.Telegram)
	if err != nil {
		slog.Error("failed to create telegram channel", "error", err)
		ms.Close()
		os.Exit(1)
	}
	router := relay.New(tg, ms, relay.Options{
		OperatorChatID:        cfg.Telegram.OperatorChatID,
		PendingReplyTTL:       ttl,
		NotificationCacheSize: cfg.Relay.NotificationCacheSize,
		RosterLimit:           cfg.Relay.RosterLimit,
		Location:              cfg.Relay.Location(),
		Tracer:                tp.Tracer("github.com/nextlevelbuilder/opsrelay/internal/relay"),
	})
	tg.SetHandler(router)

	channelMgr := channels.NewManager()
	channelMgr.RegisterChannel(tg)
	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
		ms.Close()
		os.Exit(1)
	}

	slog.Info("opsrelay started",
		"version", Version,
		"operator_chat_id", cfg.Telegram.OperatorChatID,
		"pending_reply_ttl", ttl,
		"tracing", tp.Enabled(),
		"channels", channelMgr.GetStatus(),
	)

	<-ctx.Done()
	slog.Info("graceful shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := channelMgr.StopAll(shutdownCtx); err != nil {
		slog.Warn("channel shutdown incomplete", "error", err)
	}
	if err := ms.Close(); err != nil {
		slog.Warn("closing message store", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		slog.Warn("flushing traces", "error", err)
	}
	slog.Info("opsrelay stopped")
}
