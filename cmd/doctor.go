package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opsrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/opsrelay/internal/upgrade"
	"github.com/nextlevelbuilder/opsrelay/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database and Telegram connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context())
		},
	}
}

func runDoctor(ctx context.Context) {
	fmt.Println("opsrelay doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (not found, using defaults + env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Config invalid: %s\n", err)
	}

	fmt.Println()
	fmt.Println("  Database:")
	backend := "sqlite (" + cfg.Database.Path + ")"
	if cfg.Database.UsePostgres() {
		backend = "postgres"
	}
	fmt.Printf("    %-12s %s\n", "Backend:", backend)
	if m, err := newStoreMigrator(cfg); err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
	} else {
		s, err := upgrade.CheckSchema(m)
		if err != nil {
			fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Schema:", err)
		} else {
			fmt.Printf("    %-12s %s\n", "Schema:", upgrade.Describe(s))
		}
		closeMigrator(m)
	}

	fmt.Println()
	fmt.Println("  Telegram:")
	if cfg.Telegram.Token == "" {
		fmt.Printf("    %-12s NOT SET\n", "Token:")
		return
	}
	bot, err := telegram.NewBot(cfg.Telegram, telego.WithDiscardLogger())
	if err != nil {
		fmt.Printf("    %-12s INVALID (%s)\n", "Token:", err)
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.Telegram.RequestTimeoutDuration())
	defer cancel()

	me, err := bot.GetMe(callCtx)
	if err != nil {
		fmt.Printf("    %-12s FAILED (%s)\n", "getMe:", err)
		return
	}
	fmt.Printf("    %-12s @%s (id %d)\n", "Bot:", me.Username, me.ID)
	fmt.Printf("    %-12s %d\n", "Operator:", cfg.Telegram.OperatorChatID)

	info, err := bot.GetWebhookInfo(callCtx)
	switch {
	case err != nil:
		fmt.Printf("    %-12s FAILED (%s)\n", "Webhook:", err)
	case info.URL != "":
		fmt.Printf("    %-12s %s (will be removed on start)\n", "Webhook:", info.URL)
	default:
		fmt.Printf("    %-12s none\n", "Webhook:")
	}
}
