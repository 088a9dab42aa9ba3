package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opsrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/opsrelay/internal/config"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Inspect or remove the bot's Telegram webhook",
		Long:  "Long polling is refused by Telegram while a webhook is registered. The relay deletes it on start; these commands do it by hand.",
	}
	cmd.AddCommand(webhookInfoCmd())
	cmd.AddCommand(webhookDeleteCmd())
	return cmd
}

func botFromConfig() (*telego.Bot, time.Duration, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	if cfg.Telegram.Token == "" {
		return nil, 0, config.ErrMissingToken
	}
	bot, err := telegram.NewBot(cfg.Telegram, telego.WithDiscardLogger())
	if err != nil {
		return nil, 0, err
	}
	return bot, cfg.Telegram.RequestTimeoutDuration(), nil
}

func webhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the registered webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, timeout, err := botFromConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			info, err := bot.GetWebhookInfo(ctx)
			if err != nil {
				return fmt.Errorf("getWebhookInfo: %w", err)
			}
			if info.URL == "" {
				fmt.Println("No webhook set; long polling is available.")
				return nil
			}
			fmt.Printf("  %-16s %s\n", "URL:", info.URL)
			fmt.Printf("  %-16s %d\n", "Pending updates:", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Printf("  %-16s %s (%s)\n", "Last error:", info.LastErrorMessage,
					time.Unix(info.LastErrorDate, 0).Format(time.RFC3339))
			}
			return nil
		},
	}
}

func webhookDeleteCmd() *cobra.Command {
	var dropPending bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the registered webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, timeout, err := botFromConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			params := &telego.DeleteWebhookParams{}
			if dropPending {
				params = params.WithDropPendingUpdates()
			}
			if err := bot.DeleteWebhook(ctx, params); err != nil {
				return fmt.Errorf("deleteWebhook: %w", err)
			}
			fmt.Println("Webhook deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dropPending, "drop-pending", false, "also discard updates queued by Telegram")
	return cmd
}
