package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// SyncMenuCommands registers bot commands with Telegram via setMyCommands:
// the default scope gets the user menu, the operator chat its own.
func (c *Channel) SyncMenuCommands(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.bot.DeleteMyCommands(callCtx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if err := c.bot.SetMyCommands(callCtx, &telego.SetMyCommandsParams{
		Commands: UserMenuCommands(),
	}); err != nil {
		return fmt.Errorf("set user commands: %w", err)
	}

	if c.config.OperatorChatID == 0 {
		return nil
	}
	return c.bot.SetMyCommands(callCtx, &telego.SetMyCommandsParams{
		Commands: OperatorMenuCommands(),
		Scope: &telego.BotCommandScopeChat{
			Type:   telego.ScopeTypeChat,
			ChatID: tu.ID(c.config.OperatorChatID),
		},
	})
}

// UserMenuCommands returns the commands shown to end-users.
func UserMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Start a conversation with support"},
	}
}

// OperatorMenuCommands returns the commands shown in the operator chat.
func OperatorMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Show the operator menu"},
		{Command: "help", Description: "Show available commands"},
		{Command: "clients", Description: "List clients"},
		{Command: "history", Description: "Message history: /history <user_id> [limit]"},
		{Command: "reply", Description: "Send directly: /reply <user_id> <text>"},
		{Command: "cancel", Description: "Drop the pending reply"},
	}
}
