package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opsrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/opsrelay/internal/config"
	"github.com/nextlevelbuilder/opsrelay/internal/store/sqlite"
)

func onboardCmd() *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup: write .env and verify the bot token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(cmd.Context(), envPath)
		},
	}
	cmd.Flags().StringVar(&envPath, "env-file", ".env", "where to write the settings")
	return cmd
}

// onboardAnswers holds the form values; chat id stays a string while editing.
type onboardAnswers struct {
	Token          string
	OperatorChatID string
	DBPath         string
	LogFile        string
}

func runOnboard(ctx context.Context, envPath string) error {
	if _, err := os.Stat(envPath); err == nil {
		overwrite := false
		if err := huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite it?", envPath)).
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Nothing written.")
			return nil
		}
	}

	a := onboardAnswers{
		Token:          os.Getenv("OPSRELAY_BOT_TOKEN"),
		OperatorChatID: os.Getenv("OPSRELAY_OPERATOR_CHAT_ID"),
		DBPath:         sqlite.DefaultPath,
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("From @BotFather, e.g. 123456:ABC-DEF...").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token).
				Validate(validateToken),
			huh.NewInput().
				Title("Operator chat id").
				Description("Chat that receives user messages. Groups have negative ids.").
				Value(&a.OperatorChatID).
				Validate(validateChatID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SQLite database path").
				Value(&a.DBPath),
			huh.NewInput().
				Title("Log file").
				Description("Optional; logs also go to stdout.").
				Value(&a.LogFile),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if err := config.WriteDotEnv(envPath, a.env()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", envPath)

	username, err := verifyToken(ctx, strings.TrimSpace(a.Token))
	if err != nil {
		fmt.Printf("Warning: token check failed: %v\n", err)
		return nil
	}
	fmt.Printf("Token OK: @%s. Start the relay with: opsrelay\n", username)
	return nil
}

func (a onboardAnswers) env() map[string]string {
	env := map[string]string{
		"OPSRELAY_BOT_TOKEN":        strings.TrimSpace(a.Token),
		"OPSRELAY_OPERATOR_CHAT_ID": strings.TrimSpace(a.OperatorChatID),
	}
	if p := strings.TrimSpace(a.DBPath); p != "" {
		env["OPSRELAY_DB_PATH"] = p
	}
	if p := strings.TrimSpace(a.LogFile); p != "" {
		env["OPSRELAY_LOG_FILE"] = p
	}
	return env
}

func validateToken(s string) error {
	s = strings.TrimSpace(s)
	id, secret, ok := strings.Cut(s, ":")
	if !ok || id == "" || secret == "" {
		return errors.New("expected <bot id>:<secret>")
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return errors.New("bot id must be numeric")
	}
	return nil
}

func validateChatID(s string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return errors.New("enter a non-zero numeric chat id")
	}
	return nil
}

// verifyToken calls getMe and returns the bot's username.
func verifyToken(ctx context.Context, token string) (string, error) {
	cfg := config.Default().Telegram
	cfg.Token = token
	bot, err := telegram.NewBot(cfg, telego.WithDiscardLogger())
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeoutDuration())
	defer cancel()
	me, err := bot.GetMe(callCtx)
	if err != nil {
		return "", fmt.Errorf("getMe: %w", err)
	}
	return me.Username, nil
}
