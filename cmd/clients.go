package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

const (
	nameColumnWidth = 28
	textColumnWidth = 60
)

// withStore runs fn against the configured store without starting the bot.
func withStore(fn func(ctx context.Context, s store.MessageStore) error) error {
	if _, err := setupLogging(nil); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}

func clientsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List users who have written to the bot, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, s store.MessageStore) error {
				clients, err := s.Roster(ctx)
				if err != nil {
					return err
				}
				if len(clients) == 0 {
					fmt.Println("No clients yet.")
					return nil
				}
				if limit > 0 && len(clients) > limit {
					clients = clients[:limit]
				}
				fmt.Printf("%-14s %s %8s  %s\n", "USER ID", pad("NAME", nameColumnWidth), "MESSAGES", "LAST ACTIVITY")
				for _, c := range clients {
					fmt.Printf("%-14d %s %8d  %s\n",
						c.UserID,
						pad(c.DisplayName(), nameColumnWidth),
						c.MessageCount,
						c.LastActivity.Local().Format(time.DateTime),
					)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many clients (0 = all)")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <user_id> [limit]",
		Short: "Print a user's recent messages, oldest first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			limit := store.DefaultHistoryLimit
			if len(args) == 2 {
				if limit, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid limit %q", args[1])
				}
			}

			return withStore(func(ctx context.Context, s store.MessageStore) error {
				msgs, err := s.History(ctx, userID, limit)
				if err != nil {
					return err
				}
				if len(msgs) == 0 {
					fmt.Printf("No messages for user %d.\n", userID)
					return nil
				}
				for _, m := range msgs {
					fmt.Printf("%s  %s  %-8s %s\n",
						m.CreatedAt.Local().Format(time.DateTime),
						directionMark(m.Direction),
						m.Kind,
						historyText(m),
					)
				}
				return nil
			})
		},
	}
}

func directionMark(d store.Direction) string {
	if d == store.DirectionFromOperator {
		return "<-"
	}
	return "->"
}

func historyText(m store.Message) string {
	text := strings.Join(strings.Fields(m.Text), " ")
	if text == "" && m.MediaReference != "" {
		text = "[" + m.MediaReference + "]"
	}
	return runewidth.Truncate(text, textColumnWidth, "…")
}

// pad fits s into width terminal cells, truncating wide names.
func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
