package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/opsrelay/internal/relay"
)

// call waits for an outbound slot and derives the per-call timeout.
func (c *Channel) call(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("telegram rate limit: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	return callCtx, cancel, nil
}

// Send delivers out and returns its message id. A message carries a single
// reply markup, so when out has both inline buttons and a reply keyboard
// the buttons follow in a second message.
func (c *Channel) Send(ctx context.Context, out relay.Outgoing) (int, error) {
	params := tu.Message(tu.ID(out.ChatID), out.Text)
	if out.HTML {
		params = params.WithParseMode(telego.ModeHTML)
	}

	var followUp *telego.InlineKeyboardMarkup
	switch {
	case len(out.Keyboard) > 0:
		params = params.WithReplyMarkup(replyKeyboard(out.Keyboard))
		if len(out.Buttons) > 0 {
			followUp = inlineKeyboard(out.Buttons)
		}
	case len(out.Buttons) > 0:
		params = params.WithReplyMarkup(inlineKeyboard(out.Buttons))
	}

	msg, err := c.sendMessage(ctx, params)
	if err != nil {
		return 0, err
	}

	if followUp != nil {
		extra := tu.Message(tu.ID(out.ChatID), "⬇️").WithReplyMarkup(followUp)
		if _, err := c.sendMessage(ctx, extra); err != nil {
			return msg.MessageID, err
		}
	}
	return msg.MessageID, nil
}

func (c *Channel) sendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	msg, err := c.bot.SendMessage(callCtx, params)
	if err != nil {
		return nil, fmt.Errorf("telegram sendMessage to %d: %w", params.ChatID.ID, err)
	}
	return msg, nil
}

// Copy re-sends a message, media included, without a "forwarded from" header.
func (c *Channel) Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	id, err := c.bot.CopyMessage(callCtx, tu.CopyMessage(tu.ID(toChatID), tu.ID(fromChatID), messageID))
	if err != nil {
		return 0, fmt.Errorf("telegram copyMessage %d→%d: %w", fromChatID, toChatID, err)
	}
	return id.MessageID, nil
}

func (c *Channel) Delete(ctx context.Context, chatID int64, messageID int) error {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := c.bot.DeleteMessage(callCtx, tu.Delete(tu.ID(chatID), messageID)); err != nil {
		return fmt.Errorf("telegram deleteMessage: %w", err)
	}
	return nil
}

// ClearButtons removes the inline keyboard from a sent message.
func (c *Channel) ClearButtons(ctx context.Context, chatID int64, messageID int) error {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.bot.EditMessageReplyMarkup(callCtx, &telego.EditMessageReplyMarkupParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("telegram editMessageReplyMarkup: %w", err)
	}
	return nil
}

func (c *Channel) AnswerAction(ctx context.Context, actionID, text string, alert bool) error {
	callCtx, cancel, err := c.call(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	params := tu.CallbackQuery(actionID)
	if text != "" {
		params = params.WithText(text)
		if alert {
			params = params.WithShowAlert()
		}
	}
	if err := c.bot.AnswerCallbackQuery(callCtx, params); err != nil {
		return fmt.Errorf("telegram answerCallbackQuery: %w", err)
	}
	return nil
}
