package telegram

import (
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/opsrelay/internal/relay"
)

// toMessage converts a Telegram message. Service messages and messages
// without a sender return nil.
func toMessage(msg *telego.Message) *relay.Message {
	if msg.From == nil || isServiceMessage(msg) {
		return nil
	}

	m := &relay.Message{
		ChatID:    msg.Chat.ID,
		Private:   msg.Chat.Type == telego.ChatTypePrivate,
		MessageID: msg.MessageID,
		From:      toSender(*msg.From),
		Text:      msg.Text,
		Caption:   msg.Caption,
		Date:      time.Unix(msg.Date, 0).UTC(),
	}

	// Photo: take highest resolution (last element)
	if n := len(msg.Photo); n > 0 {
		m.PhotoID = msg.Photo[n-1].FileID
	}
	if msg.Document != nil {
		m.DocumentID = msg.Document.FileID
	}
	if msg.Voice != nil {
		m.VoiceID = msg.Voice.FileID
	}
	if msg.Video != nil {
		m.VideoID = msg.Video.FileID
	}
	// Dice, games, stories, invoices and the like carry no text and no
	// classified media; they still reach the relay as other media.
	classified := m.PhotoID != "" || m.DocumentID != "" || m.VoiceID != "" || m.VideoID != ""
	m.OtherMedia = !classified && (msg.Text == "" && msg.Caption == "" ||
		msg.Audio != nil || msg.VideoNote != nil || msg.Sticker != nil ||
		msg.Animation != nil || msg.Contact != nil || msg.Location != nil ||
		msg.Venue != nil || msg.Poll != nil)

	if msg.ReplyToMessage != nil {
		m.ReplyToMessageID = msg.ReplyToMessage.MessageID
	}
	return m
}

// toAction converts a callback query. Queries on messages too old to be
// delivered keep chat and message id zero.
func toAction(q *telego.CallbackQuery) *relay.Action {
	a := &relay.Action{
		ID:      q.ID,
		From:    toSender(q.From),
		Payload: q.Data,
	}
	if q.Message != nil {
		a.ChatID = q.Message.GetChat().ID
		a.MessageID = q.Message.GetMessageID()
	}
	return a
}

func toSender(u telego.User) relay.Sender {
	return relay.Sender{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// isServiceMessage reports whether msg is a chat event (members joined or
// left, title or photo changed, pin, migration, video chat, forum topic...)
// rather than something a user sent.
func isServiceMessage(msg *telego.Message) bool {
	return len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil ||
		msg.NewChatTitle != "" || len(msg.NewChatPhoto) > 0 || msg.DeleteChatPhoto ||
		msg.GroupChatCreated || msg.SupergroupChatCreated || msg.ChannelChatCreated ||
		msg.MessageAutoDeleteTimerChanged != nil ||
		msg.MigrateToChatID != 0 || msg.MigrateFromChatID != 0 ||
		msg.PinnedMessage != nil ||
		msg.ConnectedWebsite != "" || msg.WriteAccessAllowed != nil ||
		msg.ProximityAlertTriggered != nil ||
		msg.ForumTopicCreated != nil || msg.ForumTopicEdited != nil ||
		msg.ForumTopicClosed != nil || msg.ForumTopicReopened != nil ||
		msg.VideoChatScheduled != nil || msg.VideoChatStarted != nil ||
		msg.VideoChatEnded != nil || msg.VideoChatParticipantsInvited != nil
}

func inlineKeyboard(rows [][]relay.Button) *telego.InlineKeyboardMarkup {
	out := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Payload))
		}
		out = append(out, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(out...)
}

func replyKeyboard(rows [][]string) *telego.ReplyKeyboardMarkup {
	out := make([][]telego.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tu.KeyboardButton(label))
		}
		out = append(out, tu.KeyboardRow(buttons...))
	}
	return tu.Keyboard(out...).WithResizeKeyboard()
}
