package relay

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
	"github.com/nextlevelbuilder/opsrelay/pkg/protocol"
)

// Reserved reply-keyboard labels in the operator chat. They are matched
// before reply routing so they never reach a user.
const (
	KeywordClients = "👥 Clients"
	KeywordHelp    = "❓ Help"
	KeywordCancel  = "✖️ Cancel"
)

const (
	// maxMessageChars keeps composed messages under Telegram's 4096 limit.
	maxMessageChars = 4000
	// maxHistoryBodyChars caps one history line.
	maxHistoryBodyChars = 700
	// buttonNameWidth is the display width of a client name on a roster button.
	buttonNameWidth = 20
	timeLayout      = "2006-01-02 15:04 MST"
)

// Composer renders every operator- and user-facing text of the relay.
type Composer struct {
	OperatorChatID int64
	Location       *time.Location
}

func (c Composer) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Composer) toOperator(text string) Outgoing {
	return Outgoing{ChatID: c.OperatorChatID, Text: text}
}

func clientButtons(userID int64) [][]Button {
	return [][]Button{
		{{Text: "✉️ Reply", Payload: protocol.Encode(protocol.ActionReply, userID)}},
		{{Text: "📜 History", Payload: protocol.Encode(protocol.ActionHistory, userID)}},
	}
}

// Notification is the operator-facing message for an inbound user message.
// Non-textual kinds get a header only; the original is copied separately.
func (c Composer) Notification(userID int64, name string, content Content, saved bool) Outgoing {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💬 Message from %s\nID: %d", name, userID)
	if content.Kind.IsTextual() {
		sb.WriteString("\n\n")
		sb.WriteString(content.Text)
	} else {
		fmt.Fprintf(&sb, "\nType: %s", content.Kind)
		if content.Text != "" {
			sb.WriteString("\n\n")
			sb.WriteString(content.Text)
		}
	}
	if !saved {
		sb.WriteString("\n\n⚠️ Not saved to history")
	}

	out := c.toOperator(truncateText(sb.String(), maxMessageChars))
	out.Buttons = clientButtons(userID)
	return out
}

// NewUser announces a user's first /start.
func (c Composer) NewUser(userID int64, name string) Outgoing {
	out := c.toOperator(fmt.Sprintf("🆕 New user: %s (ID: %d)\nSent /start", name, userID))
	out.Buttons = clientButtons(userID)
	return out
}

// Greeting is sent to a user on /start.
func (c Composer) Greeting(userID int64) Outgoing {
	return Outgoing{
		ChatID: userID,
		Text: "👋 Hello!\n\n" +
			"This bot connects you with support. Write your question " +
			"and an operator will answer you soon.",
	}
}

// ReplyPrompt invites the operator to type the reply text.
func (c Composer) ReplyPrompt(userID int64, name string) Outgoing {
	return c.toOperator(fmt.Sprintf(
		"✍️ Reply to %s (ID: %d)\n\n"+
			"Your next text message in this chat will be sent to them. "+
			"Reply to another notification to answer someone else, or /cancel.",
		name, userID,
	))
}

func (c Composer) ReplySent(name string) Outgoing {
	return c.toOperator("✅ Sent to " + name)
}

func (c Composer) ReplyFailed(name string, err error, pending bool) Outgoing {
	text := fmt.Sprintf("❌ Could not deliver to %s: %v", name, err)
	if pending {
		text += "\nThe reply is still pending, send it again to retry."
	}
	return c.toOperator(text)
}

func (c Composer) ReplyNotSaved(name string) Outgoing {
	return c.toOperator(fmt.Sprintf("⚠️ Delivered to %s, but it could not be saved to history.", name))
}

// ReplyNeedsText rejects a reply without text. pending tells whether a
// pending reply is still waiting.
func (c Composer) ReplyNeedsText(pending bool) Outgoing {
	if pending {
		return c.toOperator("❌ The reply must contain text. The reply is still pending.")
	}
	return c.toOperator("❌ The reply must contain text.")
}

func (c Composer) Cancelled(p *PendingReply) Outgoing {
	if p == nil {
		return c.toOperator("Nothing to cancel.")
	}
	return c.toOperator(fmt.Sprintf("✖️ Reply to %s cancelled.", p.DisplayName))
}

func (c Composer) Notice(text string) Outgoing {
	return c.toOperator(text)
}

// Menu is the operator welcome: help text, a Clients button and the
// persistent keyword keyboard.
func (c Composer) Menu() Outgoing {
	out := c.toOperator("👋 Hello, operator!\n\n" + helpText)
	out.Buttons = [][]Button{{{Text: KeywordClients, Payload: protocol.ActionClients}}}
	out.Keyboard = [][]string{{KeywordClients, KeywordHelp}, {KeywordCancel}}
	return out
}

func (c Composer) Help() Outgoing {
	return c.toOperator(helpText)
}

const helpText = "Commands:\n" +
	"/clients - list clients\n" +
	"/history <user_id> [limit] - message history (default 20, max 100)\n" +
	"/reply <user_id> <text> - send a message directly\n" +
	"/cancel - drop the pending reply\n" +
	"/help - this message\n\n" +
	"Press ✉️ Reply under a notification, then type your answer. " +
	"Replying to a notification answers that user directly."

// History renders a user's history as one or more HTML messages.
func (c Composer) History(userID int64, msgs []store.Message) []Outgoing {
	if len(msgs) == 0 {
		return []Outgoing{c.toOperator(fmt.Sprintf("📜 History with client %d\n\nHistory is empty.", userID))}
	}

	header := fmt.Sprintf("📜 <b>History with client %d</b> (last %d)\n", userID, len(msgs))
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		author := "👤 Client"
		if m.Direction == store.DirectionFromOperator {
			author = "👨‍💼 You"
		}
		body := m.Text
		if !m.Kind.IsTextual() {
			body = strings.TrimSpace(fmt.Sprintf("[%s] %s", m.Kind, m.Text))
		}
		body = truncateText(body, maxHistoryBodyChars)
		lines = append(lines, fmt.Sprintf("%s\n%s: %s\n",
			m.CreatedAt.In(c.loc()).Format(timeLayout), author, html.EscapeString(body)))
	}

	var out []Outgoing
	for _, chunk := range chunkLines(header, lines, maxMessageChars) {
		msg := c.toOperator(chunk)
		msg.HTML = true
		out = append(out, msg)
	}
	return out
}

// Roster lists up to limit clients with per-client History, card and Write buttons.
func (c Composer) Roster(clients []store.Client, limit int) Outgoing {
	if len(clients) == 0 {
		return c.toOperator("📋 No clients yet")
	}
	if limit > 0 && len(clients) > limit {
		clients = clients[:limit]
	}

	var sb strings.Builder
	sb.WriteString("👥 <b>Clients</b>\n\n")
	rows := make([][]Button, 0, len(clients))
	for _, cl := range clients {
		name := cl.DisplayName()
		entry := fmt.Sprintf("• %s\n  ID: <code>%d</code>\n  Last message: %s\n",
			html.EscapeString(name), cl.UserID, cl.LastActivity.In(c.loc()).Format(timeLayout))
		if sb.Len()+len(entry) > maxMessageChars {
			break
		}
		sb.WriteString(entry)
		rows = append(rows, []Button{
			{Text: "📜 " + ShortName(name), Payload: protocol.Encode(protocol.ActionHistory, cl.UserID)},
			{Text: "👤", Payload: protocol.Encode(protocol.ActionClient, cl.UserID)},
			{Text: "✉️", Payload: protocol.Encode(protocol.ActionWrite, cl.UserID)},
		})
	}

	out := c.toOperator(sb.String())
	out.HTML = true
	out.Buttons = rows
	return out
}

// ClientCard shows one client's details with quick actions.
func (c Composer) ClientCard(cl store.Client) Outgoing {
	username := "not set"
	if cl.Username != "" {
		username = "@" + html.EscapeString(cl.Username)
	}
	fullName := "not set"
	if cl.FullName != "" {
		fullName = html.EscapeString(cl.FullName)
	}

	out := c.toOperator(fmt.Sprintf(
		"👤 <b>Client:</b> %s\n🆔 <b>ID:</b> <code>%d</code>\n📧 <b>Username:</b> %s\n"+
			"📝 <b>Name:</b> %s\n💬 <b>Messages:</b> %d\n🕐 <b>Last activity:</b> %s",
		html.EscapeString(cl.DisplayName()), cl.UserID, username, fullName,
		cl.MessageCount, cl.LastActivity.In(c.loc()).Format(timeLayout),
	))
	out.HTML = true
	out.Buttons = [][]Button{
		{
			{Text: "📜 History", Payload: protocol.Encode(protocol.ActionHistory, cl.UserID)},
			{Text: "✉️ Write", Payload: protocol.Encode(protocol.ActionWrite, cl.UserID)},
		},
		{{Text: "« Back to list", Payload: protocol.ActionClients}},
	}
	return out
}

// ShortName fits a display name onto a button.
func ShortName(name string) string {
	return runewidth.Truncate(name, buttonNameWidth, "…")
}

func idLabel(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// chunkLines packs header+lines into messages no longer than limit bytes.
// The header is repeated only on the first chunk.
func chunkLines(header string, lines []string, limit int) []string {
	var chunks []string
	var sb strings.Builder
	sb.WriteString(header)
	for _, line := range lines {
		if sb.Len() > 0 && sb.Len()+len(line)+1 > limit {
			chunks = append(chunks, strings.TrimRight(sb.String(), "\n"))
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(sb.String(), "\n"))
	}
	return chunks
}

// truncateText cuts s to at most max runes, appending "…".
func truncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
