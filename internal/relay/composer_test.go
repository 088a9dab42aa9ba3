package relay

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

var composer = Composer{OperatorChatID: operatorChat}

func TestNotificationText(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		saved   bool
		want    []string
		notWant []string
	}{
		{
			name:    "text",
			content: Content{Kind: store.KindText, Text: "hello"},
			saved:   true,
			want:    []string{"💬 Message from Ann\nID: 111\n\nhello"},
			notWant: []string{"Type:", "Not saved"},
		},
		{
			name:    "photo with caption",
			content: Content{Kind: store.KindPhoto, Text: "see this"},
			saved:   true,
			want:    []string{"Type: photo", "see this"},
		},
		{
			name:    "voice without caption",
			content: Content{Kind: store.KindVoice},
			saved:   true,
			want:    []string{"Type: voice"},
		},
		{
			name:    "not saved",
			content: Content{Kind: store.KindText, Text: "hello"},
			want:    []string{"hello", "⚠️ Not saved to history"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := composer.Notification(111, "Ann", tt.content, tt.saved)
			if out.ChatID != operatorChat {
				t.Errorf("ChatID = %d", out.ChatID)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.Text, w) {
					t.Errorf("text %q missing %q", out.Text, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out.Text, w) {
					t.Errorf("text %q contains %q", out.Text, w)
				}
			}
			if len(out.Buttons) != 2 || out.Buttons[0][0].Payload != "reply:111" || out.Buttons[1][0].Payload != "history:111" {
				t.Errorf("buttons = %+v", out.Buttons)
			}
		})
	}
}

func TestNotificationTruncatesLongText(t *testing.T) {
	out := composer.Notification(111, "Ann", Content{Kind: store.KindText, Text: strings.Repeat("я", 5000)}, true)
	if n := utf8.RuneCountInString(out.Text); n > maxMessageChars {
		t.Errorf("notification has %d runes, limit %d", n, maxMessageChars)
	}
}

func TestHistoryChunks(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var msgs []store.Message
	for i := 0; i < 30; i++ {
		msgs = append(msgs, store.Message{
			UserID:    111,
			Direction: store.DirectionFromUser,
			Kind:      store.KindText,
			Text:      fmt.Sprintf("%d %s", i, strings.Repeat("x", 600)),
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
	}
	msgs = append(msgs, store.Message{UserID: 111, Direction: store.DirectionFromUser, Kind: store.KindDocument, Text: "invoice.pdf", CreatedAt: at})

	out := composer.History(111, msgs)
	if len(out) < 2 {
		t.Fatalf("History produced %d chunks, want several", len(out))
	}
	for i, o := range out {
		if len(o.Text) > maxMessageChars {
			t.Errorf("chunk %d has %d bytes", i, len(o.Text))
		}
		if !o.HTML {
			t.Errorf("chunk %d is not HTML", i)
		}
	}
	if !strings.HasPrefix(out[0].Text, "📜 <b>History with client 111</b> (last 31)") {
		t.Errorf("first chunk header = %q", out[0].Text[:60])
	}
	if strings.Contains(out[1].Text, "History with client") {
		t.Error("header repeated on later chunk")
	}
	last := out[len(out)-1].Text
	if !strings.Contains(last, "[document] invoice.pdf") {
		t.Errorf("last chunk %q missing media line", last)
	}
}

func TestRosterButtonsAndEscaping(t *testing.T) {
	clients := []store.Client{
		{UserID: 111, FullName: "Ann <admin>", LastActivity: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{UserID: 222, Username: "bob"},
		{UserID: 333},
	}
	out := composer.Roster(clients, 2)
	if !out.HTML || !strings.Contains(out.Text, "Ann &lt;admin&gt;") {
		t.Errorf("roster text = %q", out.Text)
	}
	if strings.Contains(out.Text, "333") {
		t.Error("roster ignored the limit")
	}
	if len(out.Buttons) != 2 {
		t.Fatalf("rows = %d, want 2", len(out.Buttons))
	}
	row := out.Buttons[1]
	if row[0].Payload != "history:222" || row[1].Payload != "client:222" || row[2].Payload != "write:222" {
		t.Errorf("row = %+v", row)
	}
	if row[0].Text != "📜 @bob" {
		t.Errorf("button text = %q", row[0].Text)
	}
}

func TestShortName(t *testing.T) {
	if got := ShortName("Ann"); got != "Ann" {
		t.Errorf("ShortName(Ann) = %q", got)
	}
	long := ShortName("Александра Константиновна")
	if !strings.HasSuffix(long, "…") {
		t.Errorf("ShortName did not truncate: %q", long)
	}
	wide := ShortName("東京都渋谷区神宮前一丁目")
	if !strings.HasSuffix(wide, "…") {
		t.Errorf("wide name not truncated by display width: %q", wide)
	}
}

func TestReplyFailedMentionsPending(t *testing.T) {
	err := errors.New("blocked")
	if txt := composer.ReplyFailed("Ann", err, true).Text; !strings.Contains(txt, "still pending") {
		t.Errorf("pending failure = %q", txt)
	}
	if txt := composer.ReplyFailed("Ann", err, false).Text; strings.Contains(txt, "still pending") {
		t.Errorf("direct failure = %q", txt)
	}
}

func TestReplyNeedsTextMentionsPendingOnlyWhenHeld(t *testing.T) {
	if txt := composer.ReplyNeedsText(true).Text; !strings.Contains(txt, "still pending") {
		t.Errorf("pending notice = %q", txt)
	}
	if txt := composer.ReplyNeedsText(false).Text; strings.Contains(txt, "pending") {
		t.Errorf("idle notice = %q", txt)
	}
}

func TestChunkLines(t *testing.T) {
	chunks := chunkLines("H\n", []string{"aaaa", "bbbb", "cccc"}, 11)
	want := []string{"H\n\naaaa", "bbbb\ncccc"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}
