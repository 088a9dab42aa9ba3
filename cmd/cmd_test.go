package cmd

import (
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

func TestPadKeepsColumnWidth(t *testing.T) {
	for _, name := range []string{"Ann", "Иван Петров", "山田太郎さんのとても長い名前です本当に長い", ""} {
		if got := runewidth.StringWidth(pad(name, 12)); got != 12 {
			t.Errorf("pad(%q) width = %d, want 12", name, got)
		}
	}
}

func TestHistoryText(t *testing.T) {
	tests := []struct {
		name string
		msg  store.Message
		want string
	}{
		{"collapses whitespace", store.Message{Text: "hello\n  there"}, "hello there"},
		{"media without caption", store.Message{Kind: store.KindPhoto, MediaReference: "AgAD"}, "[AgAD]"},
		{"caption wins", store.Message{Kind: store.KindPhoto, Text: "look", MediaReference: "AgAD"}, "look"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := historyText(tt.msg); got != tt.want {
				t.Errorf("historyText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOnboardValidation(t *testing.T) {
	if err := validateToken("123456:ABC-def"); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	for _, bad := range []string{"", "abc", "abc:def", "123:"} {
		if validateToken(bad) == nil {
			t.Errorf("validateToken(%q) accepted", bad)
		}
	}
	if err := validateChatID("-1001234"); err != nil {
		t.Errorf("group id rejected: %v", err)
	}
	for _, bad := range []string{"", "0", "x"} {
		if validateChatID(bad) == nil {
			t.Errorf("validateChatID(%q) accepted", bad)
		}
	}
}

func TestOnboardEnvOmitsEmptyOptional(t *testing.T) {
	env := onboardAnswers{Token: " 1:x ", OperatorChatID: "-5"}.env()
	if env["OPSRELAY_BOT_TOKEN"] != "1:x" || env["OPSRELAY_OPERATOR_CHAT_ID"] != "-5" {
		t.Errorf("env = %v", env)
	}
	if _, ok := env["OPSRELAY_LOG_FILE"]; ok {
		t.Error("empty log file written")
	}
	if _, ok := env["OPSRELAY_DB_PATH"]; ok {
		t.Error("empty db path written")
	}
}

func TestDirectionMark(t *testing.T) {
	if directionMark(store.DirectionFromOperator) != "<-" || directionMark(store.DirectionFromUser) != "->" {
		t.Error("unexpected direction marks")
	}
}
