package relay

import (
	"testing"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want Content
	}{
		{"text", Message{Text: "hi"}, Content{Kind: store.KindText, Text: "hi"}},
		{"photo with caption", Message{PhotoID: "p", Caption: "look"}, Content{Kind: store.KindPhoto, Text: "look", MediaReference: "p"}},
		{"photo beats document", Message{PhotoID: "p", DocumentID: "d"}, Content{Kind: store.KindPhoto, MediaReference: "p"}},
		{"document", Message{DocumentID: "d", Caption: "invoice"}, Content{Kind: store.KindDocument, Text: "invoice", MediaReference: "d"}},
		{"voice", Message{VoiceID: "v"}, Content{Kind: store.KindVoice, MediaReference: "v"}},
		{"video beats text", Message{VideoID: "x", Text: "ignored"}, Content{Kind: store.KindVideo, MediaReference: "x"}},
		{"sticker", Message{OtherMedia: true}, Content{Kind: store.KindUnknown}},
		{"empty", Message{}, Content{Kind: store.KindUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.msg); got != tt.want {
				t.Errorf("Classify = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in    string
		name  string
		rest  string
		isCmd bool
	}{
		{"/start", "/start", "", true},
		{"/History@relay_bot 111 5", "/history", "111 5", true},
		{"  /reply 111 hello there ", "/reply", "111 hello there", true},
		{"/reply\n111 hi", "/reply", "111 hi", true},
		{"hello /start", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, rest, ok := parseCommand(tt.in)
			if name != tt.name || rest != tt.rest || ok != tt.isCmd {
				t.Errorf("parseCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, name, rest, ok, tt.name, tt.rest, tt.isCmd)
			}
		})
	}
}

func TestSenderDisplayName(t *testing.T) {
	tests := []struct {
		s    Sender
		want string
	}{
		{Sender{ID: 1, FirstName: "Ann", LastName: "Lee", Username: "ann"}, "Ann Lee"},
		{Sender{ID: 1, Username: "ann"}, "@ann"},
		{Sender{ID: 42}, "42"},
	}
	for _, tt := range tests {
		if got := tt.s.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}
