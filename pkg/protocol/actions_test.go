package protocol

import (
	"errors"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Action
		wantErr error
	}{
		{name: "reply", payload: Encode(ActionReply, 111), want: Action{Name: ActionReply, UserID: 111}},
		{name: "negative id", payload: "history:-42", want: Action{Name: ActionHistory, UserID: -42}},
		{name: "bare action", payload: Encode(ActionClients, 0), want: Action{Name: ActionClients}},
		{name: "garbage id", payload: "reply:abc", want: Action{Name: ActionReply}, wantErr: ErrInvalidID},
		{name: "zero id", payload: "reply:0", want: Action{Name: ActionReply}, wantErr: ErrInvalidID},
		{name: "missing id", payload: "reply:", want: Action{Name: ActionReply}, wantErr: ErrInvalidID},
		{name: "empty", payload: "  ", wantErr: ErrEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode(%q) error = %v, want %v", tt.payload, err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestEncodeFitsTelegramLimit(t *testing.T) {
	p := Encode(ActionHistory, -1001234567890123)
	if len(p) > MaxPayloadBytes {
		t.Fatalf("payload %q is %d bytes, limit %d", p, len(p), MaxPayloadBytes)
	}
}

func TestRequiresTarget(t *testing.T) {
	for _, name := range []string{ActionReply, ActionWrite, ActionHistory, ActionClient} {
		if !RequiresTarget(name) {
			t.Errorf("RequiresTarget(%q) = false", name)
		}
	}
	if RequiresTarget(ActionClients) {
		t.Error("RequiresTarget(clients) = true")
	}
}
