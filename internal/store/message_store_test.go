package store

import "testing"

func TestClampHistoryLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-5, DefaultHistoryLimit},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, MaxHistoryLimit},
		{100000, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := ClampHistoryLimit(tt.in); got != tt.want {
			t.Errorf("ClampHistoryLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		username string
		fullName string
		want     string
	}{
		{name: "full name wins", username: "ann", fullName: "Ann Lee", want: "Ann Lee"},
		{name: "username fallback", username: "ann", want: "@ann"},
		{name: "username already prefixed", username: "@ann", want: "@ann"},
		{name: "blank full name", username: "ann", fullName: "  ", want: "@ann"},
		{name: "numeric id", want: "111"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(111, tt.username, tt.fullName); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinName(t *testing.T) {
	if got := JoinName("Ann", ""); got != "Ann" {
		t.Errorf("JoinName(Ann, \"\") = %q", got)
	}
	if got := JoinName("Ann", "Lee"); got != "Ann Lee" {
		t.Errorf("JoinName(Ann, Lee) = %q", got)
	}
	if got := JoinName("", ""); got != "" {
		t.Errorf("JoinName empty = %q", got)
	}
}
