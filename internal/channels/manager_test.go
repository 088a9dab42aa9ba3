package channels

import (
	"context"
	"errors"
	"testing"
)

type stubChannel struct {
	name     string
	startErr error
	started  bool
	stopped  bool
}

func (s *stubChannel) Name() string { return s.name }
func (s *stubChannel) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}
func (s *stubChannel) Stop(context.Context) error { s.stopped = true; return nil }
func (s *stubChannel) IsRunning() bool            { return s.started && !s.stopped }

func TestManagerStartStop(t *testing.T) {
	m := NewManager()
	if err := m.StartAll(context.Background()); err == nil {
		t.Error("StartAll with no channels succeeded")
	}

	tg := &stubChannel{name: "telegram"}
	m.RegisterChannel(tg)
	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if st := m.GetStatus(); !st["telegram"] {
		t.Errorf("status = %v", st)
	}
	if err := m.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if !tg.stopped {
		t.Error("channel not stopped")
	}
	if ch, ok := m.GetChannel("telegram"); !ok || ch != tg {
		t.Errorf("GetChannel = %v, %v", ch, ok)
	}
}

func TestManagerRollsBackPartialStart(t *testing.T) {
	m := NewManager()
	a := &stubChannel{name: "a"}
	b := &stubChannel{name: "b", startErr: errors.New("boom")}
	m.RegisterChannel(a)
	m.RegisterChannel(b)

	if err := m.StartAll(context.Background()); err == nil {
		t.Fatal("StartAll succeeded")
	}
	if !a.stopped {
		t.Error("started channel not stopped after failure")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("привет мир", 6); got != "привет..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}
