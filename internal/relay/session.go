package relay

import (
	"sync/atomic"
	"time"
)

// PendingReply marks the user the operator's next text message goes to.
type PendingReply struct {
	UserID          int64
	DisplayName     string
	PromptMessageID int
	CreatedAt       time.Time
}

// Session is the operator's reply state: Idle when no PendingReply is held,
// AwaitingReplyText otherwise. The slot is a single atomic pointer, so a new
// Begin always replaces the previous target (last action wins) and Take
// hands a pending reply to exactly one caller.
type Session struct {
	OperatorChatID int64

	pending atomic.Pointer[PendingReply]
	ttl     time.Duration // zero: pending replies never expire
	now     func() time.Time
}

// NewSession creates an idle session for the operator chat.
func NewSession(operatorChatID int64, ttl time.Duration) *Session {
	return &Session{OperatorChatID: operatorChatID, ttl: ttl, now: time.Now}
}

// Begin enters AwaitingReplyText for p and returns the replaced pending
// reply, if any.
func (s *Session) Begin(p PendingReply) *PendingReply {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	return s.pending.Swap(&p)
}

// Current returns the live pending reply without consuming it.
func (s *Session) Current() *PendingReply {
	for {
		p := s.pending.Load()
		if p == nil || !s.expired(p) {
			return p
		}
		if s.pending.CompareAndSwap(p, nil) {
			return nil
		}
	}
}

// Take atomically consumes the pending reply. With userID != 0 it only
// consumes a pending reply for that user and leaves any other target in
// place.
func (s *Session) Take(userID int64) *PendingReply {
	for {
		p := s.Current()
		if p == nil {
			return nil
		}
		if userID != 0 && p.UserID != userID {
			return nil
		}
		if s.pending.CompareAndSwap(p, nil) {
			return p
		}
	}
}

// Restore puts back a reply taken by Take whose delivery failed. It does
// nothing when a newer reply has been started meanwhile.
func (s *Session) Restore(p *PendingReply) bool {
	if p == nil {
		return false
	}
	return s.pending.CompareAndSwap(nil, p)
}

// Cancel returns to Idle and returns the dropped pending reply.
func (s *Session) Cancel() *PendingReply {
	p := s.pending.Swap(nil)
	if p != nil && s.expired(p) {
		return nil
	}
	return p
}

func (s *Session) expired(p *PendingReply) bool {
	return s.ttl > 0 && s.now().Sub(p.CreatedAt) > s.ttl
}
