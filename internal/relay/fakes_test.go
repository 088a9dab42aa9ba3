package relay

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

const operatorChat int64 = -1001

type sentMessage struct {
	ID int
	Outgoing
}

type copyCall struct {
	ToChatID, FromChatID int64
	MessageID            int
}

type answerCall struct {
	ActionID, Text string
	Alert          bool
}

// fakeTransport records every call. Sends to chats listed in fail return
// the mapped error.
type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	copies  []copyCall
	deleted []int
	cleared []int
	answers []answerCall
	fail    map[int64]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 1000, fail: make(map[int64]error)}
}

func (f *fakeTransport) Send(_ context.Context, out Outgoing) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[out.ChatID]; err != nil {
		return 0, err
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ID: f.nextID, Outgoing: out})
	return f.nextID, nil
}

func (f *fakeTransport) Copy(_ context.Context, to, from int64, messageID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[to]; err != nil {
		return 0, err
	}
	f.nextID++
	f.copies = append(f.copies, copyCall{ToChatID: to, FromChatID: from, MessageID: messageID})
	return f.nextID, nil
}

func (f *fakeTransport) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) ClearButtons(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, messageID)
	return nil
}

func (f *fakeTransport) AnswerAction(_ context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answerCall{ActionID: id, Text: text, Alert: alert})
	return nil
}

func (f *fakeTransport) setFail(chatID int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, chatID)
		return
	}
	f.fail[chatID] = err
}

// to returns the messages sent to chatID, oldest first.
func (f *fakeTransport) to(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) last(t *testing.T, chatID int64) sentMessage {
	t.Helper()
	msgs := f.to(chatID)
	if len(msgs) == 0 {
		t.Fatalf("nothing sent to chat %d", chatID)
	}
	return msgs[len(msgs)-1]
}

func (f *fakeTransport) lastAnswer(t *testing.T) answerCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		t.Fatal("action was not answered")
	}
	return f.answers[len(f.answers)-1]
}

// fakeStore is an in-memory store.MessageStore.
type fakeStore struct {
	mu        sync.Mutex
	msgs      []store.Message
	appendErr error
	queryErr  error
	clock     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *fakeStore) Append(_ context.Context, m *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if m.CreatedAt.IsZero() {
		s.clock = s.clock.Add(time.Second)
		m.CreatedAt = s.clock
	}
	m.ID = int64(len(s.msgs) + 1)
	s.msgs = append(s.msgs, *m)
	return nil
}

func (s *fakeStore) History(_ context.Context, userID int64, limit int) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []store.Message
	for _, m := range s.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if n := store.ClampHistoryLimit(limit); len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (s *fakeStore) Roster(_ context.Context) ([]store.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rosterLocked(), nil
}

func (s *fakeStore) Client(_ context.Context, userID int64) (*store.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	for _, c := range s.rosterLocked() {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) rosterLocked() []store.Client {
	byUser := make(map[int64]*store.Client)
	wrote := make(map[int64]bool)
	var order []int64
	for _, m := range s.msgs {
		if m.Direction == store.DirectionFromUser {
			wrote[m.UserID] = true
		}
		c, ok := byUser[m.UserID]
		if !ok {
			c = &store.Client{UserID: m.UserID}
			byUser[m.UserID] = c
			order = append(order, m.UserID)
		}
		if m.Username != "" {
			c.Username = m.Username
		}
		if m.FullName != "" {
			c.FullName = m.FullName
		}
		c.MessageCount++
		c.LastActivity = m.CreatedAt
	}
	out := make([]store.Client, 0, len(order))
	for _, id := range order {
		if wrote[id] {
			out = append(out, *byUser[id])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) messages(userID int64, dir store.Direction) []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Message
	for _, m := range s.msgs {
		if m.UserID == userID && m.Direction == dir {
			out = append(out, m)
		}
	}
	return out
}

var errBlocked = errors.New("Forbidden: bot was blocked by the user")

type harness struct {
	t         *testing.T
	router    *Router
	transport *fakeTransport
	store     *fakeStore
	nextMsgID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr := newFakeTransport()
	st := newFakeStore()
	return &harness{
		t:         t,
		router:    New(tr, st, Options{OperatorChatID: operatorChat}),
		transport: tr,
		store:     st,
		nextMsgID: 1,
	}
}

func (h *harness) msgID() int {
	h.nextMsgID++
	return h.nextMsgID
}

// userSays delivers a private text message from userID and returns the id
// of the operator notification it produced.
func (h *harness) userSays(userID int64, firstName, text string) int {
	h.t.Helper()
	h.handle(&Message{
		ChatID:    userID,
		Private:   true,
		MessageID: h.msgID(),
		From:      Sender{ID: userID, FirstName: firstName},
		Text:      text,
	})
	return h.transport.last(h.t, operatorChat).ID
}

// operatorSays delivers operator text, optionally as a reply to replyTo.
func (h *harness) operatorSays(text string, replyTo int) {
	h.t.Helper()
	h.handle(&Message{
		ChatID:           operatorChat,
		MessageID:        h.msgID(),
		From:             Sender{ID: 7, FirstName: "Op"},
		Text:             text,
		ReplyToMessageID: replyTo,
	})
}

// press simulates the operator pressing a button on message onMessage.
func (h *harness) press(payload string, onMessage int) {
	h.t.Helper()
	err := h.router.HandleAction(context.Background(), &Action{
		ID:        "cb",
		ChatID:    operatorChat,
		MessageID: onMessage,
		From:      Sender{ID: 7},
		Payload:   payload,
	})
	if err != nil {
		h.t.Fatalf("HandleAction(%q): %v", payload, err)
	}
}

func (h *harness) handle(m *Message) {
	h.t.Helper()
	if err := h.router.HandleMessage(context.Background(), m); err != nil {
		h.t.Logf("HandleMessage: %v", err)
	}
}

func (h *harness) textsTo(chatID int64) []string {
	var out []string
	for _, m := range h.transport.to(chatID) {
		out = append(out, m.Text)
	}
	return out
}

func (h *harness) pendingUser() int64 {
	if p := h.router.Session().Current(); p != nil {
		return p.UserID
	}
	return 0
}

func containsText(msgs []string, sub string) bool {
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}
