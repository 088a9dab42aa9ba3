package relay

import (
	"context"
	"strings"
)

// Route names, used in logs and span names.
const (
	RouteOperatorCommand = "operator.command"
	RouteOperatorKeyword = "operator.keyword"
	RouteOperatorReply   = "operator.reply"
	RouteUserStart       = "user.start"
	RouteUserCommand     = "user.command"
	RouteUserContent     = "user.content"
)

type messageRoute struct {
	name   string
	match  func(r *Router, m *Message) bool
	handle func(r *Router, ctx context.Context, m *Message) error
}

// messageRoutes is evaluated top to bottom; the first match wins.
// Commands and keywords precede reply routing so they never reach a user.
var messageRoutes = []messageRoute{
	{
		name:   RouteOperatorCommand,
		match:  func(r *Router, m *Message) bool { return r.IsOperatorChat(m.ChatID) && isCommand(m) },
		handle: (*Router).handleOperatorCommand,
	},
	{
		name:   RouteOperatorKeyword,
		match:  func(r *Router, m *Message) bool { return r.IsOperatorChat(m.ChatID) && isKeyword(m.Text) },
		handle: (*Router).handleOperatorKeyword,
	},
	{
		name:   RouteOperatorReply,
		match:  func(r *Router, m *Message) bool { return r.IsOperatorChat(m.ChatID) },
		handle: (*Router).handleOperatorReply,
	},
	{
		name:   RouteUserStart,
		match:  func(r *Router, m *Message) bool { return isUserChat(r, m) && commandName(m) == "/start" },
		handle: (*Router).handleUserStart,
	},
	{
		name:   RouteUserCommand,
		match:  func(r *Router, m *Message) bool { return isUserChat(r, m) && isCommand(m) },
		handle: (*Router).handleUserContent,
	},
	{
		name:   RouteUserContent,
		match:  isUserChat,
		handle: (*Router).handleUserContent,
	},
}

// match returns the first route accepting m.
func (r *Router) match(m *Message) (messageRoute, bool) {
	for _, route := range messageRoutes {
		if route.match(r, m) {
			return route, true
		}
	}
	return messageRoute{}, false
}

// RouteName reports which route m would take, or "" when it is ignored.
func (r *Router) RouteName(m *Message) string {
	route, _ := r.match(m)
	return route.name
}

func isUserChat(r *Router, m *Message) bool {
	return m.Private && m.From.ID != 0 && !r.IsOperatorChat(m.ChatID)
}

func isCommand(m *Message) bool {
	_, _, ok := parseCommand(m.Text)
	return ok
}

func commandName(m *Message) string {
	name, _, _ := parseCommand(m.Text)
	return name
}

func isKeyword(text string) bool {
	switch strings.TrimSpace(text) {
	case KeywordClients, KeywordHelp, KeywordCancel:
		return true
	}
	return false
}
