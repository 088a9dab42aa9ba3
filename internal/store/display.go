package store

import (
	"strconv"
	"strings"
)

// DisplayName picks full name, then "@username", then the numeric id.
func DisplayName(userID int64, username, fullName string) string {
	if name := strings.TrimSpace(fullName); name != "" {
		return name
	}
	if u := strings.TrimSpace(username); u != "" {
		return "@" + strings.TrimPrefix(u, "@")
	}
	return strconv.FormatInt(userID, 10)
}

// JoinName builds a full name from Telegram's first/last name pair.
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
