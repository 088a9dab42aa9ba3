package config

import "time"

// TelegramConfig configures the bot connection.
type TelegramConfig struct {
	Token                string  `json:"token"`
	OperatorChatID       int64   `json:"operator_chat_id"`
	Proxy                string  `json:"proxy,omitempty"`                  // http(s)/socks5 proxy URL for Bot API calls
	PollTimeout          int     `json:"poll_timeout,omitempty"`           // long polling timeout in seconds (default 30)
	MaxConcurrentUpdates int     `json:"max_concurrent_updates,omitempty"` // in-flight update handlers (default 64)
	RequestsPerSecond    float64 `json:"requests_per_second,omitempty"`    // outbound Bot API budget (default 25)
	UserRatePerMinute    int     `json:"user_rate_per_minute"`             // inbound messages per user (default 30, 0 or less = unlimited)
	RequestTimeout       string  `json:"request_timeout,omitempty"`        // per Bot API call (default "30s")
}

// RequestTimeoutDuration returns the per-call timeout.
func (t TelegramConfig) RequestTimeoutDuration() time.Duration {
	d, err := parseDuration("telegram.request_timeout", t.RequestTimeout)
	if err != nil || d == 0 {
		return 30 * time.Second
	}
	return d
}

// RelayConfig tunes the reply router.
type RelayConfig struct {
	PendingReplyTTL       string `json:"pending_reply_ttl,omitempty"`       // Go duration; empty or "0" = never expires
	NotificationCacheSize int    `json:"notification_cache_size,omitempty"` // correlation records kept (default 10000)
	RosterLimit           int    `json:"roster_limit,omitempty"`            // clients listed by /clients (default 20)
	Timezone              string `json:"timezone,omitempty"`                // IANA zone for rendered timestamps (default UTC)
}

// PendingReplyTTLDuration parses PendingReplyTTL.
func (r RelayConfig) PendingReplyTTLDuration() (time.Duration, error) {
	return parseDuration("relay.pending_reply_ttl", r.PendingReplyTTL)
}

// Location loads Timezone, falling back to UTC.
func (r RelayConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
