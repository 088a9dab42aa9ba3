package relay

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultNotificationCacheSize bounds the correlation table when no size is configured.
const DefaultNotificationCacheSize = 10000

// NotificationRecord ties an operator-chat message (notification, copied
// media, reply prompt or confirmation) to the user it concerns.
type NotificationRecord struct {
	MessageID   int
	UserID      int64
	DisplayName string
}

// NotificationTable is a bounded LRU of NotificationRecords keyed by
// operator-chat message id. Safe for concurrent use. Records are not
// persisted: after a restart lookups miss and routing falls back to the
// pending reply.
type NotificationTable struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewNotificationTable creates a table holding at most capacity records.
func NewNotificationTable(capacity int) *NotificationTable {
	if capacity <= 0 {
		capacity = DefaultNotificationCacheSize
	}
	return &NotificationTable{cache: lru.New(capacity)}
}

// Record stores rec, evicting the least recently used entry when full.
// Zero message ids are ignored.
func (t *NotificationTable) Record(rec NotificationRecord) {
	if rec.MessageID == 0 || rec.UserID == 0 {
		return
	}
	t.mu.Lock()
	t.cache.Add(rec.MessageID, rec)
	t.mu.Unlock()
}

// Lookup returns the record for an operator-chat message id.
func (t *NotificationTable) Lookup(messageID int) (NotificationRecord, bool) {
	if messageID == 0 {
		return NotificationRecord{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache.Get(messageID)
	if !ok {
		return NotificationRecord{}, false
	}
	return v.(NotificationRecord), true
}

// Len returns the number of records held.
func (t *NotificationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}
