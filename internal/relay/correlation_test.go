package relay

import (
	"sync"
	"testing"
)

func TestNotificationTableLookup(t *testing.T) {
	tab := NewNotificationTable(0)
	tab.Record(NotificationRecord{MessageID: 10, UserID: 111, DisplayName: "Ann"})
	tab.Record(NotificationRecord{MessageID: 0, UserID: 222})
	tab.Record(NotificationRecord{MessageID: 11, UserID: 0})

	if rec, ok := tab.Lookup(10); !ok || rec.UserID != 111 || rec.DisplayName != "Ann" {
		t.Errorf("Lookup(10) = %+v, %v", rec, ok)
	}
	if _, ok := tab.Lookup(0); ok {
		t.Error("Lookup(0) hit")
	}
	if _, ok := tab.Lookup(11); ok {
		t.Error("record without user was stored")
	}
	if tab.Len() != 1 {
		t.Errorf("Len = %d, want 1", tab.Len())
	}
}

func TestNotificationTableEvictsOldest(t *testing.T) {
	tab := NewNotificationTable(3)
	for id := 1; id <= 3; id++ {
		tab.Record(NotificationRecord{MessageID: id, UserID: int64(100 + id)})
	}
	// Touch 1 so 2 becomes the eviction candidate.
	tab.Lookup(1)
	tab.Record(NotificationRecord{MessageID: 4, UserID: 104})

	if _, ok := tab.Lookup(2); ok {
		t.Error("least recently used record survived")
	}
	for _, id := range []int{1, 3, 4} {
		if _, ok := tab.Lookup(id); !ok {
			t.Errorf("record %d evicted", id)
		}
	}
	if tab.Len() != 3 {
		t.Errorf("Len = %d, want 3", tab.Len())
	}
}

func TestNotificationTableConcurrent(t *testing.T) {
	tab := NewNotificationTable(64)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				tab.Record(NotificationRecord{MessageID: base*1000 + i, UserID: int64(base + 1)})
				tab.Lookup(base*1000 + i - 1)
			}
		}(w)
	}
	wg.Wait()
	if tab.Len() != 64 {
		t.Errorf("Len = %d, want capacity 64", tab.Len())
	}
}
