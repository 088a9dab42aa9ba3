package store

import (
	"database/sql"
	"time"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// NullString maps an empty string to SQL NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ScanMessage reads the column list
// id, user_id, username, full_name, direction, kind, content, media_ref
// followed by one timestamp column decoded by ts.
func ScanMessage(row RowScanner, ts func() (any, func() time.Time)) (Message, error) {
	var (
		m                  Message
		username, fullName sql.NullString
		content, mediaRef  sql.NullString
		direction, kind    string
	)
	dst, decode := ts()
	if err := row.Scan(&m.ID, &m.UserID, &username, &fullName, &direction, &kind, &content, &mediaRef, dst); err != nil {
		return Message{}, err
	}
	m.Username = username.String
	m.FullName = fullName.String
	m.Direction = Direction(direction)
	m.Kind = Kind(kind)
	m.Text = content.String
	m.MediaReference = mediaRef.String
	m.CreatedAt = decode()
	return m, nil
}

// ScanClient reads user_id, username, full_name, message_count followed by
// one timestamp column decoded by ts.
func ScanClient(row RowScanner, ts func() (any, func() time.Time)) (Client, error) {
	var (
		c                  Client
		username, fullName sql.NullString
	)
	dst, decode := ts()
	if err := row.Scan(&c.UserID, &username, &fullName, &c.MessageCount, dst); err != nil {
		return Client{}, err
	}
	c.Username = username.String
	c.FullName = fullName.String
	c.LastActivity = decode()
	return c, nil
}

// UnixMilliColumn decodes an INTEGER unix-millisecond column.
func UnixMilliColumn() (any, func() time.Time) {
	var v int64
	return &v, func() time.Time { return time.UnixMilli(v).UTC() }
}

// TimeColumn decodes a native timestamp column.
func TimeColumn() (any, func() time.Time) {
	var v time.Time
	return &v, func() time.Time { return v.UTC() }
}

// Reverse flips a newest-first result into chronological order in place.
func Reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
