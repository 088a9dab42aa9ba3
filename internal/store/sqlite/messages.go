// Package sqlite implements store.MessageStore on an embedded SQLite file
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "data/bot.db"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationURL returns the golang-migrate database URL for a SQLite file.
func MigrationURL(path string) string {
	return "sqlite://" + path
}

const messageColumns = `id, user_id, username, full_name, direction, kind, content, media_ref, created_at`

const clientSelect = `
	SELECT m.user_id,
		(SELECT u.username FROM messages u
			WHERE u.user_id = m.user_id AND u.username IS NOT NULL AND u.username <> ''
			ORDER BY u.created_at DESC, u.id DESC LIMIT 1),
		(SELECT f.full_name FROM messages f
			WHERE f.user_id = m.user_id AND f.full_name IS NOT NULL AND f.full_name <> ''
			ORDER BY f.created_at DESC, f.id DESC LIMIT 1),
		COUNT(*),
		MAX(m.created_at)
	FROM messages m`

// hasUserMessage keeps users who wrote at least once; operator-only ids are
// not clients.
const hasUserMessage = `
	HAVING SUM(CASE WHEN m.direction = 'from_user' THEN 1 ELSE 0 END) > 0`

// MessageStore is a SQLite-backed store.MessageStore.
type MessageStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.MessageStore = (*MessageStore)(nil)

// Open creates the parent directory, applies migrations and opens the database.
func Open(path string) (*MessageStore, error) {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := store.MigrateUp(Migrations, MigrationURL(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers; SQLite allows one at a time anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &MessageStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *MessageStore) Close() error {
	return s.db.Close()
}

// Append records msg and fills in its ID (and CreatedAt when zero).
func (s *MessageStore) Append(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (user_id, username, full_name, direction, kind, content, media_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.UserID,
		store.NullString(msg.Username),
		store.NullString(msg.FullName),
		string(msg.Direction),
		string(msg.Kind),
		store.NullString(msg.Text),
		store.NullString(msg.MediaReference),
		msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read message id: %w", err)
	}
	msg.ID = id
	return nil
}

// History returns the last limit messages of userID in chronological order.
func (s *MessageStore) History(ctx context.Context, userID int64, limit int) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, store.ClampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []store.Message
	for rows.Next() {
		m, err := store.ScanMessage(rows, store.UnixMilliColumn)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	store.Reverse(msgs)
	return msgs, nil
}

// Roster lists every user who has written, most recently active first.
func (s *MessageStore) Roster(ctx context.Context) ([]store.Client, error) {
	rows, err := s.db.QueryContext(ctx, clientSelect+`
		GROUP BY m.user_id`+hasUserMessage+`
		ORDER BY MAX(m.created_at) DESC, MAX(m.id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var clients []store.Client
	for rows.Next() {
		c, err := store.ScanClient(rows, store.UnixMilliColumn)
		if err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return clients, nil
}

// Client returns the roster row for userID, or nil if the user never wrote.
func (s *MessageStore) Client(ctx context.Context, userID int64) (*store.Client, error) {
	row := s.db.QueryRowContext(ctx, clientSelect+`
		WHERE m.user_id = ?
		GROUP BY m.user_id`+hasUserMessage, userID)

	c, err := store.ScanClient(row, store.UnixMilliColumn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}
	return &c, nil
}
