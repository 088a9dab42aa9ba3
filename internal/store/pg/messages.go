// Package pg implements store.MessageStore on Postgres for deployments that
// run more than one relay process against shared storage.
package pg

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/opsrelay/internal/store"
)

//go:embed migrations/*.sql
var Migrations embed.FS

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

// MessageStore is a Postgres-backed store.MessageStore.
type MessageStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.MessageStore = (*MessageStore)(nil)

// Open applies migrations and connects. dsn must be a postgres:// URL so the
// same string can drive golang-migrate.
func Open(dsn string) (*MessageStore, error) {
	if err := store.MigrateUp(Migrations, dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &MessageStore{db: db, now: time.Now}, nil
}

func (s *MessageStore) Close() error {
	return s.db.Close()
}

func (s *MessageStore) Append(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (user_id, username, full_name, direction, kind, content, media_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		msg.UserID,
		store.NullString(msg.Username),
		store.NullString(msg.FullName),
		string(msg.Direction),
		string(msg.Kind),
		store.NullString(msg.Text),
		store.NullString(msg.MediaReference),
		msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) History(ctx context.Context, userID int64, limit int) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, store.ClampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []store.Message
	for rows.Next() {
		m, err := store.ScanMessage(rows, store.TimeColumn)
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
		c, err := store.ScanClient(rows, store.TimeColumn)
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

func (s *MessageStore) Client(ctx context.Context, userID int64) (*store.Client, error) {
	row := s.db.QueryRowContext(ctx, clientSelect+`
		WHERE m.user_id = $1
		GROUP BY m.user_id`+hasUserMessage, userID)

	c, err := store.ScanClient(row, store.TimeColumn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}
	return &c, nil
}
