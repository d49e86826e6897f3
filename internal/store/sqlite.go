package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
)

// SQLiteStore persists conversations in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

// NewSQLiteStore opens dsn and applies the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite store: empty dsn")
	}
	if path := sqliteFilePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create sqlite directory for %s", path)
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// a single connection keeps ":memory:" databases coherent and serialises writers
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteFilePath returns the on-disk path of dsn, or "" for in-memory databases.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(strings.TrimSpace(dsn), "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	return path
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			customer_domain TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			sender TEXT NOT NULL CHECK (sender IN ('user', 'bot')),
			content TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_by_conversation ON messages(conversation_id, seq);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, customerDomain string) (chat.Conversation, error) {
	if customerDomain == "" {
		return chat.Conversation{}, ErrDomainRequired
	}
	conv := chat.Conversation{
		ID:             uuid.NewString(),
		CustomerDomain: customerDomain,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations(id, customer_domain, created_at_ms) VALUES(?,?,?)",
		conv.ID, conv.CustomerDomain, conv.CreatedAt.UnixMilli())
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "insert conversation")
	}
	return conv, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	var conv chat.Conversation
	var createdMs int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, customer_domain, created_at_ms FROM conversations WHERE id=?", id).
		Scan(&conv.ID, &conv.CustomerDomain, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "select conversation")
	}
	conv.CreatedAt = time.UnixMilli(createdMs).UTC()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, sender, content, created_at_ms FROM messages WHERE conversation_id=? ORDER BY seq", id)
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "select messages")
	}
	defer func() { _ = rows.Close() }()

	conv.Messages = make([]chat.Message, 0, 16)
	for rows.Next() {
		var (
			msg    chat.Message
			sender string
			ms     int64
		)
		if err := rows.Scan(&msg.ID, &sender, &msg.Content, &ms); err != nil {
			return chat.Conversation{}, errors.Wrap(err, "scan message")
		}
		msg.ConversationID = id
		msg.Sender = chat.Sender(sender)
		msg.CreatedAt = time.UnixMilli(ms).UTC()
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return chat.Conversation{}, errors.Wrap(err, "iterate messages")
	}
	return conv, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if err := validateMessage(message); err != nil {
		return chat.Message{}, err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM conversations WHERE id=?", message.ConversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Message{}, ErrConversationNotFound
	}
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "lookup conversation")
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.CreatedAt = message.CreatedAt.Truncate(time.Millisecond)

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages(id, conversation_id, sender, content, created_at_ms) VALUES(?,?,?,?,?)",
		message.ID, message.ConversationID, string(message.Sender), message.Content, message.CreatedAt.UnixMilli())
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "insert message")
	}
	return message, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
