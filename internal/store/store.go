// Package store persists conversations and their messages.
package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDomainRequired       = errors.New("customer domain is required")
	ErrInvalidMessage       = errors.New("message requires content and a known sender")
)

// Store is the data-access layer for conversations. Messages of a
// conversation are returned in insertion order.
type Store interface {
	CreateConversation(ctx context.Context, customerDomain string) (chat.Conversation, error)
	GetConversation(ctx context.Context, id string) (chat.Conversation, error)
	AppendMessage(ctx context.Context, message chat.Message) (chat.Message, error)
	Close() error
}

// Config selects and parameterises a backend.
type Config struct {
	Driver        string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteStore(cfg.DSN)
	case "bolt", "bbolt":
		return NewBoltStore(cfg.DSN)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validateMessage(message chat.Message) error {
	if message.ConversationID == "" {
		return ErrConversationNotFound
	}
	if message.Content == "" || !message.Sender.Valid() {
		return ErrInvalidMessage
	}
	return nil
}
