package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "chat.db"))
	require.NoError(t, err)

	boltStore, err := NewBoltStore(filepath.Join(dir, "bolt", "chat.bolt"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisStore := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"bolt":   boltStore,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreConversationLifecycle(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			conv, err := s.CreateConversation(ctx, "toyota.com")
			require.NoError(t, err)
			require.NotEmpty(t, conv.ID)
			require.Equal(t, "toyota.com", conv.CustomerDomain)

			got, err := s.GetConversation(ctx, conv.ID)
			require.NoError(t, err)
			require.Equal(t, conv.ID, got.ID)
			require.Equal(t, "toyota.com", got.CustomerDomain)
			require.Empty(t, got.Messages)

			for i := 0; i < 12; i++ {
				sender := chat.SenderUser
				if i%2 == 1 {
					sender = chat.SenderBot
				}
				msg, err := s.AppendMessage(ctx, chat.Message{
					ConversationID: conv.ID,
					Sender:         sender,
					Content:        fmt.Sprintf("turn %d", i),
				})
				require.NoError(t, err)
				require.NotEmpty(t, msg.ID)
				require.False(t, msg.CreatedAt.IsZero())
			}

			got, err = s.GetConversation(ctx, conv.ID)
			require.NoError(t, err)
			require.Len(t, got.Messages, 12)
			for i, msg := range got.Messages {
				require.Equal(t, fmt.Sprintf("turn %d", i), msg.Content)
				require.Equal(t, conv.ID, msg.ConversationID)
			}
			require.Equal(t, chat.SenderUser, got.Messages[0].Sender)
			require.Equal(t, chat.SenderBot, got.Messages[1].Sender)
		})
	}
}

func TestStoreMissingConversation(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetConversation(ctx, "missing")
			require.ErrorIs(t, err, ErrConversationNotFound)

			_, err = s.AppendMessage(ctx, chat.Message{ConversationID: "missing", Sender: chat.SenderUser, Content: "hi"})
			require.ErrorIs(t, err, ErrConversationNotFound)
		})
	}
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.CreateConversation(ctx, "")
			require.ErrorIs(t, err, ErrDomainRequired)

			conv, err := s.CreateConversation(ctx, "ford.com")
			require.NoError(t, err)

			_, err = s.AppendMessage(ctx, chat.Message{ConversationID: conv.ID, Sender: chat.SenderUser})
			require.ErrorIs(t, err, ErrInvalidMessage)

			_, err = s.AppendMessage(ctx, chat.Message{ConversationID: conv.ID, Sender: "assistant", Content: "x"})
			require.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestStoreConversationsAreIsolated(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			a, err := s.CreateConversation(ctx, "bmw.com")
			require.NoError(t, err)
			b, err := s.CreateConversation(ctx, "honda.com")
			require.NoError(t, err)
			require.NotEqual(t, a.ID, b.ID)

			_, err = s.AppendMessage(ctx, chat.Message{ConversationID: a.ID, Sender: chat.SenderUser, Content: "a"})
			require.NoError(t, err)

			got, err := s.GetConversation(ctx, b.ID)
			require.NoError(t, err)
			require.Empty(t, got.Messages)
		})
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(Config{Driver: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	require.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Driver: "cassandra"})
	require.Error(t, err)

	_, err = Open(Config{Driver: "bolt"})
	require.Error(t, err)
}

func TestOpenSQLiteCreatesMissingDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "nested", "chat.db")
	s, err := Open(Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	conv, err := s.CreateConversation(context.Background(), "toyota.com")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	require.FileExists(t, dsn)
}

func TestOpenSQLiteFileDSNWithQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "chat.db")
	s, err := Open(Config{Driver: "sqlite", DSN: "file:" + path + "?_busy_timeout=5000"})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.FileExists(t, path)
}

func TestSQLiteFilePath(t *testing.T) {
	require.Equal(t, "", sqliteFilePath(":memory:"))
	require.Equal(t, "", sqliteFilePath("file::memory:?cache=shared"))
	require.Equal(t, "data/chat.db", sqliteFilePath("data/chat.db"))
	require.Equal(t, "/var/lib/chat.db", sqliteFilePath("file:/var/lib/chat.db?_fk=1"))
}
