package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
)

const redisKeyPrefix = "dealerchat:conversation:"

// RedisStore keeps each conversation as a hash plus a list of JSON-encoded
// messages. RPUSH preserves insertion order.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = &RedisStore{}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis store: empty address")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis store: ping %s", addr)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func conversationKey(id string) string { return redisKeyPrefix + id }
func messagesKey(id string) string     { return redisKeyPrefix + id + ":messages" }

func (s *RedisStore) CreateConversation(ctx context.Context, customerDomain string) (chat.Conversation, error) {
	if customerDomain == "" {
		return chat.Conversation{}, ErrDomainRequired
	}
	conv := chat.Conversation{
		ID:             uuid.NewString(),
		CustomerDomain: customerDomain,
		CreatedAt:      time.Now().UTC(),
	}
	err := s.rdb.HSet(ctx, conversationKey(conv.ID), map[string]any{
		"id":              conv.ID,
		"customer_domain": conv.CustomerDomain,
		"created_at":      conv.CreatedAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "hset conversation")
	}
	return conv, nil
}

func (s *RedisStore) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	fields, err := s.rdb.HGetAll(ctx, conversationKey(id)).Result()
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "hgetall conversation")
	}
	if len(fields) == 0 {
		return chat.Conversation{}, ErrConversationNotFound
	}
	conv := chat.Conversation{ID: fields["id"], CustomerDomain: fields["customer_domain"]}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		conv.CreatedAt = ts
	}

	raw, err := s.rdb.LRange(ctx, messagesKey(id), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return chat.Conversation{}, errors.Wrap(err, "lrange messages")
	}
	conv.Messages = make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return chat.Conversation{}, errors.Wrap(err, "unmarshal message")
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if err := validateMessage(message); err != nil {
		return chat.Message{}, err
	}
	n, err := s.rdb.Exists(ctx, conversationKey(message.ConversationID)).Result()
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "exists conversation")
	}
	if n == 0 {
		return chat.Message{}, ErrConversationNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(message)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "marshal message")
	}
	if err := s.rdb.RPush(ctx, messagesKey(message.ConversationID), data).Err(); err != nil {
		return chat.Message{}, errors.Wrap(err, "rpush message")
	}
	return message, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
