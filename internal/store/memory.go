package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
)

// MemoryStore keeps conversations in process memory. Suitable for local
// development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

// CreateConversation provisions a conversation bound to a customer domain.
func (s *MemoryStore) CreateConversation(_ context.Context, customerDomain string) (chat.Conversation, error) {
	if customerDomain == "" {
		return chat.Conversation{}, ErrDomainRequired
	}

	conv := chat.Conversation{
		ID:             uuid.NewString(),
		CustomerDomain: customerDomain,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return conv, nil
}

// GetConversation retrieves a conversation with a copy of its messages.
func (s *MemoryStore) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}
	messages := s.messages[id]
	conv.Messages = make([]chat.Message, len(messages))
	copy(conv.Messages, messages)
	return conv, nil
}

// AppendMessage adds a message to the end of the conversation history.
func (s *MemoryStore) AppendMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if err := validateMessage(message); err != nil {
		return chat.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[message.ConversationID]; !ok {
		return chat.Message{}, ErrConversationNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], message)
	return message, nil
}

// MessageCount reports how many messages have been stored across all conversations.
func (s *MemoryStore) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, msgs := range s.messages {
		n += len(msgs)
	}
	return n
}

// ConversationCount reports how many conversations exist.
func (s *MemoryStore) ConversationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (s *MemoryStore) Close() error { return nil }
