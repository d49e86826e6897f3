package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
)

var (
	bucketConversations = []byte("conversations")
	bucketMessages      = []byte("messages")
)

// BoltStore keeps conversations in a single BoltDB file. Each conversation
// owns a nested bucket under "messages" whose keys are the bucket sequence,
// so iteration order is insertion order.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = &BoltStore{}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bolt store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "bolt store: create directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketConversations); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMessages)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "bolt store: init buckets")
	}
	return &BoltStore{db: db}, nil
}

type boltConversation struct {
	ID             string    `json:"id"`
	CustomerDomain string    `json:"customerDomain"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *BoltStore) CreateConversation(_ context.Context, customerDomain string) (chat.Conversation, error) {
	if customerDomain == "" {
		return chat.Conversation{}, ErrDomainRequired
	}
	rec := boltConversation{
		ID:             uuid.NewString(),
		CustomerDomain: customerDomain,
		CreatedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "marshal conversation")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketConversations).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		_, err := tx.Bucket(bucketMessages).CreateBucket([]byte(rec.ID))
		return err
	})
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "put conversation")
	}
	return chat.Conversation{ID: rec.ID, CustomerDomain: rec.CustomerDomain, CreatedAt: rec.CreatedAt}, nil
}

func (s *BoltStore) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	var conv chat.Conversation
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketConversations).Get([]byte(id))
		if raw == nil {
			return ErrConversationNotFound
		}
		var rec boltConversation
		if err := json.Unmarshal(raw, &rec); err != nil {
			return errors.Wrap(err, "unmarshal conversation")
		}
		conv = chat.Conversation{ID: rec.ID, CustomerDomain: rec.CustomerDomain, CreatedAt: rec.CreatedAt}
		conv.Messages = make([]chat.Message, 0, 16)

		b := tx.Bucket(bucketMessages).Bucket([]byte(id))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var msg chat.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return errors.Wrap(err, "unmarshal message")
			}
			conv.Messages = append(conv.Messages, msg)
			return nil
		})
	})
	if err != nil {
		return chat.Conversation{}, err
	}
	return conv, nil
}

func (s *BoltStore) AppendMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if err := validateMessage(message); err != nil {
		return chat.Message{}, err
	}
	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketConversations).Get([]byte(message.ConversationID)) == nil {
			return ErrConversationNotFound
		}
		b, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists([]byte(message.ConversationID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(message)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
	if errors.Is(err, ErrConversationNotFound) {
		return chat.Message{}, err
	}
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "put message")
	}
	return message, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
