package widget

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Sender identifies the author of a client-side message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// timestampLayout matches JavaScript's Date.prototype.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is the widget's local projection of a conversation turn.
type Message struct {
	ID        string
	Content   string
	Sender    Sender
	Timestamp time.Time
}

type messageJSON struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Sender    Sender `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// MarshalJSON writes the timestamp as a UTC ISO-8601 string with millisecond precision.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:        m.ID,
		Content:   m.Content,
		Sender:    m.Sender,
		Timestamp: m.Timestamp.UTC().Format(timestampLayout),
	})
}

// UnmarshalJSON parses the ISO timestamp back into a time value.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return errors.Wrapf(err, "message %s: parse timestamp", raw.ID)
	}
	*m = Message{ID: raw.ID, Content: raw.Content, Sender: raw.Sender, Timestamp: ts}
	return nil
}

// EncodeLog serialises a message log for local storage.
func EncodeLog(messages []Message) (string, error) {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", errors.Wrap(err, "encode message log")
	}
	return string(data), nil
}

// DecodeLog restores a log written by EncodeLog.
func DecodeLog(raw string) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, errors.Wrap(err, "decode message log")
	}
	return messages, nil
}
