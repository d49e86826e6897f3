package chat

import "time"

// Conversation groups the turns exchanged with one dealership site.
type Conversation struct {
	ID             string    `json:"id"`
	CustomerDomain string    `json:"customerDomain"`
	CreatedAt      time.Time `json:"createdAt"`
	Messages       []Message `json:"messages,omitempty"`
}

// LastMessages returns at most n of the most recent messages, oldest first.
func (c Conversation) LastMessages(n int) []Message {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	start := 0
	if len(c.Messages) > n {
		start = len(c.Messages) - n
	}
	out := make([]Message, len(c.Messages)-start)
	copy(out, c.Messages[start:])
	return out
}
