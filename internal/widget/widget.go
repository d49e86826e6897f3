package widget

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// ErrorReply is shown when the relay call fails for any reason.
	ErrorReply = "Sorry, there was an error sending your message. Please try again."
	// EmptyReply is shown when the relay answers with an empty response.
	EmptyReply = "Sorry, I could not process your message."

	defaultTimeout = 60 * time.Second
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSending      = errors.New("a message is already being sent")
)

// State is a snapshot handed to the View on every change.
type State struct {
	ContainerID    string
	Open           bool
	Sending        bool
	Input          string
	Messages       []Message
	ConversationID string
	Theme          Theme
}

// View renders widget state. ScrollToBottom is called from its own goroutine.
type View interface {
	Render(State)
	ScrollToBottom()
}

type nopView struct{}

func (nopView) Render(State)    {}
func (nopView) ScrollToBottom() {}

// Widget is the chat UI state machine.
type Widget struct {
	cfg     Config
	client  *relayClient
	storage Storage
	view    View

	mu             sync.Mutex
	open           bool
	sending        bool
	input          string
	messages       []Message
	conversationID string

	scrolls sync.WaitGroup
	now     func() time.Time
}

// New builds a widget from cfg and hydrates its log and conversation id from storage.
func New(cfg Config) (*Widget, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	if cfg.ContainerID == "" {
		return nil, errors.New("container id is required")
	}
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = DefaultWelcomeMessage
	}
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.View == nil {
		cfg.View = nopView{}
	}

	w := &Widget{
		cfg:     cfg,
		storage: cfg.Storage,
		view:    cfg.View,
		client: &relayClient{
			endpoint:   endpoint,
			customerID: cfg.CustomerDomain,
			http:       cfg.HTTPClient,
		},
		now: time.Now,
	}
	w.hydrate()
	return w, nil
}

func (w *Widget) hydrate() {
	raw, ok, err := w.storage.GetItem(MessagesKey)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("container", w.cfg.ContainerID).Msg("read stored messages")
	case ok && raw != "":
		messages, err := DecodeLog(raw)
		if err != nil {
			log.Warn().Err(err).Str("container", w.cfg.ContainerID).Msg("discard stored messages")
		} else {
			w.messages = messages
		}
	}

	id, ok, err := w.storage.GetItem(ConversationIDKey)
	if err != nil {
		log.Warn().Err(err).Str("container", w.cfg.ContainerID).Msg("read stored conversation id")
		return
	}
	if ok {
		w.conversationID = id
	}
}

// ContainerID returns the id of the element the widget is mounted in.
func (w *Widget) ContainerID() string { return w.cfg.ContainerID }

// Theme returns the configured theme.
func (w *Widget) Theme() Theme { return w.cfg.Theme }

func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *Widget) Sending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sending
}

func (w *Widget) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

// SetInput replaces the pending input text.
func (w *Widget) SetInput(text string) {
	w.mu.Lock()
	w.input = text
	state := w.snapshotLocked()
	w.mu.Unlock()
	w.view.Render(state)
}

// Messages returns a copy of the message log.
func (w *Widget) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Message(nil), w.messages...)
}

// ConversationID returns the cached conversation id, or "" before the first reply.
func (w *Widget) ConversationID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conversationID
}

// Toggle opens or closes the window. Opening with an empty log adds the
// welcome message locally.
func (w *Widget) Toggle() {
	w.mu.Lock()
	w.open = !w.open
	opened := w.open
	if opened && len(w.messages) == 0 {
		w.appendLocked(SenderBot, w.cfg.WelcomeMessage)
	}
	state := w.snapshotLocked()
	w.mu.Unlock()

	w.view.Render(state)
	if opened {
		w.scrollToBottom()
	}
}

// Submit sends text to the relay. Relay failures are reported in the log as
// a bot message, not returned.
func (w *Widget) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	w.mu.Lock()
	if w.sending {
		w.mu.Unlock()
		return ErrSending
	}
	w.sending = true
	w.appendLocked(SenderUser, text)
	w.input = ""
	req := relayRequest{Message: text, CustomerDomain: w.cfg.CustomerDomain}
	if w.conversationID != "" {
		id := w.conversationID
		req.ConversationID = &id
	}
	state := w.snapshotLocked()
	w.mu.Unlock()

	w.view.Render(state)
	w.scrollToBottom()

	resp, err := w.client.send(ctx, req)

	w.mu.Lock()
	if err != nil {
		log.Error().Err(err).Str("container", w.cfg.ContainerID).Msg("send message")
		w.appendLocked(SenderBot, ErrorReply)
	} else {
		reply := resp.Response
		if reply == "" {
			reply = EmptyReply
		}
		w.appendLocked(SenderBot, reply)
		if resp.ConversationID != "" && w.conversationID == "" {
			w.conversationID = resp.ConversationID
			if err := w.storage.SetItem(ConversationIDKey, resp.ConversationID); err != nil {
				log.Warn().Err(err).Msg("persist conversation id")
			}
		}
	}
	w.sending = false
	state = w.snapshotLocked()
	w.mu.Unlock()

	w.view.Render(state)
	w.scrollToBottom()
	return nil
}

// appendLocked adds a message and persists the log. Callers hold w.mu.
func (w *Widget) appendLocked(sender Sender, content string) {
	w.messages = append(w.messages, Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: w.now(),
	})

	raw, err := EncodeLog(w.messages)
	if err != nil {
		log.Warn().Err(err).Msg("encode message log")
		return
	}
	if err := w.storage.SetItem(MessagesKey, raw); err != nil {
		log.Warn().Err(err).Msg("persist message log")
	}
}

func (w *Widget) snapshotLocked() State {
	return State{
		ContainerID:    w.cfg.ContainerID,
		Open:           w.open,
		Sending:        w.sending,
		Input:          w.input,
		Messages:       append([]Message(nil), w.messages...),
		ConversationID: w.conversationID,
		Theme:          w.cfg.Theme,
	}
}

func (w *Widget) scrollToBottom() {
	w.scrolls.Add(1)
	go func() {
		defer w.scrolls.Done()
		w.view.ScrollToBottom()
	}()
}

// Wait blocks until scheduled scroll callbacks have run.
func (w *Widget) Wait() {
	w.scrolls.Wait()
}
