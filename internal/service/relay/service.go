// Package relay mediates one chat turn between the widget, the
// conversation store and the completion provider.
package relay

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
	"github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
	"github.com/zhouzirui/dealer-chat/backend/internal/store"
)

// UnauthorizedDomainMessage is shown to callers whose domain is not allow-listed.
const UnauthorizedDomainMessage = "Unauthorized domain. Please sign up for our service to use this feature."

var (
	ErrEmptyMessage         = errors.New("message is required")
	ErrUnauthorizedDomain   = errors.New("unauthorized domain")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Responder produces the bot reply for a turn.
type Responder interface {
	GenerateReply(ctx context.Context, p persona.Persona, history []chat.Message, userMessage string) (string, error)
}

// TurnRequest is one user turn as received from the widget.
type TurnRequest struct {
	Message        string
	CustomerDomain string
	ConversationID string
}

// TurnResult is the bot reply and the conversation it belongs to.
type TurnResult struct {
	Response       string
	ConversationID string
}

// Service runs relay turns. Turns on the same conversation are serialised.
type Service struct {
	store     store.Store
	personas  persona.Store
	responder Responder
	allow     AllowList
	locks     *keyedMutex
}

// NewService creates a relay service.
func NewService(st store.Store, personas persona.Store, responder Responder, allow AllowList) *Service {
	return &Service{
		store:     st,
		personas:  personas,
		responder: responder,
		allow:     allow,
		locks:     newKeyedMutex(),
	}
}

// Authorize checks the caller's domain against the allow-list.
func (s *Service) Authorize(domain string) error {
	if !s.allow.Allowed(domain) {
		return ErrUnauthorizedDomain
	}
	return nil
}

// HandleTurn validates the request, resolves or creates the conversation,
// records the user message, asks the responder for a reply and records it.
func (s *Service) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if req.Message == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if err := s.Authorize(req.CustomerDomain); err != nil {
		return TurnResult{}, err
	}

	conv, unlock, err := s.resolveConversation(ctx, req)
	if err != nil {
		return TurnResult{}, err
	}
	defer unlock()

	logger := log.With().
		Str("component", "relay").
		Str("conversation_id", conv.ID).
		Str("customer_domain", req.CustomerDomain).
		Logger()

	if _, err := s.store.AppendMessage(ctx, chat.Message{
		ConversationID: conv.ID,
		Sender:         chat.SenderUser,
		Content:        req.Message,
	}); err != nil {
		return TurnResult{}, errors.Wrap(err, "store user message")
	}

	reply, err := s.responder.GenerateReply(ctx, s.personas.ForDomain(req.CustomerDomain), conv.Messages, req.Message)
	if err != nil {
		return TurnResult{}, errors.Wrap(err, "generate reply")
	}

	if _, err := s.store.AppendMessage(ctx, chat.Message{
		ConversationID: conv.ID,
		Sender:         chat.SenderBot,
		Content:        reply,
	}); err != nil {
		return TurnResult{}, errors.Wrap(err, "store bot message")
	}

	logger.Info().Int("history", len(conv.Messages)).Msg("turn completed")
	return TurnResult{Response: reply, ConversationID: conv.ID}, nil
}

// resolveConversation loads or creates the conversation and returns it with
// its per-conversation lock held. The returned history predates this turn.
func (s *Service) resolveConversation(ctx context.Context, req TurnRequest) (chat.Conversation, func(), error) {
	if req.ConversationID == "" {
		created, err := s.store.CreateConversation(ctx, req.CustomerDomain)
		if err != nil {
			return chat.Conversation{}, nil, errors.Wrap(err, "create conversation")
		}
		log.Info().Str("component", "relay").Str("conversation_id", created.ID).Str("customer_domain", created.CustomerDomain).Msg("conversation created")
		return created, s.locks.Lock(created.ID), nil
	}

	unlock := s.locks.Lock(req.ConversationID)
	conv, err := s.store.GetConversation(ctx, req.ConversationID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrConversationNotFound) {
			return chat.Conversation{}, nil, ErrConversationNotFound
		}
		return chat.Conversation{}, nil, errors.Wrap(err, "load conversation")
	}
	return conv, unlock, nil
}
