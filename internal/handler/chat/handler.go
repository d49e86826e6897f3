package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/dealer-chat/backend/internal/service/relay"
	"github.com/zhouzirui/dealer-chat/backend/pkg/utils"
)

const maxBodyBytes = 64 << 10

// 返回给前端的错误文案，保持与挂件约定一致。
const (
	msgInvalidRequest     = "Invalid request data"
	msgConversationLookup = "Failed to create or find conversation"
	msgProcessingFailed   = "Failed to process message"
)

// Relay 处理一次对话轮次
type Relay interface {
	HandleTurn(ctx context.Context, req relay.TurnRequest) (relay.TurnResult, error)
}

// Handler 聊天转发接口的HTTP处理器
type Handler struct {
	relay Relay
}

// New 创建聊天处理器
func New(r Relay) *Handler {
	return &Handler{relay: r}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

type chatRequest struct {
	Message        *string `json:"message"`
	CustomerDomain *string `json:"customerDomain"`
	ConversationID *string `json:"conversationId"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// handleChat 接收一条用户消息并返回机器人回复
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := log.With().
		Str("component", "chat_handler").
		Str("request_id", middleware.GetReqID(r.Context())).
		Logger()

	var payload chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.Warn().Err(err).Msg("invalid request body")
		utils.RespondError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if payload.Message == nil || *payload.Message == "" {
		logger.Warn().Msg("message is missing or empty")
		utils.RespondError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	req := relay.TurnRequest{Message: *payload.Message}
	if payload.CustomerDomain != nil {
		req.CustomerDomain = *payload.CustomerDomain
	}
	if payload.ConversationID != nil {
		req.ConversationID = *payload.ConversationID
	}

	result, err := h.relay.HandleTurn(r.Context(), req)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, chatResponse{
			Response:       result.Response,
			ConversationID: result.ConversationID,
		})
	case errors.Is(err, relay.ErrEmptyMessage):
		logger.Warn().Msg("empty message rejected")
		utils.RespondError(w, http.StatusBadRequest, msgInvalidRequest)
	case errors.Is(err, relay.ErrUnauthorizedDomain):
		logger.Warn().Str("customer_domain", req.CustomerDomain).Msg("unauthorized domain")
		utils.RespondError(w, http.StatusUnauthorized, relay.UnauthorizedDomainMessage)
	case errors.Is(err, relay.ErrConversationNotFound):
		logger.Warn().Str("conversation_id", req.ConversationID).Msg("conversation not found")
		utils.RespondError(w, http.StatusBadRequest, msgConversationLookup)
	default:
		logger.Error().Err(err).
			Str("customer_domain", req.CustomerDomain).
			Str("conversation_id", req.ConversationID).
			Msg("chat turn failed")
		utils.RespondError(w, http.StatusInternalServerError, msgProcessingFailed)
	}
}
