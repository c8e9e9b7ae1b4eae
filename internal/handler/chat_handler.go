package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/carwatch/internal/chat"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	// Send はユーザーメッセージを受け付けてアシスタントの返信を返す。
	Send(ctx context.Context, content string) (*chat.Message, error)
}

// ChatHandler はチャットアシスタントのHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Message string `json:"message"`
}

// chatMessageResponse はアシスタント返信のAPIレスポンス。
type chatMessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SendMessage はメッセージを受け付けてアシスタントの返信を返す。
// POST /api/chat/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	reply, err := h.service.Send(r.Context(), req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, chatMessageResponse{
		ID:        reply.ID,
		Role:      reply.Role,
		Content:   reply.Content,
		Timestamp: reply.Timestamp.Format(time.RFC3339),
	})
}
