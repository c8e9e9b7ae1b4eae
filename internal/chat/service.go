package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/carwatch/internal/model"
)

// メッセージ本文の最大長
const maxMessageLength = 2000

// Message はアシスタントとのやり取りの1メッセージ。
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user または assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Service はチャットアシスタントのサービス層。
type Service struct {
	responder Responder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(responder Responder) *Service {
	return &Service{responder: responder}
}

// Send はユーザーメッセージを受け取りアシスタントの応答を返す。
func (s *Service) Send(ctx context.Context, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.NewInvalidMessageError("メッセージが空です")
	}
	if len(content) > maxMessageLength {
		return nil, model.NewInvalidMessageError(fmt.Sprintf("メッセージが長すぎます（最大%d文字）", maxMessageLength))
	}

	reply, err := s.responder.Respond(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("応答の生成に失敗しました: %w", err)
	}

	return &Message{
		ID:        uuid.New().String(),
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now(),
	}, nil
}
