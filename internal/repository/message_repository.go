package repository

import (
	"context"
	"time"

	"github.com/solecraft/marketplace/internal/domain/model"
)

// 相手ごとの会話サマリ
type ConversationRow struct {
	CounterpartID string
	LastMessage   model.Message
	UnreadCount   int64
}

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	// 古い順
	ListBetween(ctx context.Context, userA, userB string) ([]model.Message, error)
	// senderからreaderへの未読を一括既読にし、更新件数を返す
	MarkRead(ctx context.Context, readerID, senderID string, at time.Time) (int64, error)
	// 新しい順
	ListConversations(ctx context.Context, userID string) ([]ConversationRow, error)
}
