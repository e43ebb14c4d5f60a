package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/solecraft/marketplace/internal/domain/model"
	"github.com/solecraft/marketplace/internal/media"
	"github.com/solecraft/marketplace/internal/realtime"
	repo "github.com/solecraft/marketplace/internal/repository"
	"go.uber.org/zap"
)

// ImageSaver はアップロード画像の保存先
type ImageSaver interface {
	Save(r io.Reader) (string, error)
}

type ChatUsecase struct {
	messages repo.MessageRepository
	users    repo.UserRepository
	pub      realtime.Publisher
	images   ImageSaver
	ids      IDGenerator
	clock    Clock
	log      *zap.Logger
}

func NewChatUsecase(
	messages repo.MessageRepository,
	users repo.UserRepository,
	pub realtime.Publisher,
	images ImageSaver,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		messages: messages,
		users:    users,
		pub:      pub,
		images:   images,
		ids:      ids,
		clock:    clock,
		log:      log,
	}
}

type ReadReceipt struct {
	ReaderID string    `json:"reader_id"`
	SenderID string    `json:"sender_id"`
	Count    int64     `json:"count"`
	ReadAt   time.Time `json:"read_at"`
}

type Conversation struct {
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int64     `json:"unread_count"`
}

// SendMessage は保存後に双方へ通知する。通知失敗は送信結果に影響しない
func (u *ChatUsecase) SendMessage(ctx context.Context, senderID, receiverID, text string) (*model.Message, error) {
	if _, err := u.users.FindByID(ctx, receiverID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewNotFoundError("receiver not found")
		}
		return nil, NewInternalError(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewValidationError("message is required")
	}

	m := &model.Message{
		ID:         u.ids.NewID(),
		Body:       text,
		SenderID:   senderID,
		ReceiverID: receiverID,
		SentAt:     u.clock.Now(),
	}
	if err := u.messages.Create(ctx, m); err != nil {
		return nil, NewInternalError(err)
	}

	u.pub.Publish(receiverID, realtime.Event{Type: realtime.EventReceiveMessage, Payload: m})
	u.pub.Publish(senderID, realtime.Event{Type: realtime.EventMessageSent, Payload: m})
	return m, nil
}

// MarkAsRead は otherID から readerID への未読をまとめて既読にする
func (u *ChatUsecase) MarkAsRead(ctx context.Context, readerID, otherID string) (ReadReceipt, error) {
	now := u.clock.Now()
	n, err := u.messages.MarkRead(ctx, readerID, otherID, now)
	if err != nil {
		return ReadReceipt{}, NewInternalError(err)
	}

	rc := ReadReceipt{ReaderID: readerID, SenderID: otherID, Count: n, ReadAt: now}
	u.pub.Publish(readerID, realtime.Event{Type: realtime.EventMessagesReadConfirmation, Payload: rc})
	u.pub.Publish(otherID, realtime.Event{Type: realtime.EventMessagesMarkedAsRead, Payload: rc})
	return rc, nil
}

// 古い順
func (u *ChatUsecase) GetHistory(ctx context.Context, userID, otherID string) ([]model.Message, error) {
	items, err := u.messages.ListBetween(ctx, userID, otherID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return items, nil
}

// 新しい会話が先
func (u *ChatUsecase) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := u.messages.ListConversations(ctx, userID)
	if err != nil {
		return nil, NewInternalError(err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CounterpartID)
	}
	users, err := u.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, NewInternalError(err)
	}
	names := make(map[string]string, len(users))
	for _, usr := range users {
		names[usr.ID] = usr.Name
	}

	out := make([]Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Conversation{
			UserID:          r.CounterpartID,
			UserName:        names[r.CounterpartID],
			LastMessage:     r.LastMessage.Body,
			LastMessageTime: r.LastMessage.SentAt,
			UnreadCount:     r.UnreadCount,
		})
	}
	return out, nil
}

func (u *ChatUsecase) UploadChatImage(ctx context.Context, r io.Reader) (string, error) {
	if u.images == nil {
		return "", NewUpstreamError("image storage is not configured", nil)
	}
	url, err := u.images.Save(r)
	switch {
	case errors.Is(err, media.ErrEmptyFile):
		return "", NewValidationError("file is empty")
	case errors.Is(err, media.ErrTooLarge):
		return "", NewValidationError("file exceeds 5MB")
	case errors.Is(err, media.ErrNotImage):
		return "", NewValidationError("only image files are allowed")
	case err != nil:
		u.log.Error("save chat image", zap.Error(err))
		return "", NewInternalError(err)
	}
	return url, nil
}
