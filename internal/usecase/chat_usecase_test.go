package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/solecraft/marketplace/internal/domain/model"
	"github.com/solecraft/marketplace/internal/media"
	"github.com/solecraft/marketplace/internal/realtime"
	"github.com/solecraft/marketplace/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImageSaver struct {
	url string
	err error
}

func (s stubImageSaver) Save(r io.Reader) (string, error) {
	return s.url, s.err
}

func newChatUC(s *stack, pub realtime.Publisher, images usecase.ImageSaver) *usecase.ChatUsecase {
	return usecase.NewChatUsecase(s.messages, s.users, pub, images, s.ids, s.clock, s.log)
}

// =====================
// メッセージ送信
// =====================

// 受信者にReceiveMessage、送信者にMessageSent
func TestSendMessage_PublishesToBothParties(t *testing.T) {
	s := newStack(t)
	alice := s.seedUser(t, "alice", model.RoleUser)
	bob := s.seedUser(t, "bob", model.RoleDesigner)
	pub := &recordingPublisher{}
	uc := newChatUC(s, pub, nil)

	m, err := uc.SendMessage(context.Background(), alice.ID, bob.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Body)
	assert.False(t, m.IsRead)

	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, bob.ID, events[0].UserID)
	assert.Equal(t, realtime.EventReceiveMessage, events[0].Event.Type)
	assert.Equal(t, alice.ID, events[1].UserID)
	assert.Equal(t, realtime.EventMessageSent, events[1].Event.Type)
}

// 受信者チェックが本文チェックより先
func TestSendMessage_Rejects(t *testing.T) {
	s := newStack(t)
	alice := s.seedUser(t, "alice", model.RoleUser)
	bob := s.seedUser(t, "bob", model.RoleUser)
	pub := &recordingPublisher{}
	uc := newChatUC(s, pub, nil)
	ctx := context.Background()

	_, err := uc.SendMessage(ctx, alice.ID, "missing", "")
	assertHTTPCode(t, err, 404, usecase.CodeNotFound)

	_, err = uc.SendMessage(ctx, alice.ID, bob.ID, "   ")
	assertHTTPCode(t, err, 400, usecase.CodeValidation)

	assert.Empty(t, pub.all())
}

// =====================
// 既読・履歴・会話一覧
// =====================

func TestMarkAsRead_NotifiesBothSides(t *testing.T) {
	s := newStack(t)
	alice := s.seedUser(t, "alice", model.RoleUser)
	bob := s.seedUser(t, "bob", model.RoleUser)
	pub := &recordingPublisher{}
	uc := newChatUC(s, pub, nil)
	ctx := context.Background()

	_, err := uc.SendMessage(ctx, alice.ID, bob.ID, "one")
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, alice.ID, bob.ID, "two")
	require.NoError(t, err)

	rc, err := uc.MarkAsRead(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rc.Count)

	events := pub.all()
	require.Len(t, events, 6)
	assert.Equal(t, bob.ID, events[4].UserID)
	assert.Equal(t, realtime.EventMessagesReadConfirmation, events[4].Event.Type)
	assert.Equal(t, alice.ID, events[5].UserID)
	assert.Equal(t, realtime.EventMessagesMarkedAsRead, events[5].Event.Type)

	// 2回目は0件
	rc, err = uc.MarkAsRead(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, rc.Count)
}

func TestHistoryAndConversations(t *testing.T) {
	s := newStack(t)
	alice := s.seedUser(t, "alice", model.RoleUser)
	bob := s.seedUser(t, "bob", model.RoleUser)
	carol := s.seedUser(t, "carol", model.RoleUser)
	uc := newChatUC(s, &recordingPublisher{}, nil)
	ctx := context.Background()

	_, err := uc.SendMessage(ctx, bob.ID, alice.ID, "hi alice")
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, alice.ID, bob.ID, "hi bob")
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, carol.ID, alice.ID, "from carol")
	require.NoError(t, err)

	history, err := uc.GetHistory(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi alice", history[0].Body)
	assert.Equal(t, "hi bob", history[1].Body)

	convs, err := uc.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, carol.ID, convs[0].UserID)
	assert.Equal(t, "carol", convs[0].UserName)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
	assert.Equal(t, bob.ID, convs[1].UserID)
	assert.Equal(t, "hi bob", convs[1].LastMessage)
	assert.Equal(t, int64(1), convs[1].UnreadCount)
}

// =====================
// 画像アップロード
// =====================

func TestUploadChatImage_MapsMediaErrors(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"空ファイル", media.ErrEmptyFile, usecase.CodeValidation},
		{"大きすぎる", media.ErrTooLarge, usecase.CodeValidation},
		{"画像ではない", media.ErrNotImage, usecase.CodeValidation},
		{"保存失敗", errors.New("disk full"), usecase.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newChatUC(s, &recordingPublisher{}, stubImageSaver{err: tt.err})
			_, err := uc.UploadChatImage(ctx, strings.NewReader("x"))
			assert.True(t, usecase.IsCode(err, tt.code), "got %v", err)
		})
	}

	uc := newChatUC(s, &recordingPublisher{}, stubImageSaver{url: "/uploads/chat/a.png"})
	got, err := uc.UploadChatImage(ctx, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/chat/a.png", got)
}
