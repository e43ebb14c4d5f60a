package repository

import (
	"context"
	"time"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
)

type MessageGormRepository struct {
	db *gorm.DB
}

func NewMessageGormRepository(db *gorm.DB) *MessageGormRepository {
	return &MessageGormRepository{db: db}
}

func (r *MessageGormRepository) Create(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MessageGormRepository) ListBetween(ctx context.Context, userA, userB string) ([]model.Message, error) {
	var items []model.Message
	if err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("sent_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.Message{}, err
	}
	return items, nil
}

func (r *MessageGormRepository) MarkRead(ctx context.Context, readerID, senderID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, readerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// 相手ごとの最新1件と未読数だけを読む
func (r *MessageGormRepository) ListConversations(ctx context.Context, userID string) ([]repo.ConversationRow, error) {
	db := r.db.WithContext(ctx)

	ranked := db.Model(&model.Message{}).
		Select(
			"id, ROW_NUMBER() OVER (PARTITION BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END ORDER BY sent_at DESC, id DESC) AS rn",
			userID,
		).
		Where("sender_id = ? OR receiver_id = ?", userID, userID)

	var latestIDs []string
	if err := db.Table("(?) AS ranked", ranked).Where("rn = 1").Pluck("id", &latestIDs).Error; err != nil {
		return []repo.ConversationRow{}, err
	}
	if len(latestIDs) == 0 {
		return []repo.ConversationRow{}, nil
	}

	var latest []model.Message
	if err := db.Where("id IN ?", latestIDs).
		Order("sent_at desc").
		Order("id desc").
		Find(&latest).Error; err != nil {
		return []repo.ConversationRow{}, err
	}

	var unread []struct {
		SenderID string
		Unread   int64
	}
	if err := db.Model(&model.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&unread).Error; err != nil {
		return []repo.ConversationRow{}, err
	}
	unreadBy := make(map[string]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.SenderID] = u.Unread
	}

	rows := make([]repo.ConversationRow, 0, len(latest))
	for _, m := range latest {
		counterpart := m.ReceiverID
		if m.ReceiverID == userID {
			counterpart = m.SenderID
		}
		rows = append(rows, repo.ConversationRow{
			CounterpartID: counterpart,
			LastMessage:   m,
			UnreadCount:   unreadBy[counterpart],
		})
	}
	return rows, nil
}
