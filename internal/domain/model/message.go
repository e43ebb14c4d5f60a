package model

import "time"

// 既読フラグ以外は送信後に変更しない
type Message struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	SenderID   string     `gorm:"type:varchar(36);not null;index" json:"sender_id"`
	ReceiverID string     `gorm:"type:varchar(36);not null;index" json:"receiver_id"`
	SentAt     time.Time  `gorm:"not null;index" json:"sent_at"`
	IsRead     bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}
