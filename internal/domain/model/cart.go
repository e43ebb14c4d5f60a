package model

import "time"

// 1ユーザーにつき1つ。チェックアウトで削除される
type Cart struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

type CartDetail struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CartID   string `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_design" json:"cart_id"`
	DesignID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_design" json:"design_id"`
	Quantity int64  `gorm:"not null" json:"quantity"`
}
