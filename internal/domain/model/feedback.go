package model

import "time"

// (顧客, デザイナー, 注文) ごとに1件まで
type Feedback struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Stars       int       `gorm:"not null" json:"stars"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CustomerID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_feedback_triple" json:"customer_id"`
	DesignerID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_feedback_triple;index" json:"designer_id"`
	OrderID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_feedback_triple" json:"order_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
