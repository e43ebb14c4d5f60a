package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// デザイン（ShoeCustom）。削除はHidden=trueのみ
type Design struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Quantity    int64           `gorm:"not null;default:0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	Hidden      bool            `gorm:"not null;default:false;index" json:"hidden"`
	CategoryID  string          `gorm:"type:varchar(36);index" json:"category_id"`
	DesignerID  string          `gorm:"type:varchar(36);not null;index" json:"designer_id"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`

	Images []DesignImage `gorm:"foreignKey:DesignID" json:"images"`
}

// 画像はPosition順。base64でもURLでも可
type DesignImage struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	DesignID string `gorm:"type:varchar(36);not null;index" json:"-"`
	Position int    `gorm:"not null" json:"position"`
	Source   string `gorm:"type:text;not null" json:"source"`
}
