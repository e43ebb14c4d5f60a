package model

import "time"

type Role string

const (
	RoleUser     Role = "USER"
	RoleDesigner Role = "DESIGNER"
	RoleAdmin    Role = "ADMIN"
)

// ログイン情報はAccountに分離
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// Userと1:1
type Account struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	UserID       string `gorm:"type:varchar(36);uniqueIndex;not null"`
	UserName     string `gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`

	//パスワード再設定（平文は保存しない）
	ResetTokenHash      string `gorm:"type:varchar(64);index"`
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
