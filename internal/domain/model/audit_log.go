package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	AuditActionApproveRecharge AuditAction = "APPROVE_RECHARGE"
	AuditActionRejectRecharge  AuditAction = "REJECT_RECHARGE"
	AuditActionCompleteOrder   AuditAction = "COMPLETE_ORDER"
	AuditActionSetUserActive   AuditAction = "SET_USER_ACTIVE"
	AuditActionCreateCategory  AuditAction = "CREATE_CATEGORY"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceTransaction AuditResourceType = "wallet_transaction"
	AuditResourceOrder       AuditResourceType = "order"
	AuditResourceUser        AuditResourceType = "user"
	AuditResourceCategory    AuditResourceType = "category"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  string            `gorm:"type:varchar(36);not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   string            `gorm:"type:varchar(36);not null;index" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json"`
	AfterJSON    string            `gorm:"type:text" json:"after_json"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
