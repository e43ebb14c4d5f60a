package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeCharge     TransactionType = "CHARGE"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// 終端ステータスからは遷移しない
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

type PaymentMethod string

const (
	PaymentMethodWallet       PaymentMethod = "WALLET"
	PaymentMethodVNPay        PaymentMethod = "VNPAY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// 追記のみの台帳。BalanceBefore/Afterは確定時点のスナップショット
type WalletTransaction struct {
	ID            string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	WalletID      string            `gorm:"type:varchar(36);not null;index" json:"wallet_id"`
	Type          TransactionType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount        decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"balance_after"`
	Status        TransactionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod PaymentMethod     `gorm:"type:varchar(20);not null" json:"payment_method"`
	ExternalRef   *string           `gorm:"type:varchar(64);uniqueIndex" json:"external_ref,omitempty"`
	OrderID       *string           `gorm:"type:varchar(36);index" json:"order_id,omitempty"`
	Description   string            `gorm:"type:text" json:"description"`
	CreatedAt     time.Time         `gorm:"not null;index" json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}
