package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/domain/model"
)

type WalletRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID string) (*model.Wallet, error)
	FindByID(ctx context.Context, walletID string) (*model.Wallet, error)
	// balance = balance + delta を1文で実行し、更新後の残高を返す。
	// 結果が負になる場合は更新せずErrInsufficientBalance
	AdjustBalance(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// 台帳の絞り込み
type TransactionListFilter struct {
	WalletID string
	Status   model.TransactionStatus
	Type     model.TransactionType
	Page     int
	Limit    int
}

// 確定時に書き込む値
type TransactionFinal struct {
	Status        model.TransactionStatus
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	At            time.Time
}

type WalletTransactionRepository interface {
	Create(ctx context.Context, tx *model.WalletTransaction) error
	FindByID(ctx context.Context, id string) (*model.WalletTransaction, error)
	FindByExternalRef(ctx context.Context, ref string) (*model.WalletTransaction, error)
	// 新しい順
	List(ctx context.Context, f TransactionListFilter) ([]model.WalletTransaction, int64, error)
	// PENDINGのときだけ確定し、確定時点の残高スナップショットを書く。0件ならErrStateConflict
	Finalize(ctx context.Context, id string, f TransactionFinal) error
}
