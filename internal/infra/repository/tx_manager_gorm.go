package repository

import (
	"context"

	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	tx *gorm.DB
}

func (r *txReposGorm) Users() repo.UserRepository       { return NewUserGormRepository(r.tx) }
func (r *txReposGorm) Accounts() repo.AccountRepository { return NewAccountGormRepository(r.tx) }
func (r *txReposGorm) Designs() repo.DesignRepository   { return NewDesignGormRepository(r.tx) }
func (r *txReposGorm) Carts() repo.CartRepository       { return NewCartGormRepository(r.tx) }
func (r *txReposGorm) CartDetails() repo.CartDetailRepository {
	return NewCartGormRepository(r.tx)
}
func (r *txReposGorm) Orders() repo.OrderRepository { return NewOrderGormRepository(r.tx) }
func (r *txReposGorm) OrderDetails() repo.OrderDetailRepository {
	return NewOrderDetailGormRepository(r.tx)
}
func (r *txReposGorm) Wallets() repo.WalletRepository { return NewWalletGormRepository(r.tx) }
func (r *txReposGorm) Transactions() repo.WalletTransactionRepository {
	return NewWalletTransactionGormRepository(r.tx)
}
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return NewAuditLogGormRepository(r.tx) }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnがerrorを返せばrollback
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(&txReposGorm{tx: tx})
	})
}
