package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Users() UserRepository
	Accounts() AccountRepository
	Designs() DesignRepository
	Carts() CartRepository
	CartDetails() CartDetailRepository
	Orders() OrderRepository
	OrderDetails() OrderDetailRepository
	Wallets() WalletRepository
	Transactions() WalletTransactionRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
