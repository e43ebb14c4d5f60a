package usecase_test

import (
	"context"
	"time"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager Mock
// =====================

type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Repos)
}

// 必要なリポジトリだけ差し込む。それ以外はnil
type txReposStub struct {
	users  repo.UserRepository
	orders repo.OrderRepository
	audit  repo.AuditLogRepository
}

func (s txReposStub) Users() repo.UserRepository                     { return s.users }
func (s txReposStub) Accounts() repo.AccountRepository               { return nil }
func (s txReposStub) Designs() repo.DesignRepository                 { return nil }
func (s txReposStub) Carts() repo.CartRepository                     { return nil }
func (s txReposStub) CartDetails() repo.CartDetailRepository         { return nil }
func (s txReposStub) Orders() repo.OrderRepository                   { return s.orders }
func (s txReposStub) OrderDetails() repo.OrderDetailRepository       { return nil }
func (s txReposStub) Wallets() repo.WalletRepository                 { return nil }
func (s txReposStub) Transactions() repo.WalletTransactionRepository { return nil }
func (s txReposStub) AuditLogs() repo.AuditLogRepository             { return s.audit }

// =====================
// Repository Mocks
// =====================

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByIDs(ctx context.Context, userIDs []string) ([]model.User, error) {
	args := m.Called(ctx, userIDs)
	u, _ := args.Get(0).([]model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) SetActive(ctx context.Context, userID string, active bool) error {
	return m.Called(ctx, userID, active).Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByPaymentRef(ctx context.Context, ref string) (*model.Order, error) {
	args := m.Called(ctx, ref)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	o, _ := args.Get(0).([]model.Order)
	return o, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) TransitionStatus(ctx context.Context, orderID string, from model.OrderStatus, to model.OrderStatus, at time.Time) error {
	return m.Called(ctx, orderID, from, to, at).Error(0)
}

type AuditLogRepoMock struct{ mock.Mock }

func (m *AuditLogRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditLogRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	l, _ := args.Get(0).([]model.AuditLog)
	return l, args.Error(1)
}
