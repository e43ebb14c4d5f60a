package usecase_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/domain/model"
	infraRepo "github.com/solecraft/marketplace/internal/infra/repository"
	"github.com/solecraft/marketplace/internal/mail"
	"github.com/solecraft/marketplace/internal/payment/vnpay"
	"github.com/solecraft/marketplace/internal/realtime"
	repo "github.com/solecraft/marketplace/internal/repository"
	"github.com/solecraft/marketplace/internal/testutil"
	"github.com/solecraft/marketplace/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testVNPaySecret = "TESTSECRET"
	testFrontend    = "http://fe.test"
)

// =====================
// 共通の部品
// =====================

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	// 呼ぶたびに1秒進める（並び順を安定させる）
	c.now = c.now.Add(time.Second)
	return c.now
}

type publishedEvent struct {
	UserID string
	Event  realtime.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(userID string, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: ev})
}

func (p *recordingPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

// 低コストのハッシュでテストを速くする
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (plainHasher) Verify(p, h string) bool       { return h == "h:"+p }

// =====================
// SQLite上の実リポジトリ一式
// =====================

type stack struct {
	db    *gorm.DB
	clock *fixedClock
	ids   usecase.UUIDGenerator
	log   *zap.Logger

	users      repo.UserRepository
	accounts   repo.AccountRepository
	designs    repo.DesignRepository
	categories repo.CategoryRepository
	carts      *infraRepo.CartGormRepository
	orders     repo.OrderRepository
	details    repo.OrderDetailRepository
	wallets    repo.WalletRepository
	txns       repo.WalletTransactionRepository
	feedback   repo.FeedbackRepository
	messages   repo.MessageRepository
	audit      repo.AuditLogRepository
	txm        repo.TransactionManager

	gateway *vnpay.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewDB(t)
	return &stack{
		db:         db,
		clock:      newFixedClock(),
		log:        zap.NewNop(),
		users:      infraRepo.NewUserGormRepository(db),
		accounts:   infraRepo.NewAccountGormRepository(db),
		designs:    infraRepo.NewDesignGormRepository(db),
		categories: infraRepo.NewCategoryGormRepository(db),
		carts:      infraRepo.NewCartGormRepository(db),
		orders:     infraRepo.NewOrderGormRepository(db),
		details:    infraRepo.NewOrderDetailGormRepository(db),
		wallets:    infraRepo.NewWalletGormRepository(db),
		txns:       infraRepo.NewWalletTransactionGormRepository(db),
		feedback:   infraRepo.NewFeedbackGormRepository(db),
		messages:   infraRepo.NewMessageGormRepository(db),
		audit:      infraRepo.NewAuditLogGormRepository(db),
		txm:        infraRepo.NewTxManagerGorm(db),
		gateway: vnpay.NewClient(vnpay.Config{
			TmnCode:    "TESTCODE",
			HashSecret: testVNPaySecret,
			PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		}),
	}
}

func (s *stack) cartUC() *usecase.CartUsecase {
	return usecase.NewCartUsecase(s.txm, s.carts, s.carts, s.designs)
}

func (s *stack) orderUC() *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(s.txm, s.orders, s.details, s.gateway, s.ids, s.clock, s.log, usecase.OrderConfig{
		ReturnURL:   "http://api.test/api/Order/vnpay-callback",
		FrontendURL: testFrontend,
	})
}

func (s *stack) walletUC() *usecase.WalletUsecase {
	return usecase.NewWalletUsecase(s.txm, s.wallets, s.txns, s.gateway, s.ids, s.clock, s.log, usecase.WalletConfig{
		ReturnURL:   "http://api.test/api/wallet/vnpay-callback",
		FrontendURL: testFrontend,
	})
}

func (s *stack) feedbackUC() *usecase.FeedbackUsecase {
	return usecase.NewFeedbackUsecase(s.feedback, s.orders, s.details, s.users, s.ids, s.clock)
}

func (s *stack) seedUser(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()
	now := time.Now().UTC()
	u := &model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     name + "-" + uuid.NewString()[:8] + "@example.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *stack) seedDesign(t *testing.T, designerID, name string, price int64) *model.Design {
	t.Helper()
	now := time.Now().UTC()
	d := &model.Design{
		ID:         uuid.NewString(),
		Name:       name,
		Quantity:   10,
		Price:      decimal.NewFromInt(price),
		DesignerID: designerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.designs.Create(context.Background(), d))
	return d
}

// 残高を直接入れる（COMPLETEDのCHARGEも残して台帳と合わせる）
func (s *stack) fundWallet(t *testing.T, userID string, amount int64) *model.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := s.wallets.GetOrCreateByUserID(ctx, userID)
	require.NoError(t, err)

	amt := decimal.NewFromInt(amount)
	after, err := s.wallets.AdjustBalance(ctx, w.ID, amt)
	require.NoError(t, err)

	now := s.clock.Now()
	require.NoError(t, s.txns.Create(ctx, &model.WalletTransaction{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		Type:          model.TransactionTypeCharge,
		Amount:        amt,
		BalanceBefore: after.Sub(amt),
		BalanceAfter:  after,
		Status:        model.TransactionStatusCompleted,
		PaymentMethod: model.PaymentMethodBankTransfer,
		CreatedAt:     now,
		CompletedAt:   &now,
	}))
	w.Balance = after
	return w
}

// カート投入→チェックアウトして注文IDを返す
func (s *stack) placeOrder(t *testing.T, userID string, items map[*model.Design]int64) string {
	t.Helper()
	ctx := context.Background()
	cart := s.cartUC()
	for d, qty := range items {
		_, err := cart.AddToCart(ctx, userID, d.ID, qty)
		require.NoError(t, err)
	}
	out, err := s.orderUC().Checkout(ctx, userID)
	require.NoError(t, err)
	return out.OrderID
}

// =====================
// 台帳の検査
// =====================

// 残高 = COMPLETEDの金額合計、かつ0以上
func assertLedgerConsistent(t *testing.T, s *stack, walletID string) {
	t.Helper()
	ctx := context.Background()

	w, err := s.wallets.FindByID(ctx, walletID)
	require.NoError(t, err)

	var rows []model.WalletTransaction
	require.NoError(t, s.db.Where("wallet_id = ? AND status = ?", walletID, model.TransactionStatusCompleted).Find(&rows).Error)

	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
	}
	assert.True(t, w.Balance.Equal(sum), "balance %s != completed sum %s", w.Balance, sum)
	assert.False(t, w.Balance.IsNegative(), "balance must not be negative")
}

// =====================
// VNPayの戻りを作る
// =====================

// 決済URLのクエリに結果コードを足して署名し直す
func signedCallback(t *testing.T, paymentURL, code string) url.Values {
	t.Helper()
	u, err := url.Parse(paymentURL)
	require.NoError(t, err)

	q := u.Query()
	q.Del("vnp_SecureHash")
	q.Set("vnp_ResponseCode", code)
	q.Set("vnp_TransactionStatus", code)
	q.Set("vnp_TransactionNo", "14000001")

	mac := hmac.New(sha512.New, []byte(testVNPaySecret))
	mac.Write([]byte(q.Encode()))
	q.Set("vnp_SecureHash", hex.EncodeToString(mac.Sum(nil)))
	return q
}

func assertHTTPCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "want HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
		assert.Equal(t, code, he.Code)
	}
}

// パラメータを書き換えた後に署名し直す
func resign(q url.Values) url.Values {
	q.Del("vnp_SecureHash")
	mac := hmac.New(sha512.New, []byte(testVNPaySecret))
	mac.Write([]byte(q.Encode()))
	q.Set("vnp_SecureHash", hex.EncodeToString(mac.Sum(nil)))
	return q
}
