package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/domain/model"
	"github.com/solecraft/marketplace/internal/handler"
	infraRepo "github.com/solecraft/marketplace/internal/infra/repository"
	"github.com/solecraft/marketplace/internal/mail"
	"github.com/solecraft/marketplace/internal/media"
	"github.com/solecraft/marketplace/internal/realtime"
	"github.com/solecraft/marketplace/internal/server"
	"github.com/solecraft/marketplace/internal/testutil"
	"github.com/solecraft/marketplace/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =====================
// テスト用アプリ
// =====================

type testApp struct {
	e      *echo.Echo
	db     *gorm.DB
	hasher *usecase.BcryptHasher
}

// main.goと同じ組み立て。VNPay/Geminiはなし
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gdb := testutil.NewDB(t)
	log := zap.NewNop()
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		GoEnv:          "dev",
		FEURL:          "http://fe.test",
	}

	userRepo := infraRepo.NewUserGormRepository(gdb)
	accountRepo := infraRepo.NewAccountGormRepository(gdb)
	designRepo := infraRepo.NewDesignGormRepository(gdb)
	categoryRepo := infraRepo.NewCategoryGormRepository(gdb)
	cartRepo := infraRepo.NewCartGormRepository(gdb)
	orderRepo := infraRepo.NewOrderGormRepository(gdb)
	orderDetailRepo := infraRepo.NewOrderDetailGormRepository(gdb)
	walletRepo := infraRepo.NewWalletGormRepository(gdb)
	txnRepo := infraRepo.NewWalletTransactionGormRepository(gdb)
	feedbackRepo := infraRepo.NewFeedbackGormRepository(gdb)
	messageRepo := infraRepo.NewMessageGormRepository(gdb)
	auditRepo := infraRepo.NewAuditLogGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)

	ids := usecase.UUIDGenerator{}
	clock := usecase.SystemClock{}
	hasher := usecase.NewBcryptHasher(4)
	hub := realtime.NewHub(log)
	images := media.NewImageStore(t.TempDir(), "http://api.test")

	designUC := usecase.NewDesignUsecase(designRepo, categoryRepo, nil, ids, clock, log)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, auditRepo, ids, clock)
	handlers := server.Handlers{
		Auth: handler.NewAuthHandler(usecase.NewAuthUsecase(txm, userRepo, accountRepo, hasher,
			usecase.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL), mail.NewLogMailer("no-reply@test", log), ids, clock, cfg.FEURL), log),
		Cart:     handler.NewCartHandler(usecase.NewCartUsecase(txm, cartRepo, cartRepo, designRepo), log),
		Design:   handler.NewDesignHandler(designUC, categoryUC, log),
		Designer: handler.NewDesignerHandler(designUC, log),
		Order: handler.NewOrderHandler(usecase.NewOrderUsecase(txm, orderRepo, orderDetailRepo, nil, ids, clock, log,
			usecase.OrderConfig{FrontendURL: cfg.FEURL}), log),
		Wallet: handler.NewWalletHandler(usecase.NewWalletUsecase(txm, walletRepo, txnRepo, nil, ids, clock, log,
			usecase.WalletConfig{FrontendURL: cfg.FEURL}), log),
		Admin: handler.NewAdminHandler(categoryUC, usecase.NewAdminUserUsecase(txm, clock), usecase.NewAdminOrderUsecase(txm, clock), log),
		Feedback: handler.NewFeedbackHandler(usecase.NewFeedbackUsecase(feedbackRepo, orderRepo, orderDetailRepo, userRepo, ids, clock), log),
		Chat:     handler.NewChatHandler(usecase.NewChatUsecase(messageRepo, userRepo, hub, images, ids, clock, log), log),
		Realtime: handler.NewRealtimeHandler(hub, "", log),
	}

	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg, userRepo, handlers, images.Dir())
	return &testApp{e: e, db: gdb, hasher: hasher}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

// 登録してログインし、トークンを返す
func (a *testApp) signUp(t *testing.T, userName, role string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/Auth/register", "", map[string]string{
		"name":     userName,
		"email":    userName + "@example.com",
		"userName": userName,
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(t, userName)
}

func (a *testApp) login(t *testing.T, userName string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/Auth/login", "", map[string]string{
		"userName": userName,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(t, rec, &out)
	return out.Token
}

// 管理者は登録APIで作れないので直接入れる
func (a *testApp) seedAdmin(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	hash, err := a.hasher.Hash("password123")
	require.NoError(t, err)

	require.NoError(t, infraRepo.NewUserGormRepository(a.db).Create(ctx, &model.User{
		ID: "admin-1", Name: "admin", Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, infraRepo.NewAccountGormRepository(a.db).Create(ctx, &model.Account{
		ID: "acc-admin-1", UserID: "admin-1", UserName: "admin", PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	}))
	return a.login(t, "admin")
}

// =====================
// ルート
// =====================

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// 入力エラーは VALIDATION_ERROR と項目名
func TestRegister_ValidationError(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/Auth/register", "", map[string]string{
		"name":     "taro",
		"email":    "not-an-email",
		"userName": "taro",
		"password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body handler.ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, usecase.CodeValidation, body.Error)
	assert.Contains(t, body.Message, "email")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/api/wallet/balance", "/api/Cart", "/api/Order", "/api/Chat/conversations", "/api/Auth/me"} {
		rec := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

// 一般ユーザーは管理APIに入れない
func TestAdminRoutesRequireAdminRole(t *testing.T) {
	app := newTestApp(t)
	token := app.signUp(t, "taro", "")

	rec := app.do(t, http.MethodGet, "/api/wallet/admin/pending", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/admin/categories", token, map[string]string{"name": "Sneaker"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// デザイナー専用
	rec = app.do(t, http.MethodGet, "/api/Designer", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =====================
// ウォレット
// =====================

// チャージ申請→管理者承認→残高反映
func TestWalletRechargeApproveFlow(t *testing.T) {
	app := newTestApp(t)
	user := app.signUp(t, "taro", "")
	admin := app.seedAdmin(t)

	rec := app.do(t, http.MethodPost, "/api/wallet/recharge", user, map[string]interface{}{"amount": 9999})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errBody handler.ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, usecase.CodeInvalidAmount, errBody.Error)

	rec = app.do(t, http.MethodPost, "/api/wallet/recharge", user, map[string]interface{}{
		"amount":      20000,
		"description": "bank transfer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created usecase.RechargeOutput
	decode(t, rec, &created)
	assert.Equal(t, model.TransactionStatusPending, created.Transaction.Status)

	rec = app.do(t, http.MethodGet, "/api/wallet/admin/pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending usecase.TransactionPage
	decode(t, rec, &pending)
	require.Len(t, pending.Items, 1)

	rec = app.do(t, http.MethodPost, "/api/wallet/admin/approve/"+created.Transaction.ID, admin, map[string]string{"note": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 二重承認は不可
	rec = app.do(t, http.MethodPost, "/api/wallet/admin/approve/"+created.Transaction.ID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/wallet/balance", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bal handler.BalanceResponse
	decode(t, rec, &bal)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(20000)), bal.Balance.String())
}

// 却下理由なしは400
func TestWalletRejectRequiresReason(t *testing.T) {
	app := newTestApp(t)
	user := app.signUp(t, "taro", "")
	admin := app.seedAdmin(t)

	rec := app.do(t, http.MethodPost, "/api/wallet/recharge", user, map[string]interface{}{"amount": 20000})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created usecase.RechargeOutput
	decode(t, rec, &created)

	rec = app.do(t, http.MethodPost, "/api/wallet/admin/reject/"+created.Transaction.ID, admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/wallet/admin/reject/"+created.Transaction.ID, admin, map[string]string{"reason": "no slip"})
	require.Equal(t, http.StatusOK, rec.Code)
	var rejected model.WalletTransaction
	decode(t, rec, &rejected)
	assert.Equal(t, model.TransactionStatusFailed, rejected.Status)
}

// VNPay未設定でもコールバックはフロントへ戻す
func TestVNPayCallbackRedirects(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/Order/vnpay-callback?vnp_TxnRef=x", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://fe.test/cart?status=payment-failed", rec.Header().Get(echo.HeaderLocation))

	rec = app.do(t, http.MethodGet, "/api/wallet/vnpay-callback?vnp_TxnRef=x", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://fe.test/wallet?status=payment-failed", rec.Header().Get(echo.HeaderLocation))
}

// =====================
// 購入の流れ
// =====================

// デザイン作成→カート→注文→ウォレット払い→評価
func TestPurchaseFlow(t *testing.T) {
	app := newTestApp(t)
	designer := app.signUp(t, "maker", "DESIGNER")
	buyer := app.signUp(t, "buyer", "")
	admin := app.seedAdmin(t)

	rec := app.do(t, http.MethodPost, "/api/Designer/Create_Design", designer, map[string]interface{}{
		"name":     "Runner",
		"quantity": 5,
		"price":    150000,
		"images":   []string{"https://cdn.example.com/a.png"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var design model.Design
	decode(t, rec, &design)

	rec = app.do(t, http.MethodGet, "/api/Designs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/Cart", buyer, map[string]interface{}{"designId": design.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/Order/checkout", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var order usecase.CheckoutOutput
	decode(t, rec, &order)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(300000)))

	// 残高なしでは払えない
	rec = app.do(t, http.MethodPost, "/api/wallet/pay-order", buyer, map[string]string{"orderId": order.OrderID})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errBody handler.ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, usecase.CodeInsufficientBalance, errBody.Error)
	assert.NotNil(t, errBody.Data)

	// 500,000チャージして承認
	rec = app.do(t, http.MethodPost, "/api/wallet/recharge", buyer, map[string]interface{}{"amount": 500000})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created usecase.RechargeOutput
	decode(t, rec, &created)
	rec = app.do(t, http.MethodPost, "/api/wallet/admin/approve/"+created.Transaction.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/wallet/pay-order", buyer, map[string]string{"orderId": order.OrderID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/wallet/balance", buyer, nil)
	var bal handler.BalanceResponse
	decode(t, rec, &bal)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(200000)), bal.Balance.String())

	rec = app.do(t, http.MethodGet, "/api/Order/"+order.OrderID, buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view usecase.OrderView
	decode(t, rec, &view)
	assert.Equal(t, model.OrderStatusPaid, view.Status)

	rec = app.do(t, http.MethodPost, "/api/Feedback", buyer, map[string]interface{}{
		"designerId":  design.DesignerID,
		"orderId":     order.OrderID,
		"stars":       5,
		"description": "great shoes",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/Feedback", buyer, map[string]interface{}{
		"designerId":  design.DesignerID,
		"orderId":     order.OrderID,
		"stars":       4,
		"description": "again",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/Feedback/designer/"+design.DesignerID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fb usecase.DesignerFeedback
	decode(t, rec, &fb)
	assert.Equal(t, 1, fb.Count)

	// 管理者が完了にする
	rec = app.do(t, http.MethodPost, "/api/admin/orders/"+order.OrderID+"/complete", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// =====================
// チャット
// =====================

func TestChatSendAndHistory(t *testing.T) {
	app := newTestApp(t)
	alice := app.signUp(t, "alice", "")
	bob := app.signUp(t, "bobby", "")

	rec := app.do(t, http.MethodGet, "/api/Auth/me", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me usecase.UserDTO
	decode(t, rec, &me)

	rec = app.do(t, http.MethodPost, "/api/Chat/send", alice, map[string]string{"receiverId": me.ID, "message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/Chat/send", alice, map[string]string{"receiverId": me.ID, "message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/Chat/conversations", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var convs []usecase.Conversation
	decode(t, rec, &convs)
	require.Len(t, convs, 1)
	assert.Equal(t, "hello", convs[0].LastMessage)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
}
