package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/domain/model"
	"github.com/solecraft/marketplace/internal/payment/vnpay"
	repo "github.com/solecraft/marketplace/internal/repository"
	"go.uber.org/zap"
)

// コールバック後にフロントへ付けるstatus
const (
	PaymentStatusSuccess       = "success"
	PaymentStatusFailed        = "payment-failed"
	PaymentStatusOrderNotFound = "order-not-found"
)

// PaymentGateway はVNPayクライアントの約束
type PaymentGateway interface {
	BuildPaymentURL(req vnpay.PaymentRequest) (string, error)
	VerifyCallback(query url.Values) (vnpay.CallbackResult, error)
}

type OrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	details repo.OrderDetailRepository
	gateway PaymentGateway
	ids     IDGenerator
	clock   Clock
	log     *zap.Logger

	returnURL   string
	frontendURL string
}

type OrderConfig struct {
	// VNPayから戻るAPIのURL
	ReturnURL   string
	FrontendURL string
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	details repo.OrderDetailRepository,
	gateway PaymentGateway,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
	cfg OrderConfig,
) *OrderUsecase {
	return &OrderUsecase{
		tx:          tx,
		orders:      orders,
		details:     details,
		gateway:     gateway,
		ids:         ids,
		clock:       clock,
		log:         log,
		returnURL:   cfg.ReturnURL,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

type CheckoutOutput struct {
	OrderID   string          `json:"order_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type PaymentIntentOutput struct {
	OrderID    string          `json:"order_id"`
	Total      decimal.Decimal `json:"total"`
	PaymentURL string          `json:"payment_url"`
}

type OrderView struct {
	model.Order
	Details []model.OrderDetail `json:"details"`
}

type OrderPage struct {
	Items    []OrderView `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Checkout はカートから注文を作る。カート削除・注文作成・明細作成は1トランザクション
func (u *OrderUsecase) Checkout(ctx context.Context, userID string) (CheckoutOutput, error) {
	var out CheckoutOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, lines, err := placeOrderFromCart(ctx, r, userID, nil, u.ids, u.clock.Now())
		if err != nil {
			return err
		}
		out = CheckoutOutput{OrderID: order.ID, Total: order.TotalAmount, ItemCount: len(lines)}
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, wrapTxError(err)
	}
	return out, nil
}

// CreatePaymentIntent は注文を作り、VNPayの決済URLを返す。
// amountが0より大きい場合はカート合計と一致しなければならない
func (u *OrderUsecase) CreatePaymentIntent(ctx context.Context, userID string, amount decimal.Decimal, clientIP string) (PaymentIntentOutput, error) {
	if u.gateway == nil {
		return PaymentIntentOutput{}, NewUpstreamError("payment provider is not configured", nil)
	}
	if amount.IsNegative() {
		return PaymentIntentOutput{}, NewValidationError("amount must not be negative")
	}

	ref := newPaymentRef(u.ids)
	var out PaymentIntentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, _, err := placeOrderFromCart(ctx, r, userID, &ref, u.ids, u.clock.Now())
		if err != nil {
			return err
		}
		if amount.IsPositive() && !amount.Equal(order.TotalAmount) {
			return NewValidationError("amount does not match cart total")
		}

		// URL生成に失敗したら注文ごと戻す
		payURL, err := u.gateway.BuildPaymentURL(vnpay.PaymentRequest{
			TxnRef:    ref,
			Amount:    order.TotalAmount,
			OrderInfo: "Thanh toan don hang " + order.ID,
			ReturnURL: u.returnURL,
			ClientIP:  clientIP,
		})
		if err != nil {
			return err
		}

		out = PaymentIntentOutput{OrderID: order.ID, Total: order.TotalAmount, PaymentURL: payURL}
		return nil
	})
	if err != nil {
		return PaymentIntentOutput{}, wrapTxError(err)
	}
	return out, nil
}

// HandleOrderCallback はVNPayの戻りを処理し、フロントのリダイレクト先を返す。
// PAID済みへの再送は成功扱い
func (u *OrderUsecase) HandleOrderCallback(ctx context.Context, query url.Values) string {
	if u.gateway == nil {
		return u.redirect(PaymentStatusFailed, "")
	}
	res, err := u.gateway.VerifyCallback(query)
	if err != nil {
		u.log.Warn("vnpay order callback rejected", zap.Error(err))
		if errors.Is(err, vnpay.ErrMissingTxnRef) {
			return u.redirect(PaymentStatusOrderNotFound, "")
		}
		return u.redirect(PaymentStatusFailed, "")
	}

	order, err := u.orders.FindByPaymentRef(ctx, res.TxnRef)
	if errors.Is(err, repo.ErrNotFound) {
		return u.redirect(PaymentStatusOrderNotFound, "")
	}
	if err != nil {
		u.log.Error("find order by payment ref", zap.String("ref", res.TxnRef), zap.Error(err))
		return u.redirect(PaymentStatusFailed, "")
	}

	// 失敗時は注文をPENDINGのまま残す
	if !res.Success() {
		u.log.Info("vnpay payment failed",
			zap.String("order_id", order.ID),
			zap.String("response_code", res.ResponseCode),
		)
		return u.redirect(PaymentStatusFailed, order.ID)
	}
	if !res.Amount.IsZero() && !res.Amount.Equal(order.TotalAmount) {
		u.log.Warn("vnpay amount mismatch",
			zap.String("order_id", order.ID),
			zap.String("paid", res.Amount.String()),
			zap.String("total", order.TotalAmount.String()),
		)
		return u.redirect(PaymentStatusFailed, order.ID)
	}

	if order.Status != model.OrderStatusPending {
		return u.redirect(PaymentStatusSuccess, order.ID)
	}

	err = u.orders.TransitionStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusPaid, u.clock.Now())
	if errors.Is(err, repo.ErrStateConflict) {
		// 同時に届いた別のコールバックが先に更新した
		return u.redirect(PaymentStatusSuccess, order.ID)
	}
	if err != nil {
		u.log.Error("mark order paid", zap.String("order_id", order.ID), zap.Error(err))
		return u.redirect(PaymentStatusFailed, order.ID)
	}

	u.log.Info("order paid via vnpay",
		zap.String("order_id", order.ID),
		zap.String("transaction_no", res.TransactionNo),
	)
	return u.redirect(PaymentStatusSuccess, order.ID)
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID string, page, pageSize int) (OrderPage, error) {
	page, pageSize = clampPage(page, pageSize)

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return OrderPage{}, NewInternalError(err)
	}

	items := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		details, err := u.details.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderPage{}, NewInternalError(err)
		}
		items = append(items, OrderView{Order: o, Details: details})
	}
	return OrderPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// 他人の注文は404
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID, orderID string) (OrderView, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderView{}, NewNotFoundError("order not found")
	}
	if err != nil {
		return OrderView{}, NewInternalError(err)
	}
	if o.UserID != userID {
		return OrderView{}, NewNotFoundError("order not found")
	}

	details, err := u.details.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderView{}, NewInternalError(err)
	}
	return OrderView{Order: *o, Details: details}, nil
}

func (u *OrderUsecase) redirect(status, orderID string) string {
	q := url.Values{}
	q.Set("status", status)
	if orderID != "" {
		q.Set("orderId", orderID)
	}
	if status == PaymentStatusSuccess {
		return u.frontendURL + "/payment-result?" + q.Encode()
	}
	return u.frontendURL + "/cart?" + q.Encode()
}

// placeOrderFromCart はTx内でカートを注文に変換する。
// 明細価格はmodel.SnapshotLineだけで決まる
func placeOrderFromCart(
	ctx context.Context,
	r repo.TxRepos,
	userID string,
	paymentRef *string,
	ids IDGenerator,
	now time.Time,
) (*model.Order, []model.OrderDetail, error) {
	cart, err := r.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, NewCartEmptyError()
	}
	if err != nil {
		return nil, nil, err
	}

	cartDetails, err := r.CartDetails().ListByCartID(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(cartDetails) == 0 {
		return nil, nil, NewCartEmptyError()
	}

	designIDs := make([]string, 0, len(cartDetails))
	for _, cd := range cartDetails {
		designIDs = append(designIDs, cd.DesignID)
	}
	designs, err := r.Designs().FindByIDs(ctx, designIDs)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]model.Design, len(designs))
	for _, d := range designs {
		byID[d.ID] = d
	}

	lines := make([]model.OrderDetail, 0, len(cartDetails))
	for _, cd := range cartDetails {
		d, ok := byID[cd.DesignID]
		if !ok {
			return nil, nil, NewNotFoundError("design not found: " + cd.DesignID)
		}
		if d.Hidden {
			return nil, nil, NewValidationError("design is no longer available: " + d.Name)
		}
		// 在庫はここで確保する。失敗したらTxごと戻る
		ok, err := r.Designs().DecreaseQuantityIfEnough(ctx, d.ID, cd.Quantity)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, NewValidationError("not enough stock: " + d.Name)
		}
		lines = append(lines, model.SnapshotLine(d, cd.Quantity))
	}

	order := &model.Order{
		ID:          ids.NewID(),
		UserID:      userID,
		Status:      model.OrderStatusPending,
		TotalAmount: model.SumLines(lines),
		PaymentRef:  paymentRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Orders().Create(ctx, order); err != nil {
		return nil, nil, err
	}
	if err := r.OrderDetails().CreateBulk(ctx, order.ID, lines); err != nil {
		return nil, nil, err
	}
	if err := r.Carts().Delete(ctx, cart.ID); err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// VNPayのTxnRefは英数字のみ
func newPaymentRef(ids IDGenerator) string {
	return strings.ReplaceAll(ids.NewID(), "-", "")
}
