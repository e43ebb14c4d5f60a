package usecase

import (
	"context"
	"encoding/json"
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

// チャージ金額の上下限（両端含む）
var (
	MinRechargeAmount = decimal.NewFromInt(10_000)
	MaxRechargeAmount = decimal.NewFromInt(50_000_000)
)

// VNPayコールバック由来の操作者
const systemActorVNPay = "vnpay"

// チャージ結果画面へのstatus
const RechargeStatusNotFound = "transaction-not-found"

type WalletUsecase struct {
	tx           repo.TransactionManager
	wallets      repo.WalletRepository
	transactions repo.WalletTransactionRepository
	gateway      PaymentGateway
	ids          IDGenerator
	clock        Clock
	log          *zap.Logger

	returnURL   string
	frontendURL string
}

type WalletConfig struct {
	// VNPayから戻るAPIのURL
	ReturnURL   string
	FrontendURL string
}

func NewWalletUsecase(
	tx repo.TransactionManager,
	wallets repo.WalletRepository,
	transactions repo.WalletTransactionRepository,
	gateway PaymentGateway,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
	cfg WalletConfig,
) *WalletUsecase {
	return &WalletUsecase{
		tx:           tx,
		wallets:      wallets,
		transactions: transactions,
		gateway:      gateway,
		ids:          ids,
		clock:        clock,
		log:          log,
		returnURL:    cfg.ReturnURL,
		frontendURL:  strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

type RechargeInput struct {
	Amount      decimal.Decimal
	Description string
	Method      model.PaymentMethod
	ClientIP    string
}

type RechargeOutput struct {
	Transaction model.WalletTransaction `json:"transaction"`
	PaymentURL  string                  `json:"payment_url,omitempty"`
}

type TransactionPage struct {
	Items    []model.WalletTransaction `json:"items"`
	Total    int64                     `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

func (u *WalletUsecase) GetOrCreateWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := u.wallets.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return w, nil
}

// InitiateRecharge はPENDINGのCHARGEを作るだけで、残高は承認時に動く
func (u *WalletUsecase) InitiateRecharge(ctx context.Context, userID string, in RechargeInput) (RechargeOutput, error) {
	if in.Amount.LessThan(MinRechargeAmount) || in.Amount.GreaterThan(MaxRechargeAmount) {
		return RechargeOutput{}, NewInvalidAmountError("amount must be between 10,000 and 50,000,000")
	}

	method := in.Method
	switch method {
	case "":
		method = model.PaymentMethodBankTransfer
	case model.PaymentMethodBankTransfer, model.PaymentMethodVNPay:
	default:
		return RechargeOutput{}, NewValidationError("unsupported payment method")
	}
	if method == model.PaymentMethodVNPay && u.gateway == nil {
		return RechargeOutput{}, NewUpstreamError("payment provider is not configured", nil)
	}

	var out RechargeOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		w, err := r.Wallets().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return NewForbiddenError("wallet is inactive")
		}

		t := model.WalletTransaction{
			ID:            u.ids.NewID(),
			WalletID:      w.ID,
			Type:          model.TransactionTypeCharge,
			Amount:        in.Amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  w.Balance,
			Status:        model.TransactionStatusPending,
			PaymentMethod: method,
			Description:   strings.TrimSpace(in.Description),
			CreatedAt:     u.clock.Now(),
		}
		if method == model.PaymentMethodVNPay {
			ref := newPaymentRef(u.ids)
			t.ExternalRef = &ref
		}
		if err := r.Transactions().Create(ctx, &t); err != nil {
			return err
		}
		out.Transaction = t

		if method == model.PaymentMethodVNPay {
			payURL, err := u.gateway.BuildPaymentURL(vnpay.PaymentRequest{
				TxnRef:    *t.ExternalRef,
				Amount:    t.Amount,
				OrderInfo: "Nap tien vi " + t.ID,
				ReturnURL: u.returnURL,
				ClientIP:  in.ClientIP,
			})
			if err != nil {
				return err
			}
			out.PaymentURL = payURL
		}
		return nil
	})
	if err != nil {
		return RechargeOutput{}, wrapTxError(err)
	}
	return out, nil
}

// ApproveRecharge はPENDING→COMPLETEDと残高加算を同じTxで行う
func (u *WalletUsecase) ApproveRecharge(ctx context.Context, adminID string, txID string, note string) (*model.WalletTransaction, error) {
	var out *model.WalletTransaction
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		t, err := findPendingCharge(ctx, r, txID)
		if err != nil {
			return err
		}
		out, err = u.approveInTx(ctx, r, t, adminID, note)
		return err
	})
	if err != nil {
		return nil, wrapTxError(err)
	}
	return out, nil
}

// RejectRecharge はFAILEDにする。残高は動かさない
func (u *WalletUsecase) RejectRecharge(ctx context.Context, adminID string, txID string, reason string, note string) (*model.WalletTransaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewValidationError("reason is required")
	}

	var out *model.WalletTransaction
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		t, err := findPendingCharge(ctx, r, txID)
		if err != nil {
			return err
		}
		out, err = u.rejectInTx(ctx, r, t, adminID, reason, note)
		return err
	})
	if err != nil {
		return nil, wrapTxError(err)
	}
	return out, nil
}

// HandleRechargeCallback はVNPayの戻りを承認/却下と同じ処理に流し、リダイレクト先を返す。
// 確定済みへの再送は何もしない
func (u *WalletUsecase) HandleRechargeCallback(ctx context.Context, query url.Values) string {
	if u.gateway == nil {
		return u.redirect(PaymentStatusFailed, "")
	}
	res, err := u.gateway.VerifyCallback(query)
	if err != nil {
		u.log.Warn("vnpay recharge callback rejected", zap.Error(err))
		return u.redirect(PaymentStatusFailed, "")
	}

	t, err := u.transactions.FindByExternalRef(ctx, res.TxnRef)
	if errors.Is(err, repo.ErrNotFound) {
		return u.redirect(RechargeStatusNotFound, "")
	}
	if err != nil {
		u.log.Error("find transaction by external ref", zap.String("ref", res.TxnRef), zap.Error(err))
		return u.redirect(PaymentStatusFailed, "")
	}

	success := res.Success()
	reason := "VNPay response code " + res.ResponseCode
	if success && !res.Amount.IsZero() && !res.Amount.Equal(t.Amount) {
		u.log.Warn("vnpay recharge amount mismatch",
			zap.String("transaction_id", t.ID),
			zap.String("paid", res.Amount.String()),
			zap.String("expected", t.Amount.String()),
		)
		success = false
		reason = "amount mismatch"
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Transactions().FindByID(ctx, t.ID)
		if err != nil {
			return err
		}
		if cur.Status.IsTerminal() {
			return nil
		}
		if success {
			_, err = u.approveInTx(ctx, r, cur, systemActorVNPay, "VNPay "+res.TransactionNo)
			return err
		}
		_, err = u.rejectInTx(ctx, r, cur, systemActorVNPay, reason, "")
		return err
	})
	if err != nil && !IsCode(err, CodeInvalidState) {
		u.log.Error("apply vnpay recharge result", zap.String("transaction_id", t.ID), zap.Error(err))
		return u.redirect(PaymentStatusFailed, t.ID)
	}

	// 最終状態で結果を決める（再送・同時実行でも同じ結果）
	final, err := u.transactions.FindByID(ctx, t.ID)
	if err != nil {
		u.log.Error("reload transaction", zap.String("transaction_id", t.ID), zap.Error(err))
		return u.redirect(PaymentStatusFailed, t.ID)
	}
	if final.Status == model.TransactionStatusCompleted {
		return u.redirect(PaymentStatusSuccess, t.ID)
	}
	return u.redirect(PaymentStatusFailed, t.ID)
}

// PayOrderFromWallet は減算・PAYMENT記録・注文PAIDを1Txで行う
func (u *WalletUsecase) PayOrderFromWallet(ctx context.Context, userID string, orderID string) (*model.WalletTransaction, error) {
	var out *model.WalletTransaction

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order not found")
		}
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return NewNotFoundError("order not found")
		}
		if order.Status != model.OrderStatusPending {
			return NewInvalidStateError("order is not pending")
		}
		// VNPayで作った注文はVNPayのコールバックでしか支払わない
		if order.PaymentRef != nil {
			return NewInvalidStateError("order is awaiting vnpay payment")
		}

		// 合計は明細スナップショットから
		details, err := r.OrderDetails().ListByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}
		total := model.SumLines(details)
		if !total.IsPositive() {
			return NewInvalidStateError("order has no payable items")
		}

		w, err := r.Wallets().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if !w.IsActive {
			return NewForbiddenError("wallet is inactive")
		}
		if w.Balance.LessThan(total) {
			return NewInsufficientBalanceError(w.Balance, total)
		}

		newBalance, err := r.Wallets().AdjustBalance(ctx, w.ID, total.Neg())
		if errors.Is(err, repo.ErrInsufficientBalance) {
			// 読んだ後に別の支払いで減った
			latest, ferr := r.Wallets().FindByID(ctx, w.ID)
			if ferr != nil {
				return ferr
			}
			return NewInsufficientBalanceError(latest.Balance, total)
		}
		if err != nil {
			return err
		}

		now := u.clock.Now()
		t := model.WalletTransaction{
			ID:            u.ids.NewID(),
			WalletID:      w.ID,
			Type:          model.TransactionTypePayment,
			Amount:        total.Neg(),
			BalanceBefore: newBalance.Add(total),
			BalanceAfter:  newBalance,
			Status:        model.TransactionStatusCompleted,
			PaymentMethod: model.PaymentMethodWallet,
			OrderID:       &order.ID,
			Description:   "Payment for order " + order.ID,
			CreatedAt:     now,
			CompletedAt:   &now,
		}
		if err := r.Transactions().Create(ctx, &t); err != nil {
			return err
		}

		err = r.Orders().TransitionStatus(ctx, order.ID, model.OrderStatusPending, model.OrderStatusPaid, now)
		if errors.Is(err, repo.ErrStateConflict) {
			return NewInvalidStateError("order is not pending")
		}
		if err != nil {
			return err
		}

		out = &t
		return nil
	})
	if err != nil {
		return nil, wrapTxError(err)
	}
	return out, nil
}

// 新しい順。pageSizeは[1,100]
func (u *WalletUsecase) ListTransactions(ctx context.Context, userID string, page, pageSize int) (TransactionPage, error) {
	page, pageSize = clampPage(page, pageSize)

	w, err := u.wallets.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return TransactionPage{}, NewInternalError(err)
	}
	items, total, err := u.transactions.List(ctx, repo.TransactionListFilter{
		WalletID: w.ID,
		Page:     page,
		Limit:    pageSize,
	})
	if err != nil {
		return TransactionPage{}, NewInternalError(err)
	}
	return TransactionPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// 管理者向け：承認待ちのチャージ
func (u *WalletUsecase) ListPendingRecharges(ctx context.Context, page, pageSize int) (TransactionPage, error) {
	page, pageSize = clampPage(page, pageSize)

	items, total, err := u.transactions.List(ctx, repo.TransactionListFilter{
		Status: model.TransactionStatusPending,
		Type:   model.TransactionTypeCharge,
		Page:   page,
		Limit:  pageSize,
	})
	if err != nil {
		return TransactionPage{}, NewInternalError(err)
	}
	return TransactionPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (u *WalletUsecase) approveInTx(ctx context.Context, r repo.TxRepos, t *model.WalletTransaction, actorID, note string) (*model.WalletTransaction, error) {
	newBalance, err := r.Wallets().AdjustBalance(ctx, t.WalletID, t.Amount)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	final := repo.TransactionFinal{
		Status:        model.TransactionStatusCompleted,
		BalanceBefore: newBalance.Sub(t.Amount),
		BalanceAfter:  newBalance,
		Description:   appendNote(t.Description, "", note),
		At:            now,
	}
	// 先に確定された場合はTxごと戻して残高加算も取り消す
	if err := r.Transactions().Finalize(ctx, t.ID, final); err != nil {
		if errors.Is(err, repo.ErrStateConflict) {
			return nil, NewInvalidStateError("transaction is not pending")
		}
		return nil, err
	}

	before := *t
	applyFinal(t, final)
	if err := writeRechargeAudit(ctx, r, model.AuditActionApproveRecharge, actorID, &before, t, now); err != nil {
		return nil, err
	}
	return t, nil
}

func (u *WalletUsecase) rejectInTx(ctx context.Context, r repo.TxRepos, t *model.WalletTransaction, actorID, reason, note string) (*model.WalletTransaction, error) {
	now := u.clock.Now()
	final := repo.TransactionFinal{
		Status:        model.TransactionStatusFailed,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		Description:   appendNote(t.Description, "Rejected: "+reason, note),
		At:            now,
	}
	if err := r.Transactions().Finalize(ctx, t.ID, final); err != nil {
		if errors.Is(err, repo.ErrStateConflict) {
			return nil, NewInvalidStateError("transaction is not pending")
		}
		return nil, err
	}

	before := *t
	applyFinal(t, final)
	if err := writeRechargeAudit(ctx, r, model.AuditActionRejectRecharge, actorID, &before, t, now); err != nil {
		return nil, err
	}
	return t, nil
}

// 承認・却下の対象はPENDINGのCHARGEだけ
func findPendingCharge(ctx context.Context, r repo.TxRepos, txID string) (*model.WalletTransaction, error) {
	t, err := r.Transactions().FindByID(ctx, txID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewNotFoundError("transaction not found")
	}
	if err != nil {
		return nil, err
	}
	if t.Type != model.TransactionTypeCharge {
		return nil, NewInvalidStateError("transaction is not a recharge")
	}
	if t.Status != model.TransactionStatusPending {
		return nil, NewInvalidStateError("transaction is not pending")
	}
	return t, nil
}

func applyFinal(t *model.WalletTransaction, f repo.TransactionFinal) {
	at := f.At
	t.Status = f.Status
	t.BalanceBefore = f.BalanceBefore
	t.BalanceAfter = f.BalanceAfter
	t.Description = f.Description
	t.CompletedAt = &at
}

func writeRechargeAudit(ctx context.Context, r repo.TxRepos, action model.AuditAction, actorID string, before, after *model.WalletTransaction, now time.Time) error {
	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceTransaction,
		ResourceID:   after.ID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    now,
	})
}

func appendNote(desc, reason, note string) string {
	parts := []string{}
	for _, p := range []string{desc, reason} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if note = strings.TrimSpace(note); note != "" {
		parts = append(parts, "Note: "+note)
	}
	return strings.Join(parts, " | ")
}

func (u *WalletUsecase) redirect(status, txID string) string {
	q := url.Values{}
	q.Set("status", status)
	if txID != "" {
		q.Set("transactionId", txID)
	}
	return u.frontendURL + "/wallet?" + q.Encode()
}
