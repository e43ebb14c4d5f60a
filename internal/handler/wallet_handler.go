package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/domain/model"
	"github.com/solecraft/marketplace/internal/middleware"
	"github.com/solecraft/marketplace/internal/repository"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

type WalletHandler struct {
	uc  *usecase.WalletUsecase
	log *zap.Logger
}

func NewWalletHandler(uc *usecase.WalletUsecase, log *zap.Logger) *WalletHandler {
	return &WalletHandler{uc: uc, log: log}
}

// 金額の範囲はusecaseでINVALID_AMOUNTとして判定する
type RechargeRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=500"`
	PaymentMethod string          `json:"paymentMethod" validate:"omitempty,oneof=VNPAY BANK_TRANSFER"`
}

type PayOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

type ApproveRechargeRequest struct {
	Note string `json:"note" validate:"max=500"`
}

type RejectRechargeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
	Note   string `json:"note" validate:"max=500"`
}

type BalanceResponse struct {
	WalletID string          `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
	IsActive bool            `json:"isActive"`
}

func (h *WalletHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/wallet")
	auth := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo)}

	// VNPayからのリダイレクトは認証なし
	g.GET("/vnpay-callback", h.vnpayCallback)

	g.GET("/balance", h.balance, auth...)
	g.POST("/recharge", h.recharge, auth...)
	g.GET("/transactions", h.transactions, auth...)
	g.POST("/pay-order", h.payOrder, auth...)

	// ★ /wallet/admin 配下はADMIN限定
	admin := g.Group("/admin", append(auth, middleware.RequireRole(model.RoleAdmin))...)
	admin.GET("/pending", h.pending)
	admin.POST("/approve/:id", h.approve)
	admin.POST("/reject/:id", h.reject)
}

func (h *WalletHandler) balance(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	w, err := h.uc.GetOrCreateWallet(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, BalanceResponse{WalletID: w.ID, Balance: w.Balance, IsActive: w.IsActive})
}

func (h *WalletHandler) recharge(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req RechargeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.InitiateRecharge(c.Request().Context(), userID, usecase.RechargeInput{
		Amount:      req.Amount,
		Description: req.Description,
		Method:      model.PaymentMethod(req.PaymentMethod),
		ClientIP:    c.RealIP(),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *WalletHandler) vnpayCallback(c echo.Context) error {
	target := h.uc.HandleRechargeCallback(c.Request().Context(), c.QueryParams())
	return c.Redirect(http.StatusFound, target)
}

func (h *WalletHandler) transactions(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, size, ok := pageParams(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.ListTransactions(c.Request().Context(), userID, page, size)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) payOrder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PayOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.PayOrderFromWallet(c.Request().Context(), userID, req.OrderID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) pending(c echo.Context) error {
	page, size, ok := pageParams(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.ListPendingRecharges(c.Request().Context(), page, size)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) approve(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ApproveRechargeRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	out, err := h.uc.ApproveRecharge(c.Request().Context(), adminID, c.Param("id"), req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) reject(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req RejectRechargeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.RejectRecharge(c.Request().Context(), adminID, c.Param("id"), req.Reason, req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
