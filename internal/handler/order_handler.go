package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/middleware"
	"github.com/solecraft/marketplace/internal/repository"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc  *usecase.OrderUsecase
	log *zap.Logger
}

func NewOrderHandler(uc *usecase.OrderUsecase, log *zap.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, log: log}
}

// amountが0ならカート合計で作る
type CreateVNPayRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *OrderHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/Order")
	auth := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo)}

	// VNPayからのリダイレクトは認証なし
	g.GET("/vnpay-callback", h.vnpayCallback)

	g.POST("/checkout", h.checkout, auth...)
	g.POST("/create-vnpay", h.createVNPay, auth...)
	g.GET("", h.list, auth...)
	g.GET("/:id", h.detail, auth...)
}

func (h *OrderHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Checkout(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) createVNPay(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateVNPayRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), userID, req.Amount, c.RealIP())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 結果はフロントへのリダイレクトだけで伝える
func (h *OrderHandler) vnpayCallback(c echo.Context) error {
	target := h.uc.HandleOrderCallback(c.Request().Context(), c.QueryParams())
	return c.Redirect(http.StatusFound, target)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, size, ok := pageParams(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, size)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetMyOrder(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
