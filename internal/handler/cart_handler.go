package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/middleware"
	"github.com/solecraft/marketplace/internal/repository"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

// /CartのHTTP
type CartHandler struct {
	uc  *usecase.CartUsecase
	log *zap.Logger
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, log *zap.Logger) *CartHandler {
	return &CartHandler{uc: uc, log: log}
}

type AddCartRequest struct {
	DesignID string `json:"designId" validate:"required"`
	Quantity int64  `json:"quantity" validate:"min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity" validate:"min=1"`
}

// /Cart, /Cart/:id を登録
func (h *CartHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/Cart")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.PUT("/:id", h.updateItem)
	g.DELETE("/:id", h.deleteItem)
	g.DELETE("", h.clear)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.AddToCart(c.Request().Context(), userID, req.DesignID, req.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.UpdateCartItem(c.Request().Context(), userID, c.Param("id"), req.Quantity)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.RemoveCartItem(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.ClearCart(c.Request().Context(), userID); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
