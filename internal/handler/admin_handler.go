package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/config"
	"github.com/solecraft/marketplace/internal/domain/model"
	"github.com/solecraft/marketplace/internal/middleware"
	"github.com/solecraft/marketplace/internal/repository"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

// /admin 配下（カテゴリ・ユーザー・注文）
type AdminHandler struct {
	categories *usecase.CategoryUsecase
	users      *usecase.AdminUserUsecase
	orders     *usecase.AdminOrderUsecase
	log        *zap.Logger
}

func NewAdminHandler(
	categories *usecase.CategoryUsecase,
	users *usecase.AdminUserUsecase,
	orders *usecase.AdminOrderUsecase,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{categories: categories, users: users, orders: orders, log: log}
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type SetUserActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *AdminHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	// ★ /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := api.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.RequireRole(model.RoleAdmin),
	)

	admin.POST("/categories", h.createCategory)
	admin.PATCH("/users/:id/active", h.setUserActive)
	admin.POST("/orders/:id/complete", h.completeOrder)
}

func (h *AdminHandler) createCategory(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateCategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.categories.CreateCategory(c.Request().Context(), adminID, req.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminHandler) setUserActive(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SetUserActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.users.SetUserActive(c.Request().Context(), adminID, c.Param("id"), *req.IsActive)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) completeOrder(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.orders.CompleteOrder(c.Request().Context(), adminID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
