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

type AuthHandler struct {
	uc  *usecase.AuthUsecase
	log *zap.Logger
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log}
}

// /Auth/register のリクエストボディ。
type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	UserName string `json:"userName" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=USER DESIGNER"`
}

// /Auth/login のリクエストボディ。
type loginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (h *AuthHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/Auth")
	g.POST("/login", h.login)
	g.POST("/register", h.register)
	g.GET("/forgot", h.forgot)
	g.POST("/reset", h.reset)

	g.GET("/me", h.me, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		UserName: req.UserName,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		UserName: req.UserName,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ユーザーの有無に関わらず200
func (h *AuthHandler) forgot(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return badRequest(c, "email is required")
	}
	if err := h.uc.ForgotPassword(c.Request().Context(), email); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "if the email exists, a reset link has been sent"})
}

func (h *AuthHandler) reset(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.uc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
