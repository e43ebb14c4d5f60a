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

type FeedbackHandler struct {
	uc  *usecase.FeedbackUsecase
	log *zap.Logger
}

func NewFeedbackHandler(uc *usecase.FeedbackUsecase, log *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{uc: uc, log: log}
}

// starsとdescriptionの範囲はusecaseが判定順どおりに見る
type SubmitFeedbackRequest struct {
	DesignerID  string `json:"designerId" validate:"required"`
	OrderID     string `json:"orderId" validate:"required"`
	Stars       int    `json:"stars"`
	Description string `json:"description"`
}

func (h *FeedbackHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/Feedback")
	auth := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo)}

	// デザイナーの評価は誰でも見られる
	g.GET("/designer/:id", h.listDesigner)

	g.POST("", h.submit, auth...)
	g.GET("/my-feedbacks", h.listMine, auth...)
	g.GET("/order/:id/designers", h.orderDesigners, auth...)
}

func (h *FeedbackHandler) submit(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SubmitFeedbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.SubmitFeedback(c.Request().Context(), userID, usecase.FeedbackInput{
		DesignerID:  req.DesignerID,
		OrderID:     req.OrderID,
		Stars:       req.Stars,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *FeedbackHandler) listDesigner(c echo.Context) error {
	out, err := h.uc.ListDesignerFeedback(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FeedbackHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListMyFeedback(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FeedbackHandler) orderDesigners(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListOrderDesigners(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
