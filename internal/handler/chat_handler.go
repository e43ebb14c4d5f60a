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

type ChatHandler struct {
	uc  *usecase.ChatUsecase
	log *zap.Logger
}

func NewChatHandler(uc *usecase.ChatUsecase, log *zap.Logger) *ChatHandler {
	return &ChatHandler{uc: uc, log: log}
}

// 本文の空チェックは受信者の存在確認の後
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Message    string `json:"message"`
}

type UploadImageResponse struct {
	URL string `json:"url"`
}

func (h *ChatHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/Chat")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/send", h.send)
	g.GET("/history/:id", h.history)
	g.GET("/conversations", h.conversations)
	g.POST("/mark-read/:id", h.markRead)
	g.POST("/upload-image", h.uploadImage)
}

func (h *ChatHandler) send(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.SendMessage(c.Request().Context(), userID, req.ReceiverID, req.Message)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) history(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetHistory(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) conversations(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// :id は相手（送信者）のユーザーID
func (h *ChatHandler) markRead(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.MarkAsRead(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// multipartの "file"
func (h *ChatHandler) uploadImage(c echo.Context) error {
	if _, ok := getUserIDFromContext(c); !ok {
		return unauthorized(c)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot read file")
	}
	defer f.Close()

	url, err := h.uc.UploadChatImage(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, UploadImageResponse{URL: url})
}
