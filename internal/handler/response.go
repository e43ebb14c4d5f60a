package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/middleware"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// usecaseのHTTPErrorをそのままJSONにする。それ以外は500
func writeError(c echo.Context, log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("code", he.Code),
				zap.Error(he.Err),
			)
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Code, Message: he.Message, Data: he.Data})
	}

	//500
	log.Error("unexpected error",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: usecase.CodeInternal, Message: "internal error"})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: usecase.CodeUnauthorized, Message: "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: usecase.CodeValidation, Message: msg})
}

// AuthJWTが入れたuser_id
func getUserIDFromContext(c echo.Context) (string, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Bind + Validate。返るエラーはそのまま400のmessageにする
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.New("invalid body")
	}
	return c.Validate(req)
}

// 数値クエリ。空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// page / pageSize（limitも受ける）
func pageParams(c echo.Context) (int, int, bool) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return 0, 0, false
	}
	size, err := queryInt(c, "pageSize", 0)
	if err != nil {
		return 0, 0, false
	}
	if size == 0 {
		if size, err = queryInt(c, "limit", 20); err != nil {
			return 0, 0, false
		}
	}
	return page, size, true
}
