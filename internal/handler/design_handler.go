package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/usecase"
	"go.uber.org/zap"
)

// /Designs と /Categories の公開API
type DesignHandler struct {
	designs    *usecase.DesignUsecase
	categories *usecase.CategoryUsecase
	log        *zap.Logger
}

// DI
func NewDesignHandler(designs *usecase.DesignUsecase, categories *usecase.CategoryUsecase, log *zap.Logger) *DesignHandler {
	return &DesignHandler{designs: designs, categories: categories, log: log}
}

// 公開ルートを登録
func (h *DesignHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/Designs", h.list)
	api.GET("/Designs/:id", h.detail)
	api.GET("/Categories", h.categoryList)
}

func (h *DesignHandler) list(c echo.Context) error {
	page, size, ok := pageParams(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	out, err := h.designs.ListPublicDesigns(c.Request().Context(), page, size, c.QueryParam("categoryId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 非公開は404
func (h *DesignHandler) detail(c echo.Context) error {
	d, err := h.designs.GetDesign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DesignHandler) categoryList(c echo.Context) error {
	out, err := h.categories.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
