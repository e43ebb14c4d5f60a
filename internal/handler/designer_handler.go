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

// デザイナー本人のデザイン管理
type DesignerHandler struct {
	uc  *usecase.DesignUsecase
	log *zap.Logger
}

func NewDesignerHandler(uc *usecase.DesignUsecase, log *zap.Logger) *DesignerHandler {
	return &DesignerHandler{uc: uc, log: log}
}

type DesignRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity" validate:"min=0"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	CategoryID  string          `json:"categoryId"`
	Images      []string        `json:"images" validate:"omitempty,dive,required"`
}

// PUT /Designer/update はbodyにidを持つ
type UpdateDesignRequest struct {
	ID string `json:"id" validate:"required"`
	DesignRequest
}

type SetHiddenRequest struct {
	Hidden bool `json:"hidden"`
}

type GenerateDescriptionRequest struct {
	Name     string   `json:"name" validate:"required"`
	Keywords []string `json:"keywords"`
}

type GenerateDescriptionResponse struct {
	Description string `json:"description"`
}

func (h *DesignerHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group(
		"/Designer",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.RequireRole(model.RoleDesigner),
	)

	g.GET("", h.listMine)
	g.POST("/Create_Design", h.create)
	g.PUT("/update", h.update)
	g.PATCH("/:id", h.setHidden)
	g.POST("/generate-description", h.generateDescription)
}

func (h *DesignerHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListMyDesigns(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DesignerHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req DesignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	d, err := h.uc.CreateDesign(c.Request().Context(), userID, req.toInput())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DesignerHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateDesignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	d, err := h.uc.UpdateDesign(c.Request().Context(), userID, req.ID, req.toInput())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// 論理削除（hidden=true）と復帰
func (h *DesignerHandler) setHidden(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	req := SetHiddenRequest{Hidden: true}
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	d, err := h.uc.SetDesignHidden(c.Request().Context(), userID, c.Param("id"), req.Hidden)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DesignerHandler) generateDescription(c echo.Context) error {
	var req GenerateDescriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	text, err := h.uc.GenerateDescription(c.Request().Context(), req.Name, req.Keywords)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, GenerateDescriptionResponse{Description: text})
}

func (r DesignRequest) toInput() usecase.DesignInput {
	return usecase.DesignInput{
		Name:        r.Name,
		Description: r.Description,
		Quantity:    r.Quantity,
		Price:       r.Price,
		CategoryID:  r.CategoryID,
		Images:      r.Images,
	}
}
