package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/solecraft/marketplace/internal/ai"
	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
	"go.uber.org/zap"
)

const maxDesignImages = 10

// デザイン作成・更新の入力
type DesignInput struct {
	Name        string
	Description string
	Quantity    int64
	Price       decimal.Decimal
	CategoryID  string
	Images      []string
}

type DesignPage struct {
	Items    []model.Design `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type DesignUsecase struct {
	designs    repo.DesignRepository
	categories repo.CategoryRepository
	generator  ai.DescriptionGenerator
	ids        IDGenerator
	clock      Clock
	log        *zap.Logger
}

func NewDesignUsecase(
	designs repo.DesignRepository,
	categories repo.CategoryRepository,
	generator ai.DescriptionGenerator,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
) *DesignUsecase {
	return &DesignUsecase{
		designs:    designs,
		categories: categories,
		generator:  generator,
		ids:        ids,
		clock:      clock,
		log:        log,
	}
}

func (u *DesignUsecase) CreateDesign(ctx context.Context, designerID string, in DesignInput) (*model.Design, error) {
	if err := u.validateInput(ctx, &in); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	d := &model.Design{
		ID:          u.ids.NewID(),
		Name:        in.Name,
		Description: in.Description,
		Quantity:    in.Quantity,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		DesignerID:  designerID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Images:      toImages(in.Images),
	}
	if err := u.designs.Create(ctx, d); err != nil {
		return nil, NewInternalError(err)
	}
	return d, nil
}

// 画像は全置換
func (u *DesignUsecase) UpdateDesign(ctx context.Context, designerID, designID string, in DesignInput) (*model.Design, error) {
	d, err := u.findOwned(ctx, designerID, designID)
	if err != nil {
		return nil, err
	}
	if err := u.validateInput(ctx, &in); err != nil {
		return nil, err
	}

	d.Name = in.Name
	d.Description = in.Description
	d.Quantity = in.Quantity
	d.Price = in.Price
	d.CategoryID = in.CategoryID
	d.Images = toImages(in.Images)
	d.UpdatedAt = u.clock.Now()

	if err := u.designs.Update(ctx, d); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewNotFoundError("design not found")
		}
		return nil, NewInternalError(err)
	}
	return d, nil
}

// 論理削除（hidden=true）。falseで戻せる
func (u *DesignUsecase) SetDesignHidden(ctx context.Context, designerID, designID string, hidden bool) (*model.Design, error) {
	d, err := u.findOwned(ctx, designerID, designID)
	if err != nil {
		return nil, err
	}
	if err := u.designs.SetHidden(ctx, designID, hidden); err != nil {
		return nil, NewInternalError(err)
	}
	d.Hidden = hidden
	return d, nil
}

// 本人の一覧は非表示も含む
func (u *DesignUsecase) ListMyDesigns(ctx context.Context, designerID string) ([]model.Design, error) {
	items, _, err := u.designs.List(ctx, repo.DesignListQuery{
		Page:          1,
		Limit:         100,
		DesignerID:    designerID,
		IncludeHidden: true,
	})
	if err != nil {
		return []model.Design{}, NewInternalError(err)
	}
	return items, nil
}

func (u *DesignUsecase) ListPublicDesigns(ctx context.Context, page, pageSize int, categoryID string) (DesignPage, error) {
	page, pageSize = clampPage(page, pageSize)

	items, total, err := u.designs.List(ctx, repo.DesignListQuery{
		Page:       page,
		Limit:      pageSize,
		CategoryID: strings.TrimSpace(categoryID),
	})
	if err != nil {
		return DesignPage{}, NewInternalError(err)
	}
	return DesignPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// 非表示は存在しない扱い
func (u *DesignUsecase) GetDesign(ctx context.Context, designID string) (*model.Design, error) {
	d, err := u.designs.FindByID(ctx, designID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewNotFoundError("design not found")
	}
	if err != nil {
		return nil, NewInternalError(err)
	}
	if d.Hidden {
		return nil, NewNotFoundError("design not found")
	}
	return d, nil
}

func (u *DesignUsecase) GenerateDescription(ctx context.Context, name string, keywords []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name is required")
	}
	if u.generator == nil {
		return "", NewUpstreamError("description generator is not configured", nil)
	}

	text, err := u.generator.GenerateDescription(ctx, name, keywords)
	if err != nil {
		u.log.Warn("generate description failed", zap.String("name", name), zap.Error(err))
		return "", NewUpstreamError("failed to generate description", err)
	}
	return text, nil
}

func (u *DesignUsecase) findOwned(ctx context.Context, designerID, designID string) (*model.Design, error) {
	d, err := u.designs.FindByID(ctx, designID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewNotFoundError("design not found")
	}
	if err != nil {
		return nil, NewInternalError(err)
	}
	if d.DesignerID != designerID {
		return nil, NewForbiddenError("not the owner of this design")
	}
	return d, nil
}

func (u *DesignUsecase) validateInput(ctx context.Context, in *DesignInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	if in.Name == "" {
		return NewValidationError("name is required")
	}
	if !in.Price.IsPositive() {
		return NewValidationError("price must be greater than 0")
	}
	if in.Quantity < 0 {
		return NewValidationError("quantity must not be negative")
	}
	if len(in.Images) > maxDesignImages {
		return NewValidationError("too many images")
	}
	for _, img := range in.Images {
		if strings.TrimSpace(img) == "" {
			return NewValidationError("image must not be empty")
		}
	}

	if in.CategoryID != "" {
		if _, err := u.categories.FindByID(ctx, in.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewValidationError("category not found")
			}
			return NewInternalError(err)
		}
	}
	return nil
}

func toImages(sources []string) []model.DesignImage {
	images := make([]model.DesignImage, 0, len(sources))
	for _, s := range sources {
		images = append(images, model.DesignImage{Source: strings.TrimSpace(s)})
	}
	return images
}

// page<1は1、pageSizeは[1,100]
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
