package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gosimple/slug"
	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"
)

type CategoryUsecase struct {
	categories repo.CategoryRepository
	auditRepo  repo.AuditLogRepository
	ids        IDGenerator
	clock      Clock
}

func NewCategoryUsecase(categories repo.CategoryRepository, auditRepo repo.AuditLogRepository, ids IDGenerator, clock Clock) *CategoryUsecase {
	return &CategoryUsecase{categories: categories, auditRepo: auditRepo, ids: ids, clock: clock}
}

func (u *CategoryUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	items, err := u.categories.List(ctx)
	if err != nil {
		return []model.Category{}, NewInternalError(err)
	}
	return items, nil
}

// スラッグが同じならDuplicate（"Sneaker" と "sneaker" も衝突）
func (u *CategoryUsecase) CreateCategory(ctx context.Context, adminID string, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name is required")
	}
	s := slug.Make(name)
	if s == "" {
		return nil, NewValidationError("name must contain letters or digits")
	}

	c := &model.Category{
		ID:        u.ids.NewID(),
		Name:      name,
		Slug:      s,
		CreatedAt: u.clock.Now(),
	}
	if err := u.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, NewDuplicateError("category already exists")
		}
		return nil, NewInternalError(err)
	}

	after, _ := json.Marshal(c)
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminID,
		Action:       model.AuditActionCreateCategory,
		ResourceType: model.AuditResourceCategory,
		ResourceID:   c.ID,
		AfterJSON:    string(after),
		CreatedAt:    c.CreatedAt,
	}); err != nil {
		return nil, NewInternalError(err)
	}
	return c, nil
}
