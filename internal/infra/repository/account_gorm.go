package repository

import (
	"context"
	"errors"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
)

type AccountGormRepository struct {
	db *gorm.DB
}

func NewAccountGormRepository(db *gorm.DB) *AccountGormRepository {
	return &AccountGormRepository{db: db}
}

func (r *AccountGormRepository) Create(ctx context.Context, a *model.Account) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isDuplicate(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *AccountGormRepository) FindByUserName(ctx context.Context, userName string) (*model.Account, error) {
	return r.findOne(ctx, "user_name = ?", userName)
}

func (r *AccountGormRepository) FindByUserID(ctx context.Context, userID string) (*model.Account, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *AccountGormRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	if tokenHash == "" {
		return nil, repo.ErrNotFound
	}
	return r.findOne(ctx, "reset_token_hash = ?", tokenHash)
}

func (r *AccountGormRepository) Update(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *AccountGormRepository) findOne(ctx context.Context, cond string, arg interface{}) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).Where(cond, arg).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
