package repository

import (
	"context"

	"github.com/solecraft/marketplace/internal/domain/model"
	repo "github.com/solecraft/marketplace/internal/repository"

	"gorm.io/gorm"
)

type FeedbackGormRepository struct {
	db *gorm.DB
}

func NewFeedbackGormRepository(db *gorm.DB) *FeedbackGormRepository {
	return &FeedbackGormRepository{db: db}
}

func (r *FeedbackGormRepository) Create(ctx context.Context, f *model.Feedback) error {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		if isDuplicate(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *FeedbackGormRepository) Exists(ctx context.Context, customerID, designerID, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Feedback{}).
		Where("customer_id = ? AND designer_id = ? AND order_id = ?", customerID, designerID, orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *FeedbackGormRepository) ListByDesignerID(ctx context.Context, designerID string) ([]model.Feedback, error) {
	return r.list(ctx, "designer_id = ?", designerID)
}

func (r *FeedbackGormRepository) ListByCustomerID(ctx context.Context, customerID string) ([]model.Feedback, error) {
	return r.list(ctx, "customer_id = ?", customerID)
}

func (r *FeedbackGormRepository) ListByOrderID(ctx context.Context, customerID, orderID string) ([]model.Feedback, error) {
	return r.list(ctx, "customer_id = ? AND order_id = ?", customerID, orderID)
}

// 新しい順
func (r *FeedbackGormRepository) list(ctx context.Context, cond string, args ...interface{}) ([]model.Feedback, error) {
	var items []model.Feedback
	if err := r.db.WithContext(ctx).
		Where(cond, args...).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return []model.Feedback{}, err
	}
	return items, nil
}
