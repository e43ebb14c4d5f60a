package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/solecraft/marketplace/internal/domain/model"

	"gorm.io/gorm"
)

type OrderDetailGormRepository struct {
	db *gorm.DB
}

func NewOrderDetailGormRepository(db *gorm.DB) *OrderDetailGormRepository {
	return &OrderDetailGormRepository{db: db}
}

func (r *OrderDetailGormRepository) CreateBulk(ctx context.Context, orderID string, details []model.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	for i := range details {
		if details[i].ID == "" {
			details[i].ID = uuid.NewString()
		}
		details[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *OrderDetailGormRepository) ListByOrderID(ctx context.Context, orderID string) ([]model.OrderDetail, error) {
	var items []model.OrderDetail
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("design_name asc").
		Find(&items).Error
	if err != nil {
		return []model.OrderDetail{}, err
	}
	return items, nil
}
