package repository

import (
	"context"
	"time"

	"github.com/solecraft/marketplace/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByPaymentRef(ctx context.Context, ref string) (*model.Order, error)
	ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error)
	// from の状態のときだけ to にする。0件ならErrStateConflict
	TransitionStatus(ctx context.Context, orderID string, from model.OrderStatus, to model.OrderStatus, at time.Time) error
}

type OrderDetailRepository interface {
	CreateBulk(ctx context.Context, orderID string, details []model.OrderDetail) error
	ListByOrderID(ctx context.Context, orderID string) ([]model.OrderDetail, error)
}
