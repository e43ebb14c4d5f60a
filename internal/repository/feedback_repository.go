package repository

import (
	"context"

	"github.com/solecraft/marketplace/internal/domain/model"
)

type FeedbackRepository interface {
	// 三つ組の重複はErrDuplicate
	Create(ctx context.Context, f *model.Feedback) error
	Exists(ctx context.Context, customerID, designerID, orderID string) (bool, error)
	ListByDesignerID(ctx context.Context, designerID string) ([]model.Feedback, error)
	ListByCustomerID(ctx context.Context, customerID string) ([]model.Feedback, error)
	ListByOrderID(ctx context.Context, customerID, orderID string) ([]model.Feedback, error)
}
